package folders

import (
	"context"
	"log/slog"

	"github.com/starford/mfolders/internal/host"
	"github.com/starford/mfolders/internal/models"
)

// handleEvent applies a host notification. Deletions of unknown entries and
// updates that match the registry are no-ops, so the notifications echoing
// the engine's own host writes are harmless.
func (e *Engine) handleEvent(ctx context.Context, ev host.Event) error {
	if ev.Kind == host.EventResync {
		_, err := e.reconcile(ctx, true)
		return err
	}
	if _, ok := e.folders[models.DefaultFolderID]; !ok {
		e.log.Debug("folders: event before first reconcile", slog.String("entry", ev.Entry.ID))
		return nil
	}

	id := ev.Entry.ID
	switch ev.Kind {
	case host.EventCreated, host.EventUpdated:
		if cur, ok := e.reg.Get(id); ok {
			if cur.Name == ev.Entry.Name && cur.Author == ev.Entry.Author && cur.Permission == ev.Entry.Permission {
				return nil
			}
			e.reg.Upsert(ev.Entry)
			e.render()
			return nil
		}
		e.reg.Upsert(ev.Entry)
		d := dirty{}
		dest := e.destinationFor(id)
		e.attach(id, dest, d)
		e.log.Debug("folders: entry placed", slog.String("entry", id), slog.String("folder", dest))
		return e.save(ctx, d, true)

	case host.EventDeleted:
		if !e.reg.Has(id) {
			return nil
		}
		d := dirty{}
		e.hardRemove(id, d)
		return e.save(ctx, d, true)
	}
	return nil
}
