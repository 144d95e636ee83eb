package folders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/storage"
)

// OpenFolder marks folder id as expanded for this client.
func (e *Engine) OpenFolder(ctx context.Context, id string) error {
	return e.do(ctx, func(ctx context.Context) error {
		return e.setExpanded(ctx, id, true)
	})
}

// CloseFolder marks folder id as collapsed for this client.
func (e *Engine) CloseFolder(ctx context.Context, id string) error {
	return e.do(ctx, func(ctx context.Context) error {
		return e.setExpanded(ctx, id, false)
	})
}

// ToggleFolder flips the expanded state of folder id and returns the new state.
func (e *Engine) ToggleFolder(ctx context.Context, id string) (bool, error) {
	var open bool
	err := e.do(ctx, func(ctx context.Context) error {
		f, err := e.folder(id)
		if err != nil {
			return err
		}
		open = !f.Expanded
		return e.setExpanded(ctx, id, open)
	})
	return open, err
}

func (e *Engine) setExpanded(ctx context.Context, id string, open bool) error {
	f, err := e.folder(id)
	if err != nil {
		return err
	}
	if f.Expanded == open {
		return nil
	}
	f.Expanded = open
	if err := e.saveExpanded(ctx); err != nil {
		return err
	}
	e.render()
	return nil
}

// saveExpanded writes the ids of every expanded folder under the client key.
func (e *Engine) saveExpanded(ctx context.Context) error {
	ids := []string{}
	for id, f := range e.folders {
		if f.Expanded {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("folders: encode open folders: %w", err)
	}
	if err := e.store.Set(ctx, storage.OpenFoldersKey(e.client), data); err != nil {
		return fmt.Errorf("folders: save open folders: %w", err)
	}
	return nil
}

// loadExpanded applies the stored expanded list to the current tree. Ids of
// folders that no longer exist are ignored.
func (e *Engine) loadExpanded(ctx context.Context) error {
	data, err := e.store.Get(ctx, storage.OpenFoldersKey(e.client))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("folders: load open folders: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		e.log.Warn("folders: discarding unreadable open folders list",
			slog.String("client", e.client), slog.String("error", err.Error()))
		return nil
	}
	for _, id := range ids {
		if f, ok := e.folders[id]; ok {
			f.Expanded = true
		}
	}
	return nil
}
