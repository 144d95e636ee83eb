package folders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/models"
)

// SetFolderPermission applies level to every entry listed directly in
// folderID and returns how many were updated. Entries the host no longer has
// are skipped. The host's update notifications that follow carry the same
// descriptors and are absorbed without another render.
func (e *Engine) SetFolderPermission(ctx context.Context, folderID string, level models.PermissionLevel) (int, error) {
	if !level.Valid() {
		return 0, fmt.Errorf("%w: unknown permission level %d", apperr.ErrValidation, int(level))
	}
	var n int
	err := e.do(ctx, func(ctx context.Context) error {
		f, err := e.folder(folderID)
		if err != nil {
			return err
		}
		for _, entryID := range slices.Clone(f.Content) {
			desc, err := e.source.SetPermission(ctx, entryID, level)
			if errors.Is(err, apperr.ErrNotFound) {
				e.log.Warn("folders: permission target missing", slog.String("entry", entryID))
				continue
			}
			if err != nil {
				if n > 0 {
					e.render()
				}
				return fmt.Errorf("set permission on %s: %w", entryID, err)
			}
			e.reg.Upsert(desc)
			n++
		}
		if n > 0 {
			e.render()
		}
		e.log.Info("folders: permission applied",
			slog.String("folder", folderID),
			slog.String("level", level.String()),
			slog.Int("entries", n))
		return nil
	})
	return n, err
}
