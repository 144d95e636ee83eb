package folders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/models"
	"github.com/starford/mfolders/internal/storage"
)

// UserFolderLocation returns the folder user folders are created under, or ""
// when none is set.
func (e *Engine) UserFolderLocation(ctx context.Context) (string, error) {
	var id string
	err := e.do(ctx, func(context.Context) error {
		id = e.userFolderLoc
		return nil
	})
	return id, err
}

// SetUserFolderLocation selects the parent folder for user folders. An empty
// id clears the setting.
func (e *Engine) SetUserFolderLocation(ctx context.Context, id string) error {
	return e.do(ctx, func(ctx context.Context) error {
		if id != "" {
			if _, err := e.checkParent(id); err != nil {
				return err
			}
		}
		return e.setUserFolderLocation(ctx, id)
	})
}

func (e *Engine) setUserFolderLocation(ctx context.Context, id string) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("folders: encode user folder location: %w", err)
	}
	if err := e.store.Set(ctx, storage.KeyUserFolderLocation, data); err != nil {
		return fmt.Errorf("folders: save user folder location: %w", err)
	}
	e.userFolderLoc = id
	return nil
}

func (e *Engine) loadUserFolderLocation(ctx context.Context) error {
	data, err := e.store.Get(ctx, storage.KeyUserFolderLocation)
	if errors.Is(err, apperr.ErrNotFound) {
		e.userFolderLoc = ""
		return nil
	}
	if err != nil {
		return fmt.Errorf("folders: load user folder location: %w", err)
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		e.log.Warn("folders: discarding unreadable user folder location", slog.String("error", err.Error()))
		id = ""
	}
	if _, ok := e.folders[id]; !ok && id != "" {
		e.log.Info("folders: user folder location no longer exists", slog.String("id", id))
		id = ""
	}
	e.userFolderLoc = id
	return nil
}

// CreateUserFolders creates, under the user folder location, a player default
// folder for every configured user that has none. It returns the new folders.
func (e *Engine) CreateUserFolders(ctx context.Context) ([]models.Folder, error) {
	var out []models.Folder
	err := e.do(ctx, func(ctx context.Context) error {
		if e.userFolderLoc == "" {
			return fmt.Errorf("%w: no user folder location set", apperr.ErrValidation)
		}
		parent, err := e.checkParent(e.userFolderLoc)
		if err != nil {
			return err
		}
		if err := e.checkDepth(len(parent.Path) + 1); err != nil {
			return err
		}

		d := dirty{}
		var created []*models.Folder
		for _, u := range e.users {
			if e.playerDefaultFolder(u.ID) != "" {
				continue
			}
			f, err := e.create(FolderInput{Title: u.Name, Color: u.Color, ParentID: parent.ID})
			if err != nil {
				return err
			}
			d.add(f.ID)
			e.claimPlayerDefault(f.ID, u.ID, d)
			created = append(created, f)
		}
		if err := e.save(ctx, d, true); err != nil {
			return err
		}
		for _, f := range created {
			out = append(out, f.Clone())
		}
		slices.SortFunc(out, func(a, b models.Folder) int { return e.collator.CompareString(a.Title, b.Title) })
		return nil
	})
	return out, err
}
