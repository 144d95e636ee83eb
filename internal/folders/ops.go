package folders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/models"
)

const maxTitleLen = 255

var hexColor = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)

// FolderInput holds the fields of a folder to create. Empty fields take the
// display defaults; an empty ParentID creates a root folder.
type FolderInput struct {
	Title         string   `json:"title"`
	Color         string   `json:"color"`
	FontColor     string   `json:"font_color"`
	Icon          string   `json:"icon"`
	ParentID      string   `json:"parent_id"`
	PlayerDefault string   `json:"player_default"`
	Entries       []string `json:"entries"`
}

// Validate checks field formats.
func (in FolderInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Length(0, maxTitleLen)),
		validation.Field(&in.Color, validation.Match(hexColor)),
		validation.Field(&in.FontColor, validation.Match(hexColor)),
	)
}

// FolderUpdate changes the display fields of a folder. Nil fields are left
// alone; an empty color, font color or icon resets it to its default.
type FolderUpdate struct {
	Title         *string `json:"title"`
	Color         *string `json:"color"`
	FontColor     *string `json:"font_color"`
	Icon          *string `json:"icon"`
	PlayerDefault *string `json:"player_default"`
}

// Validate checks field formats.
func (u FolderUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Title, validation.NilOrNotEmpty, validation.Length(1, maxTitleLen)),
		validation.Field(&u.Color, validation.Match(hexColor)),
		validation.Field(&u.FontColor, validation.Match(hexColor)),
	)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %s", apperr.ErrValidation, err.Error())
}

func protected(id, op string) error {
	return fmt.Errorf("%s %s: %w", op, id, apperr.ErrProtected)
}

// create allocates a folder under parentID without persisting it.
func (e *Engine) create(in FolderInput) (*models.Folder, error) {
	id, err := e.newID()
	if err != nil {
		return nil, err
	}
	f := &models.Folder{
		ID:        id,
		Title:     in.Title,
		Color:     in.Color,
		FontColor: in.FontColor,
		Icon:      in.Icon,
		Path:      []string{},
		Content:   []string{},
		State:     models.StateUnsaved,
	}
	if f.Title == "" {
		f.Title = models.DefaultTitle
	}
	if f.Color == "" {
		f.Color = models.DefaultColor
	}
	if f.FontColor == "" {
		f.FontColor = models.DefaultFontColor
	}
	if in.ParentID != "" {
		parent := e.folders[in.ParentID]
		f.Path = append(slices.Clone(parent.Path), parent.ID)
	}
	e.folders[id] = f
	e.linkChild(in.ParentID, id)
	return f, nil
}

// checkParent validates a folder as the container of a new or moved folder.
func (e *Engine) checkParent(id string) (*models.Folder, error) {
	p, err := e.folder(id)
	if err != nil {
		return nil, err
	}
	if p.IsSentinel() {
		return nil, fmt.Errorf("nest under %s: %w", id, apperr.ErrProtected)
	}
	return p, nil
}

// CreateFolder creates and saves a folder, moving in.Entries into it.
func (e *Engine) CreateFolder(ctx context.Context, in FolderInput) (models.Folder, error) {
	if err := in.Validate(); err != nil {
		return models.Folder{}, invalid(err)
	}
	var out models.Folder
	err := e.do(ctx, func(ctx context.Context) error {
		depth := 0
		if in.ParentID != "" {
			p, err := e.checkParent(in.ParentID)
			if err != nil {
				return err
			}
			depth = len(p.Path) + 1
		}
		if err := e.checkDepth(depth); err != nil {
			return err
		}
		for _, id := range in.Entries {
			if err := e.ensureEntry(ctx, id); err != nil {
				return err
			}
		}

		f, err := e.create(in)
		if err != nil {
			return err
		}
		d := dirty{}
		d.add(f.ID)
		for _, id := range in.Entries {
			e.attach(id, f.ID, d)
		}
		e.claimPlayerDefault(f.ID, in.PlayerDefault, d)
		if err := e.save(ctx, d, true); err != nil {
			return err
		}
		e.log.Info("folders: created", slog.String("id", f.ID), slog.String("title", f.Title))
		out = f.Clone()
		return nil
	})
	return out, err
}

// UpdateFolder applies u to folder id. The hidden folder is read-only and the
// default folder cannot become a player default.
func (e *Engine) UpdateFolder(ctx context.Context, id string, u FolderUpdate) (models.Folder, error) {
	if err := u.Validate(); err != nil {
		return models.Folder{}, invalid(err)
	}
	var out models.Folder
	err := e.do(ctx, func(ctx context.Context) error {
		f, err := e.folder(id)
		if err != nil {
			return err
		}
		if id == models.HiddenFolderID || (id == models.DefaultFolderID && u.PlayerDefault != nil && *u.PlayerDefault != "") {
			return protected(id, "update")
		}

		d := dirty{}
		d.add(id)
		if u.Title != nil {
			f.Title = *u.Title
		}
		if u.Color != nil {
			f.Color = orDefault(*u.Color, models.DefaultColor)
		}
		if u.FontColor != nil {
			f.FontColor = orDefault(*u.FontColor, models.DefaultFontColor)
		}
		if u.Icon != nil {
			f.Icon = *u.Icon
		}
		if u.PlayerDefault != nil {
			if *u.PlayerDefault == "" {
				f.PlayerDefault = ""
			} else {
				e.claimPlayerDefault(id, *u.PlayerDefault, d)
			}
		}
		if err := e.save(ctx, d, true); err != nil {
			return err
		}
		out = f.Clone()
		return nil
	})
	return out, err
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// AddEntry moves entryID into folderID, detaching it from its previous
// folder. Adding an entry to the folder that already owns it only refreshes
// the saved record.
func (e *Engine) AddEntry(ctx context.Context, folderID, entryID string) error {
	return e.do(ctx, func(ctx context.Context) error {
		if _, err := e.folder(folderID); err != nil {
			return err
		}
		if err := e.ensureEntry(ctx, entryID); err != nil {
			return err
		}
		d := dirty{}
		e.attach(entryID, folderID, d)
		return e.save(ctx, d, true)
	})
}

// RemoveEntry detaches entryID from folderID. A hard removal deletes the host
// document and forgets the entry; otherwise it is parked in the hidden folder.
func (e *Engine) RemoveEntry(ctx context.Context, folderID, entryID string, hard bool) error {
	return e.do(ctx, func(ctx context.Context) error {
		f, err := e.folder(folderID)
		if err != nil {
			return err
		}
		if !f.Contains(entryID) {
			return fmt.Errorf("entry %s in folder %s: %w", entryID, folderID, apperr.ErrNotFound)
		}
		d := dirty{}
		if hard {
			if err := e.source.Delete(ctx, entryID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
				return fmt.Errorf("delete entry %s: %w", entryID, err)
			}
			e.hardRemove(entryID, d)
		} else {
			e.attach(entryID, models.HiddenFolderID, d)
		}
		return e.save(ctx, d, true)
	})
}

// MoveFolder reparents folder id under dest, or to the root when dest is
// empty. The whole subtree moves with it.
func (e *Engine) MoveFolder(ctx context.Context, id, dest string) error {
	if dest == models.RootTargetID {
		dest = ""
	}
	return e.do(ctx, func(ctx context.Context) error {
		f, err := e.folder(id)
		if err != nil {
			return err
		}
		if f.IsSentinel() {
			return protected(id, "move")
		}

		newPath := []string{}
		if dest != "" {
			if dest == id || e.isDescendant(dest, id) {
				return fmt.Errorf("move %s into %s: %w", id, dest, apperr.ErrCycle)
			}
			p, err := e.checkParent(dest)
			if err != nil {
				return err
			}
			newPath = append(slices.Clone(p.Path), p.ID)
		}
		if dest == f.ParentID() {
			return nil
		}
		if err := e.checkDepth(len(newPath) + e.subtreeHeight(id)); err != nil {
			return err
		}

		d := dirty{}
		oldLen := len(f.Path)
		subtree := e.descendants(id)
		e.unlinkChild(f.ParentID(), id)
		f.Path = newPath
		e.linkChild(dest, id)
		d.add(id)
		for _, sub := range subtree {
			sf := e.folders[sub]
			sf.Path = append(slices.Clone(newPath), sf.Path[oldLen:]...)
			d.add(sub)
		}
		if err := e.save(ctx, d, true); err != nil {
			return err
		}
		e.log.Info("folders: moved", slog.String("id", id), slog.String("dest", dest))
		return nil
	})
}

// DeleteFolder removes folder id. Its entries are deleted from the host when
// hardContents is set, otherwise they move to the parent folder or to the
// default folder. Child folders are reparented to the parent, or become roots.
func (e *Engine) DeleteFolder(ctx context.Context, id string, hardContents bool) error {
	return e.do(ctx, func(ctx context.Context) error {
		f, err := e.folder(id)
		if err != nil {
			return err
		}
		if f.IsSentinel() {
			return protected(id, "delete")
		}

		content := slices.Clone(f.Content)
		if hardContents {
			for _, entryID := range content {
				if err := e.source.Delete(ctx, entryID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
					return fmt.Errorf("delete entry %s: %w", entryID, err)
				}
			}
		}

		d := dirty{}
		parent := f.ParentID()
		if hardContents {
			for _, entryID := range content {
				e.hardRemove(entryID, d)
			}
		} else {
			target := parent
			if target == "" {
				target = models.DefaultFolderID
			}
			for _, entryID := range content {
				e.attach(entryID, target, d)
			}
		}

		depth := len(f.Path)
		for _, sub := range e.descendants(id) {
			sf := e.folders[sub]
			sf.Path = slices.Delete(slices.Clone(sf.Path), depth, depth+1)
			d.add(sub)
		}
		for _, child := range f.Children {
			e.linkChild(parent, child)
		}
		e.unlinkChild(parent, id)
		delete(e.folders, id)
		f.State = models.StateRemoved
		d.add(id)

		if err := e.save(ctx, d, true); err != nil {
			return err
		}
		if f.Expanded {
			if err := e.saveExpanded(ctx); err != nil {
				return err
			}
		}
		if id == e.userFolderLoc {
			if err := e.setUserFolderLocation(ctx, ""); err != nil {
				return err
			}
		}
		e.log.Info("folders: deleted", slog.String("id", id), slog.Bool("hard", hardContents))
		return nil
	})
}

// DeleteEntry deletes the host document for id and forgets the entry.
func (e *Engine) DeleteEntry(ctx context.Context, id string) error {
	return e.do(ctx, func(ctx context.Context) error {
		if err := e.ensureEntry(ctx, id); err != nil {
			return err
		}
		if err := e.source.Delete(ctx, id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("delete entry %s: %w", id, err)
		}
		d := dirty{}
		e.hardRemove(id, d)
		return e.save(ctx, d, true)
	})
}
