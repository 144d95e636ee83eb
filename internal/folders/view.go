package folders

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/models"
)

// Tree returns the visible forest. Folders are ordered by title with the
// default folder last; entries by name. The hidden folder is left out.
func (e *Engine) Tree(ctx context.Context) ([]*models.TreeNode, error) {
	var roots []*models.TreeNode
	err := e.do(ctx, func(context.Context) error {
		roots = []*models.TreeNode{}
		for _, id := range e.sortedByTitle(e.rootIDs()) {
			if id == models.HiddenFolderID {
				continue
			}
			roots = append(roots, e.node(e.folders[id]))
		}
		return nil
	})
	return roots, err
}

func (e *Engine) rootIDs() []string {
	var ids []string
	for id, f := range e.folders {
		if f.ParentID() == "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (e *Engine) node(f *models.Folder) *models.TreeNode {
	n := &models.TreeNode{
		ID:            f.ID,
		Title:         f.Title,
		Color:         f.Color,
		FontColor:     f.FontColor,
		Icon:          f.Icon,
		Path:          slices.Clone(f.Path),
		PlayerDefault: f.PlayerDefault,
		Expanded:      f.Expanded,
		Entries:       []models.Entry{},
		Children:      []*models.TreeNode{},
	}
	for _, id := range f.Content {
		if ent, ok := e.reg.Get(id); ok {
			n.Entries = append(n.Entries, ent)
		}
	}
	slices.SortStableFunc(n.Entries, func(a, b models.Entry) int {
		return e.collator.CompareString(a.Name, b.Name)
	})
	for _, c := range e.sortedByTitle(f.Children) {
		n.Children = append(n.Children, e.node(e.folders[c]))
	}
	return n
}

// sortedByTitle orders folder ids by title, ties by id, default last.
func (e *Engine) sortedByTitle(ids []string) []string {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b string) int {
		if (a == models.DefaultFolderID) != (b == models.DefaultFolderID) {
			if a == models.DefaultFolderID {
				return 1
			}
			return -1
		}
		if c := e.collator.CompareString(e.folders[a].Title, e.folders[b].Title); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return out
}

// Folder returns a copy of folder id.
func (e *Engine) Folder(ctx context.Context, id string) (models.Folder, error) {
	var out models.Folder
	err := e.do(ctx, func(context.Context) error {
		f, err := e.folder(id)
		if err != nil {
			return err
		}
		out = f.Clone()
		return nil
	})
	return out, err
}

// Folders returns a copy of every folder keyed by id.
func (e *Engine) Folders(ctx context.Context) (map[string]models.Folder, error) {
	var out map[string]models.Folder
	err := e.do(ctx, func(context.Context) error {
		out = make(map[string]models.Folder, len(e.folders))
		for id, f := range e.folders {
			out[id] = f.Clone()
		}
		return nil
	})
	return out, err
}

// Entry returns the registered entry id.
func (e *Engine) Entry(ctx context.Context, id string) (models.Entry, error) {
	var out models.Entry
	err := e.do(ctx, func(context.Context) error {
		ent, ok := e.reg.Get(id)
		if !ok {
			return fmt.Errorf("entry %s: %w", id, apperr.ErrNotFound)
		}
		out = ent
		return nil
	})
	return out, err
}

// PathName returns the titles from the root down to folder id joined by "/".
func (e *Engine) PathName(ctx context.Context, id string) (string, error) {
	var out string
	err := e.do(ctx, func(context.Context) error {
		f, err := e.folder(id)
		if err != nil {
			return err
		}
		out = e.pathName(f)
		return nil
	})
	return out, err
}

func (e *Engine) pathName(f *models.Folder) string {
	parts := make([]string, 0, len(f.Path)+1)
	for _, id := range f.Path {
		if p, ok := e.folders[id]; ok {
			parts = append(parts, p.Title)
		}
	}
	return strings.Join(append(parts, f.Title), "/")
}

// Search matches entry names case-insensitively. It returns the matching
// entries and every visible folder on the way to them.
func (e *Engine) Search(ctx context.Context, query string) (models.SearchResult, error) {
	res := models.SearchResult{EntryIDs: []string{}, FolderIDs: []string{}}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return res, nil
	}
	err := e.do(ctx, func(context.Context) error {
		folders := make(map[string]struct{})
		for _, id := range e.reg.IDs() {
			ent, _ := e.reg.Get(id)
			if ent.FolderID == models.HiddenFolderID || !strings.Contains(strings.ToLower(ent.Name), q) {
				continue
			}
			f, ok := e.folders[ent.FolderID]
			if !ok {
				continue
			}
			res.EntryIDs = append(res.EntryIDs, id)
			folders[f.ID] = struct{}{}
			for _, p := range f.Path {
				folders[p] = struct{}{}
			}
		}
		for id := range folders {
			res.FolderIDs = append(res.FolderIDs, id)
		}
		slices.Sort(res.FolderIDs)
		return nil
	})
	return res, err
}

// MoveTargets lists the folders folder id may be moved into, ordered by path
// name. A root target comes first when the folder is not a root already.
func (e *Engine) MoveTargets(ctx context.Context, id string) ([]models.MoveTarget, error) {
	var out []models.MoveTarget
	err := e.do(ctx, func(context.Context) error {
		f, err := e.folder(id)
		if err != nil {
			return err
		}
		if f.IsSentinel() {
			return protected(id, "move")
		}
		out = []models.MoveTarget{}
		height := e.subtreeHeight(id)
		parent := f.ParentID()
		for _, tid := range e.sortedIDs() {
			t := e.folders[tid]
			if t.IsSentinel() || tid == id || tid == parent || e.isDescendant(tid, id) {
				continue
			}
			if len(t.Path)+1+height >= e.limit {
				continue
			}
			out = append(out, models.MoveTarget{ID: tid, Title: t.Title, PathName: e.pathName(t)})
		}
		slices.SortStableFunc(out, func(a, b models.MoveTarget) int {
			return e.collator.CompareString(a.PathName, b.PathName)
		})
		if parent != "" {
			out = append([]models.MoveTarget{{ID: models.RootTargetID, Title: "Root", PathName: "/"}}, out...)
		}
		return nil
	})
	return out, err
}

// GroupedEntries partitions the registered entries into those placed in a
// regular folder and the rest, each ordered by name.
func (e *Engine) GroupedEntries(ctx context.Context) (models.GroupedEntries, error) {
	out := models.GroupedEntries{Assigned: []models.EntryDescriptor{}, Unassigned: []models.EntryDescriptor{}}
	err := e.do(ctx, func(context.Context) error {
		for _, id := range e.reg.IDs() {
			ent, _ := e.reg.Get(id)
			desc := models.EntryDescriptor{ID: ent.ID, Name: ent.Name, Author: ent.Author, Permission: ent.Permission}
			if models.IsSentinelID(ent.FolderID) || ent.FolderID == "" {
				out.Unassigned = append(out.Unassigned, desc)
			} else {
				out.Assigned = append(out.Assigned, desc)
			}
		}
		byName := func(a, b models.EntryDescriptor) int { return e.collator.CompareString(a.Name, b.Name) }
		slices.SortStableFunc(out.Assigned, byName)
		slices.SortStableFunc(out.Unassigned, byName)
		return nil
	})
	return out, err
}
