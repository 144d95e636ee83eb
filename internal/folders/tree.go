package folders

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/models"
	"github.com/starford/mfolders/internal/storage"
)

const (
	idPrefix   = "mfolder_"
	idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	idLength   = 10
)

func generateID() (string, error) {
	s, err := gonanoid.Generate(idAlphabet, idLength)
	if err != nil {
		return "", fmt.Errorf("folders: generate id: %w", err)
	}
	return idPrefix + s, nil
}

// dirty collects the folder ids an operation touched and must persist.
type dirty map[string]struct{}

func (d dirty) add(ids ...string) {
	for _, id := range ids {
		d[id] = struct{}{}
	}
}

func (e *Engine) folder(id string) (*models.Folder, error) {
	f, ok := e.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, apperr.ErrNotFound)
	}
	return f, nil
}

// descendants returns every folder below id, parents before children.
func (e *Engine) descendants(id string) []string {
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		f, ok := e.folders[cur]
		if !ok {
			continue
		}
		for _, c := range f.Children {
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// isDescendant reports whether candidate lies below id.
func (e *Engine) isDescendant(candidate, id string) bool {
	f, ok := e.folders[candidate]
	return ok && slices.Contains(f.Path, id)
}

// subtreeHeight is how many levels lie below id.
func (e *Engine) subtreeHeight(id string) int {
	f, ok := e.folders[id]
	if !ok {
		return 0
	}
	h := 0
	for _, d := range e.descendants(id) {
		if n := len(e.folders[d].Path) - len(f.Path); n > h {
			h = n
		}
	}
	return h
}

// checkDepth rejects a folder whose path would reach the depth limit.
func (e *Engine) checkDepth(pathLen int) error {
	if pathLen >= e.limit {
		return fmt.Errorf("depth %d of %d: %w", pathLen, e.limit, apperr.ErrDepthLimit)
	}
	return nil
}

func (e *Engine) linkChild(parentID, childID string) {
	if p, ok := e.folders[parentID]; ok && !slices.Contains(p.Children, childID) {
		p.Children = append(p.Children, childID)
	}
}

func (e *Engine) unlinkChild(parentID, childID string) {
	if p, ok := e.folders[parentID]; ok {
		p.Children = slices.DeleteFunc(p.Children, func(c string) bool { return c == childID })
	}
}

// rebuildChildren derives every folder's children from the folder paths.
func (e *Engine) rebuildChildren() {
	for _, f := range e.folders {
		f.Children = nil
	}
	for _, id := range e.sortedIDs() {
		if parent := e.folders[id].ParentID(); parent != "" {
			e.linkChild(parent, id)
		}
	}
}

func (e *Engine) sortedIDs() []string {
	ids := make([]string, 0, len(e.folders))
	for id := range e.folders {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ensureEntry returns the registry entry for id, registering it from the host
// document on first reference.
func (e *Engine) ensureEntry(ctx context.Context, id string) error {
	if e.reg.Has(id) {
		return nil
	}
	desc, ok, err := e.source.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("entry %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("entry %s: %w", id, apperr.ErrNotFound)
	}
	e.reg.Upsert(desc)
	return nil
}

// detach removes a registered entry from its owning folder.
func (e *Engine) detach(entryID string, d dirty) {
	ent, ok := e.reg.Get(entryID)
	if !ok || ent.FolderID == "" {
		return
	}
	if f, ok := e.folders[ent.FolderID]; ok {
		f.Content = slices.DeleteFunc(f.Content, func(id string) bool { return id == entryID })
		d.add(f.ID)
	}
	e.reg.Assign(entryID, "")
}

// attach moves a registered entry into folderID, detaching it from its
// previous owner first. Attaching to the current owner only refreshes it.
func (e *Engine) attach(entryID, folderID string, d dirty) {
	ent, _ := e.reg.Get(entryID)
	if ent.FolderID != folderID {
		e.detach(entryID, d)
	}
	f := e.folders[folderID]
	if !f.Contains(entryID) {
		f.Content = append(f.Content, entryID)
	}
	e.reg.Assign(entryID, folderID)
	d.add(folderID)
}

// hardRemove detaches an entry and forgets it.
func (e *Engine) hardRemove(entryID string, d dirty) {
	e.detach(entryID, d)
	e.reg.Remove(entryID)
}

// destinationFor picks the folder a newly seen entry lands in.
func (e *Engine) destinationFor(entryID string) string {
	ent, _ := e.reg.Get(entryID)
	if id := e.playerDefaultFolder(ent.Author); id != "" {
		return id
	}
	return models.DefaultFolderID
}

func (e *Engine) playerDefaultFolder(owner string) string {
	if owner == "" {
		return ""
	}
	for _, id := range e.sortedIDs() {
		if e.folders[id].PlayerDefault == owner {
			return id
		}
	}
	return ""
}

// claimPlayerDefault makes folderID the only folder holding owner. The last
// claim wins.
func (e *Engine) claimPlayerDefault(folderID, owner string, d dirty) {
	if owner == "" {
		return
	}
	for id, f := range e.folders {
		if id != folderID && f.PlayerDefault == owner {
			f.PlayerDefault = ""
			d.add(id)
		}
	}
	e.folders[folderID].PlayerDefault = owner
	d.add(folderID)
}

// save merges the touched folders into the flat record map and writes it
// through to the store. Folders no longer in the tree are dropped.
func (e *Engine) save(ctx context.Context, d dirty, render bool) error {
	if len(d) == 0 {
		return nil
	}
	for id := range d {
		if f, ok := e.folders[id]; ok {
			e.records[id] = f.Record()
			f.State = models.StatePersisted
		} else {
			delete(e.records, id)
		}
	}
	if err := e.writeRecords(ctx); err != nil {
		return err
	}
	if render {
		e.render()
	}
	return nil
}

func (e *Engine) writeRecords(ctx context.Context) error {
	data, err := json.Marshal(e.records)
	if err != nil {
		return fmt.Errorf("folders: encode records: %w", err)
	}
	if err := e.store.Set(ctx, storage.KeyFolders, data); err != nil {
		return fmt.Errorf("folders: save: %w", err)
	}
	return nil
}
