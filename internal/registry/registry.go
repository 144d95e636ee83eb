// Package registry indexes the host's live entries and remembers which folder
// owns each one.
package registry

import (
	"sort"

	"github.com/starford/mfolders/internal/models"
)

// Registry maps entry ids to entries. It is not safe for concurrent use; the
// folder engine owns it from a single goroutine.
type Registry struct {
	entries map[string]*models.Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*models.Entry)}
}

// Upsert inserts or refreshes the entry described by d. A known folder
// assignment is preserved; a new entry starts with no folder.
func (r *Registry) Upsert(d models.EntryDescriptor) models.Entry {
	e, ok := r.entries[d.ID]
	if !ok {
		e = &models.Entry{ID: d.ID}
		r.entries[d.ID] = e
	}
	e.Name = d.Name
	e.Author = d.Author
	e.Permission = d.Permission
	return *e
}

// Assign sets the owning folder of a known entry. It reports false when id is
// not registered.
func (r *Registry) Assign(id, folderID string) bool {
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.FolderID = folderID
	return true
}

// Remove drops the entry. The caller detaches it from its folder.
func (r *Registry) Remove(id string) {
	delete(r.entries, id)
}

// Get returns the entry for id. ok is false for unknown ids.
func (r *Registry) Get(id string) (models.Entry, bool) {
	e, ok := r.entries[id]
	if !ok {
		return models.Entry{}, false
	}
	return *e, true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// Len returns the number of registered entries.
func (r *Registry) Len() int { return len(r.entries) }

// IDs returns every registered id in ascending order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reset drops every entry.
func (r *Registry) Reset() {
	clear(r.entries)
}
