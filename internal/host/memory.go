package host

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/models"
)

// Memory is an in-process EntrySource. It notifies subscribers synchronously
// after every change.
type Memory struct {
	mu       sync.RWMutex
	entries  map[string]models.EntryDescriptor
	handlers []EventHandler
}

// NewMemory returns a source seeded with entries.
func NewMemory(entries ...models.EntryDescriptor) *Memory {
	m := &Memory{entries: make(map[string]models.EntryDescriptor, len(entries))}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return m
}

// Subscribe registers h for lifecycle notifications.
func (m *Memory) Subscribe(h EventHandler) {
	m.mu.Lock()
	m.handlers = append(m.handlers, h)
	m.mu.Unlock()
}

// List returns all entries ordered by id.
func (m *Memory) List(_ context.Context) ([]models.EntryDescriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.EntryDescriptor, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns the entry with id.
func (m *Memory) Get(_ context.Context, id string) (models.EntryDescriptor, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return e, ok, nil
}

// Put creates or replaces an entry and notifies subscribers.
func (m *Memory) Put(e models.EntryDescriptor) {
	m.mu.Lock()
	_, existed := m.entries[e.ID]
	m.entries[e.ID] = e
	handlers := append([]EventHandler(nil), m.handlers...)
	m.mu.Unlock()

	kind := EventCreated
	if existed {
		kind = EventUpdated
	}
	for _, h := range handlers {
		h(Event{Kind: kind, Entry: e})
	}
}

// Remove drops an entry without notifying subscribers, simulating an
// out-of-band deletion.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
}

// Delete removes an entry and notifies subscribers.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	handlers := append([]EventHandler(nil), m.handlers...)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("host: delete %s: %w", id, apperr.ErrNotFound)
	}
	for _, h := range handlers {
		h(Event{Kind: EventDeleted, Entry: e})
	}
	return nil
}

// SetPermission updates the entry's permission level and notifies subscribers.
func (m *Memory) SetPermission(_ context.Context, id string, level models.PermissionLevel) (models.EntryDescriptor, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		e.Permission = level
		m.entries[id] = e
	}
	handlers := append([]EventHandler(nil), m.handlers...)
	m.mu.Unlock()

	if !ok {
		return models.EntryDescriptor{}, fmt.Errorf("host: set permission %s: %w", id, apperr.ErrNotFound)
	}
	for _, h := range handlers {
		h(Event{Kind: EventUpdated, Entry: e})
	}
	return e, nil
}
