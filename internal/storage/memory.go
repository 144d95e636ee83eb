package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/starford/mfolders/internal/apperr"
)

// Memory is a process-local Store, used by tests and the "memory" driver.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	// FailSet, when non-nil, is returned by every Set call.
	FailSet error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("storage: get %s: %w", key, apperr.ErrNotFound)
	}
	return slices.Clone(v), nil
}

// Set stores a copy of value.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet != nil {
		return m.FailSet
	}
	m.data[key] = slices.Clone(value)
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
