// Package host adapts the host application's live entry collection: listing,
// lookup, updates, deletion and lifecycle notifications.
package host

import (
	"context"

	"github.com/starford/mfolders/internal/models"
)

// EventKind names a lifecycle notification.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
	// EventResync asks for a full reconciliation; Entry is empty.
	EventResync EventKind = "resync"
)

// Event is one lifecycle notification about an entry.
type Event struct {
	Kind  EventKind
	Entry models.EntryDescriptor
}

// EventHandler receives lifecycle notifications. Implementations must not block.
type EventHandler func(Event)

// EntrySource is the authoritative collection of live entries.
type EntrySource interface {
	// List returns every live entry.
	List(ctx context.Context) ([]models.EntryDescriptor, error)
	// Get returns the entry with id; ok is false when it does not exist.
	Get(ctx context.Context, id string) (desc models.EntryDescriptor, ok bool, err error)
	// Delete removes the underlying host document.
	Delete(ctx context.Context, id string) error
	// SetPermission stores a new permission level on the document and returns
	// the updated descriptor.
	SetPermission(ctx context.Context, id string, level models.PermissionLevel) (models.EntryDescriptor, error)
}
