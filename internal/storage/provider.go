// Package storage implements the persistent key-value settings store the
// folder engine saves through.
package storage

import (
	"context"
	"fmt"
)

// Well-known keys.
const (
	KeyFolders            = "mfolders"
	KeyUserFolderLocation = "user-folder-location"
	keyOpenFoldersPrefix  = "open-folders."
)

// Drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// Store is an abstract persistent key-value store.
type Store interface {
	// Get returns the value stored at key, or apperr.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored at key.
	Set(ctx context.Context, key string, value []byte) error
	// Close releases the underlying resources.
	Close() error
}

// OpenFoldersKey returns the client-scoped key holding expanded folder ids.
func OpenFoldersKey(clientID string) string {
	return keyOpenFoldersPrefix + clientID
}

// Open creates the store selected by driver. path is a file for sqlite and a
// directory for badger and file; memory ignores it.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(path)
	case DriverBadger:
		return OpenBadger(path)
	case DriverFile:
		return NewFS(path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
