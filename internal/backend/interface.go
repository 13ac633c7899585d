package backend

import (
	"context"

	"coffeecounter/internal/store"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result contains the selected store and an optional cleanup function.
type Result struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// Factory creates persistence backends based on configuration.
type Factory interface {
	// CreateStore creates a store instance based on the provided config.
	CreateStore(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Remote (Firestore) specific. Credentials come from the
	// environment; the account id is the per-user document key.
	FirestoreProjectID string
	AccountID          string
}

// BackendType represents the type of persistence backend.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	// RemoteBackend is Firestore with local sqlite fallback: the
	// signed-in configuration. Without an account and credentials the
	// factory refuses it and the caller stays local.
	RemoteBackend BackendType = "remote"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid.
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RemoteBackend:
		return true
	default:
		return false
	}
}
