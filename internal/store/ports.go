// Package store defines the persistence gateway the tracker core
// depends on, and decorators over its implementations.
package store

import (
	"context"
	"errors"

	"coffeecounter/internal/core"
)

// ErrNotFound signals that no persisted state exists yet. Callers treat
// it as fresh empty state, never as a failure.
var ErrNotFound = errors.New("no persisted state")

// Store is the persistence port: the whole AppState document is saved
// and loaded as one. The core never assumes a save is synchronous or
// durable; persistence is a best-effort side effect layered on top of
// the in-memory mutation.
type Store interface {
	Load(ctx context.Context) (core.AppState, error)
	Save(ctx context.Context, state core.AppState) error
}
