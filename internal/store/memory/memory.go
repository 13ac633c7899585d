// Package memory provides an in-memory Store, the default backend and
// the workhorse for tests.
package memory

import (
	"context"
	"sync"

	"coffeecounter/internal/core"
	"coffeecounter/internal/store"
)

type Store struct {
	mu    sync.Mutex
	state core.AppState
	saved bool

	// FailSave, when set, makes Save return that error. Tests use it to
	// exercise the fallback and status paths.
	FailSave error
	// SaveCount counts Save calls, for debounce coalescing assertions.
	SaveCount int
}

func New() *Store {
	return &Store{}
}

// Seed preloads state as if it had been saved before.
func Seed(state core.AppState) *Store {
	return &Store{state: state.Clone(), saved: true}
}

func (s *Store) Load(_ context.Context) (core.AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return core.AppState{}, store.ErrNotFound
	}
	return s.state.Clone(), nil
}

func (s *Store) Save(_ context.Context, state core.AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveCount++
	if s.FailSave != nil {
		return s.FailSave
	}
	s.state = state.Clone()
	s.saved = true
	return nil
}

var _ store.Store = (*Store)(nil)
