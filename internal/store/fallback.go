package store

import (
	"context"
	"errors"
	"log/slog"

	"coffeecounter/internal/core"
)

// Fallback decorates a remote store with a local one. Loads prefer the
// remote document and fall back to the local copy on failure; saves
// always write the local store and mirror to the remote best-effort.
// A remote outage degrades the tracker to local persistence instead of
// failing the user's operation; the remote error is logged and kept as
// a transient status, never returned to the mutation path.
type Fallback struct {
	remote Store
	local  Store
}

func NewFallback(remote, local Store) *Fallback {
	return &Fallback{remote: remote, local: local}
}

func (f *Fallback) Load(ctx context.Context) (core.AppState, error) {
	state, err := f.remote.Load(ctx)
	if err == nil {
		return state, nil
	}
	if errors.Is(err, ErrNotFound) {
		// A fresh account remotely may still have an older local copy.
		return f.local.Load(ctx)
	}
	slog.WarnContext(ctx, "Remote load failed, falling back to local store", "error", err)
	return f.local.Load(ctx)
}

func (f *Fallback) Save(ctx context.Context, state core.AppState) error {
	if err := f.local.Save(ctx, state); err != nil {
		return err
	}
	if err := f.remote.Save(ctx, state); err != nil {
		slog.WarnContext(ctx, "Remote save failed, local copy kept", "error", err)
	}
	return nil
}

var _ Store = (*Fallback)(nil)
