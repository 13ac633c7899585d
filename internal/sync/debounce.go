// Package sync schedules best-effort persistence: rapid bursts of
// mutations coalesce into a single outbound write after a quiet period.
package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"coffeecounter/internal/core"
	"coffeecounter/internal/store"
)

// Status is the transient persistence signal surfaced to the
// presentation layer. A failed save never rolls back in-memory state;
// it only shows up here.
type Status struct {
	LastSave  time.Time
	LastError error
	Pending   bool
}

// Debouncer is an explicit write-coalescing queue: at most one pending
// AppState snapshot and at most one scheduled flush. A new snapshot
// replaces the pending one without rescheduling the flush, so a burst
// of N mutations produces one write carrying the latest state.
type Debouncer struct {
	st    store.Store
	quiet time.Duration

	mu      sync.Mutex
	pending *core.AppState
	timer   *time.Timer
	status  Status
	closed  bool

	// flushed signals each completed flush; tests use it to wait
	// without sleeping past the quiet period.
	flushed chan struct{}
}

func NewDebouncer(st store.Store, quiet time.Duration) *Debouncer {
	return &Debouncer{
		st:      st,
		quiet:   quiet,
		flushed: make(chan struct{}, 1),
	}
}

// Schedule queues a snapshot for persistence. The snapshot supersedes
// any older pending one; the quiet-period timer is started only when no
// flush is already scheduled.
func (d *Debouncer) Schedule(state core.AppState) {
	snapshot := state.Clone()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending = &snapshot
	d.status.Pending = true
	if d.timer == nil {
		d.timer = time.AfterFunc(d.quiet, d.flushScheduled)
	}
}

func (d *Debouncer) flushScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	d.flush(ctx)
}

// Flush writes any pending snapshot immediately and returns the save
// error, if any. No-op when nothing is pending.
func (d *Debouncer) Flush(ctx context.Context) error {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	return d.flush(ctx)
}

func (d *Debouncer) flush(ctx context.Context) error {
	d.mu.Lock()
	snapshot := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if snapshot == nil {
		return nil
	}

	err := d.st.Save(ctx, *snapshot)

	d.mu.Lock()
	d.status = Status{LastSave: time.Now(), LastError: err, Pending: d.pending != nil}
	d.mu.Unlock()

	if err != nil {
		slog.ErrorContext(ctx, "Persistence save failed", "error", err)
	}

	select {
	case d.flushed <- struct{}{}:
	default:
	}
	return err
}

// Status returns the latest persistence outcome.
func (d *Debouncer) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Flushed exposes the flush signal channel.
func (d *Debouncer) Flushed() <-chan struct{} {
	return d.flushed
}

// Close performs a final flush and stops accepting snapshots.
func (d *Debouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	return d.flush(ctx)
}
