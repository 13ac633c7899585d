// Package service owns the application state and orchestrates every
// mutation: ledger update first, then achievement evaluation, unlock
// notification and debounced persistence, all best-effort.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"coffeecounter/internal/achievements"
	"coffeecounter/internal/amqp"
	"coffeecounter/internal/core"
	applog "coffeecounter/internal/log"
	"coffeecounter/internal/store"
	appsync "coffeecounter/internal/sync"
)

// Saver is the debounced persistence queue the tracker schedules
// snapshots on.
type Saver interface {
	Schedule(state core.AppState)
	Status() appsync.Status
}

// UnlockPublisher pushes unlock notifications to the broker. May be nil
// when no broker is configured.
type UnlockPublisher interface {
	PublishUnlock(ctx context.Context, msg *amqp.UnlockMessage) error
}

// Tracker is the single owner of AppState. All reads and writes go
// through it; there are no ambient globals. A coarse mutex serializes
// HTTP-driven calls onto the domain's single logical timeline.
type Tracker struct {
	mu        sync.Mutex
	state     core.AppState
	engine    *achievements.Engine
	saver     Saver
	publisher UnlockPublisher

	historyLimit int
	now          func() time.Time
	onUnlock     func(achievements.Rule)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides wall-clock time, used by tests to pin "today".
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithHistoryLimit caps the recent-history view.
func WithHistoryLimit(limit int) Option {
	return func(t *Tracker) { t.historyLimit = limit }
}

// WithUnlockListener registers an in-process callback invoked for every
// newly unlocked rule, after state mutation.
func WithUnlockListener(fn func(achievements.Rule)) Option {
	return func(t *Tracker) { t.onUnlock = fn }
}

// New creates a tracker over an already-loaded state.
func New(state core.AppState, engine *achievements.Engine, saver Saver, publisher UnlockPublisher, opts ...Option) *Tracker {
	t := &Tracker{
		state:        state.Normalize(),
		engine:       engine,
		saver:        saver,
		publisher:    publisher,
		historyLimit: 30,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LoadState pulls the persisted document, treating a missing one as
// fresh empty state. Any malformed content has already been degraded to
// defaults by the store's Normalize pass.
func LoadState(ctx context.Context, st store.Store) (core.AppState, error) {
	state, err := st.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.InfoContext(ctx, "No persisted state, starting fresh")
			return core.NewAppState(), nil
		}
		return core.AppState{}, fmt.Errorf("load state: %w", err)
	}
	return state.Normalize(), nil
}

func (t *Tracker) today() core.DateKey {
	return core.DateKeyFor(t.now())
}

// afterMutation runs the post-mutation pipeline under the held lock:
// achievement evaluation, notification fan-out, save scheduling. The
// in-memory mutation is already visible; everything here is a side
// effect that must not fail it.
func (t *Tracker) afterMutation(ctx context.Context) []achievements.Rule {
	unlocked := t.engine.Evaluate(&t.state, t.today())
	for _, rule := range unlocked {
		t.notifyUnlock(ctx, rule)
	}
	t.saver.Schedule(t.state)
	return unlocked
}

func (t *Tracker) notifyUnlock(ctx context.Context, rule achievements.Rule) {
	if t.onUnlock != nil {
		t.onUnlock(rule)
	}
	if t.publisher == nil {
		slog.DebugContext(ctx, "No broker configured, skipping unlock notification", applog.FieldRuleID, rule.ID)
		return
	}
	msg := amqp.NewUnlockMessage(rule.ID, rule.Name, rule.Icon)
	if err := t.publisher.PublishUnlock(ctx, msg); err != nil {
		// Never fail the mutation over a notification.
		slog.ErrorContext(ctx, "Failed to publish unlock notification",
			applog.FieldRuleID, rule.ID, applog.FieldError, err)
	}
}

// Increment adds one of the given item to today's entry.
func (t *Tracker) Increment(ctx context.Context, itemID string) (core.DailyEntry, []achievements.Rule) {
	return t.adjust(ctx, itemID, +1)
}

// Decrement removes one of the given item from today's entry, flooring
// at zero.
func (t *Tracker) Decrement(ctx context.Context, itemID string) (core.DailyEntry, []achievements.Rule) {
	return t.adjust(ctx, itemID, -1)
}

func (t *Tracker) adjust(ctx context.Context, itemID string, delta int) (core.DailyEntry, []achievements.Rule) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.state.Ledger.AdjustCount(t.today(), itemID, delta, t.state.Catalog)
	unlocked := t.afterMutation(ctx)
	return *entry, unlocked
}

// AddItem creates a catalog item with a freshly generated id.
func (t *Tracker) AddItem(ctx context.Context, name, icon string, price core.Money) (core.CatalogItem, error) {
	item := core.CatalogItem{
		ID:    uuid.NewString(),
		Name:  name,
		Icon:  icon,
		Price: price,
	}
	if err := item.Validate(); err != nil {
		return core.CatalogItem{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Catalog = t.state.Catalog.Upsert(item)
	t.afterMutation(ctx)
	return item, nil
}

// UpdateItem edits a catalog item in place and reprices every ledger
// entry against the new table.
func (t *Tracker) UpdateItem(ctx context.Context, id, name, icon string, price core.Money) (core.CatalogItem, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, ok := t.state.Catalog.Find(id)
	if !ok {
		return core.CatalogItem{}, core.ErrItemNotFound
	}
	item := core.CatalogItem{ID: existing.ID, Name: name, Icon: icon, Price: price}
	if err := item.Validate(); err != nil {
		return core.CatalogItem{}, err
	}

	t.state.Catalog = t.state.Catalog.Upsert(item)
	t.state.Ledger.RepriceAll(t.state.Catalog)
	t.afterMutation(ctx)
	return item, nil
}

// SetPrice changes one item's unit price and reprices all history.
func (t *Tracker) SetPrice(ctx context.Context, id string, price core.Money) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.state.Catalog.Find(id)
	if !ok {
		return core.ErrItemNotFound
	}
	if err := price.Validate(); err != nil {
		return err
	}

	item.Price = price
	t.state.Catalog = t.state.Catalog.Upsert(item)
	t.state.Ledger.RepriceAll(t.state.Catalog)
	t.afterMutation(ctx)
	return nil
}

// RemoveItem deletes a catalog item. Ledger entries referencing the id
// keep their counts; future repricing values them at zero.
func (t *Tracker) RemoveItem(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.state.Catalog.Find(id); !ok {
		return core.ErrItemNotFound
	}
	t.state.Catalog = t.state.Catalog.Remove(id)
	t.state.Ledger.RepriceAll(t.state.Catalog)
	t.afterMutation(ctx)
	return nil
}

// ResetToday removes today's entry entirely.
func (t *Tracker) ResetToday(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Ledger.Remove(t.today())
	t.afterMutation(ctx)
}

// ResetAll wipes everything back to defaults. This is the one path that
// clears the unlocked set; achievement recomputation never does.
func (t *Tracker) ResetAll(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = core.NewAppState()
	// Deliberately skip achievement evaluation: a fresh state unlocks
	// nothing, and stale notifications would be noise.
	t.saver.Schedule(t.state)
}

// State returns a deep copy of the current state.
func (t *Tracker) State() core.AppState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// AchievementProgress reports every rule's standing for the grid view.
func (t *Tracker) AchievementProgress() []achievements.RuleProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.Progress(t.state, t.today())
}
