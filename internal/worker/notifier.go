// Package worker contains the notifier worker: it drains unlock
// messages from the broker and records them in the local journal.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	applog "coffeecounter/internal/log"
)

// Journal is the persistence the worker writes unlock events to.
type Journal interface {
	JournalUnlock(ctx context.Context, ruleID, name, icon string, unlockedAt time.Time) error
}

// Unlock is the subset of the broker message the worker cares about.
type Unlock struct {
	RuleID     string
	Name       string
	Icon       string
	UnlockedAt time.Time
}

// Notifier journals unlock events. The journal insert is idempotent per
// rule id, so redelivered messages are harmless.
type Notifier struct {
	journal Journal

	// processed counts successfully journaled messages for the
	// periodic status log. Read from the heartbeat goroutine.
	processed atomic.Int64
}

// NewNotifier creates a worker writing to the given journal.
func NewNotifier(journal Journal) *Notifier {
	return &Notifier{journal: journal}
}

// HandleUnlock records one unlock event. Returning an error requeues
// the message, so only transient failures should propagate.
func (n *Notifier) HandleUnlock(ctx context.Context, u Unlock) error {
	if u.RuleID == "" {
		// Malformed business payload: log and drop, a requeue can
		// never fix it.
		slog.WarnContext(ctx, "Dropping unlock message without rule id", "name", u.Name)
		return nil
	}

	unlockedAt := u.UnlockedAt
	if unlockedAt.IsZero() {
		unlockedAt = time.Now()
	}

	if err := n.journal.JournalUnlock(ctx, u.RuleID, u.Name, u.Icon, unlockedAt); err != nil {
		return fmt.Errorf("journal unlock %s: %w", u.RuleID, err)
	}

	n.processed.Add(1)
	slog.InfoContext(ctx, "Achievement unlock recorded",
		applog.FieldRuleID, u.RuleID,
		"name", u.Name,
		"unlocked_at", unlockedAt)
	return nil
}

// Processed returns how many messages were journaled since startup.
func (n *Notifier) Processed() int64 {
	return n.processed.Load()
}

// LogStatus emits a heartbeat line, called from the worker's ticker.
func (n *Notifier) LogStatus(ctx context.Context) {
	slog.InfoContext(ctx, "Notifier status", "processed", n.processed.Load())
}
