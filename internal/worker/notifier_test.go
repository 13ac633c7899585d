package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

type journaled struct {
	ruleID string
	icon   string
}

type fakeJournal struct {
	entries []journaled
	err     error
}

func (f *fakeJournal) JournalUnlock(_ context.Context, ruleID, name, icon string, unlockedAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, journaled{ruleID: ruleID, icon: icon})
	return nil
}

func TestHandleUnlockJournals(t *testing.T) {
	j := &fakeJournal{}
	n := NewNotifier(j)

	u := Unlock{RuleID: "first_coffee", Name: "First Sip", Icon: "🎉", UnlockedAt: time.Now()}
	if err := n.HandleUnlock(context.Background(), u); err != nil {
		t.Fatalf("HandleUnlock failed: %v", err)
	}
	if len(j.entries) != 1 || j.entries[0].ruleID != "first_coffee" {
		t.Errorf("unexpected journal entries %v", j.entries)
	}
	if j.entries[0].icon != "🎉" {
		t.Errorf("icon should reach the journal, got %q", j.entries[0].icon)
	}
	if n.Processed() != 1 {
		t.Errorf("processed = %d", n.Processed())
	}
}

func TestHandleUnlockDropsEmptyRuleID(t *testing.T) {
	j := &fakeJournal{}
	n := NewNotifier(j)

	if err := n.HandleUnlock(context.Background(), Unlock{Name: "nameless"}); err != nil {
		t.Fatalf("expected nil error for malformed payload, got %v", err)
	}
	if len(j.entries) != 0 {
		t.Error("malformed payload should not be journaled")
	}
	if n.Processed() != 0 {
		t.Error("dropped message must not count as processed")
	}
}

func TestHandleUnlockPropagatesJournalError(t *testing.T) {
	j := &fakeJournal{err: errors.New("disk full")}
	n := NewNotifier(j)

	err := n.HandleUnlock(context.Background(), Unlock{RuleID: "coffee_10"})
	if err == nil {
		t.Fatal("expected error to propagate for requeue")
	}
}

func TestHandleUnlockDefaultsZeroTimestamp(t *testing.T) {
	j := &fakeJournal{}
	n := NewNotifier(j)

	if err := n.HandleUnlock(context.Background(), Unlock{RuleID: "spend_50"}); err != nil {
		t.Fatalf("HandleUnlock failed: %v", err)
	}
	if len(j.entries) != 1 {
		t.Fatal("expected entry journaled")
	}
}
