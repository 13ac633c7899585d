package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"coffeecounter/internal/achievements"
	"coffeecounter/internal/amqp"
	"coffeecounter/internal/core"
	appsync "coffeecounter/internal/sync"
)

type recordingSaver struct {
	scheduled []core.AppState
	status    appsync.Status
}

func (s *recordingSaver) Schedule(state core.AppState) {
	s.scheduled = append(s.scheduled, state.Clone())
}

func (s *recordingSaver) Status() appsync.Status { return s.status }

type recordingPublisher struct {
	published []*amqp.UnlockMessage
	err       error
}

func (p *recordingPublisher) PublishUnlock(_ context.Context, msg *amqp.UnlockMessage) error {
	p.published = append(p.published, msg)
	return p.err
}

func fixedClock() func() time.Time {
	at := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func newTestTracker(t *testing.T) (*Tracker, *recordingSaver, *recordingPublisher) {
	t.Helper()
	saver := &recordingSaver{}
	pub := &recordingPublisher{}
	tr := New(core.NewAppState(), achievements.NewEngine(), saver, pub, WithClock(fixedClock()))
	return tr, saver, pub
}

func TestIncrementUpdatesTodayAndSchedulesSave(t *testing.T) {
	tr, saver, _ := newTestTracker(t)
	ctx := context.Background()

	entry, unlocked := tr.Increment(ctx, "espresso")

	if got := entry.Counts["espresso"]; got != 1 {
		t.Fatalf("expected espresso count 1, got %d", got)
	}
	if entry.TotalCost.Cents != 250 {
		t.Errorf("expected total cost 250 cents, got %d", entry.TotalCost.Cents)
	}
	if len(unlocked) == 0 {
		t.Error("expected first coffee to unlock at least one achievement")
	}
	if len(saver.scheduled) != 1 {
		t.Fatalf("expected 1 scheduled save, got %d", len(saver.scheduled))
	}
	if got := saver.scheduled[0].Ledger["2026-03-14"].Counts["espresso"]; got != 1 {
		t.Errorf("scheduled snapshot missing the mutation, count = %d", got)
	}
}

func TestDecrementFloorsAtZero(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()

	entry, _ := tr.Decrement(ctx, "latte")
	if got := entry.Counts["latte"]; got != 0 {
		t.Fatalf("expected count floored at 0, got %d", got)
	}
}

func TestUnlocksArePublishedOnce(t *testing.T) {
	tr, _, pub := newTestTracker(t)
	ctx := context.Background()

	tr.Increment(ctx, "espresso")
	first := len(pub.published)
	if first == 0 {
		t.Fatal("expected unlock notifications after first coffee")
	}

	tr.Increment(ctx, "espresso")
	tr.Decrement(ctx, "espresso")
	for _, msg := range pub.published[first:] {
		if msg.RuleID == "first_coffee" {
			t.Error("first_coffee published again after it was already unlocked")
		}
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	saver := &recordingSaver{}
	pub := &recordingPublisher{err: errors.New("broker down")}
	tr := New(core.NewAppState(), achievements.NewEngine(), saver, pub, WithClock(fixedClock()))

	entry, unlocked := tr.Increment(context.Background(), "espresso")
	if entry.Counts["espresso"] != 1 {
		t.Fatal("mutation rolled back on publish failure")
	}
	if len(unlocked) == 0 {
		t.Error("unlock list should not depend on publish outcome")
	}
	if len(saver.scheduled) != 1 {
		t.Error("save should still be scheduled on publish failure")
	}
}

func TestNilPublisherIsTolerated(t *testing.T) {
	saver := &recordingSaver{}
	tr := New(core.NewAppState(), achievements.NewEngine(), saver, nil, WithClock(fixedClock()))

	if _, unlocked := tr.Increment(context.Background(), "mocha"); len(unlocked) == 0 {
		t.Fatal("expected unlocks with no broker configured")
	}
}

func TestAddItemGeneratesIDAndValidates(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()

	item, err := tr.AddItem(ctx, "Flat White", "🥛", core.Money{Cents: 425})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if item.ID == "" {
		t.Error("expected a generated id")
	}
	if _, ok := tr.State().Catalog.Find(item.ID); !ok {
		t.Error("added item not in catalog")
	}

	if _, err := tr.AddItem(ctx, "   ", "x", core.Money{}); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("expected ErrEmptyName for blank name, got %v", err)
	}
}

func TestUpdateItemRepricesHistory(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()

	tr.Increment(ctx, "espresso")
	tr.Increment(ctx, "espresso")

	if _, err := tr.UpdateItem(ctx, "espresso", "Espresso", "☕", core.Money{Cents: 300}); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	state := tr.State()
	entry := state.Ledger["2026-03-14"]
	if entry.TotalCost.Cents != 600 {
		t.Errorf("expected repriced total 600 cents, got %d", entry.TotalCost.Cents)
	}

	if _, err := tr.UpdateItem(ctx, "nope", "X", "", core.Money{}); !errors.Is(err, core.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestSetPriceRepricesAllDays(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()

	tr.Increment(ctx, "latte")
	if err := tr.SetPrice(ctx, "latte", core.Money{Cents: 500}); err != nil {
		t.Fatalf("SetPrice failed: %v", err)
	}
	if got := tr.State().Ledger["2026-03-14"].TotalCost.Cents; got != 500 {
		t.Errorf("expected repriced cost 500, got %d", got)
	}

	if err := tr.SetPrice(ctx, "latte", core.Money{Cents: -1}); err == nil {
		t.Error("expected validation error for negative price")
	}
	if err := tr.SetPrice(ctx, "ghost", core.Money{Cents: 100}); !errors.Is(err, core.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestRemoveItemKeepsHistoryAtZeroPrice(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()

	tr.Increment(ctx, "mocha")
	if err := tr.RemoveItem(ctx, "mocha"); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}

	state := tr.State()
	if _, ok := state.Catalog.Find("mocha"); ok {
		t.Error("item still in catalog after removal")
	}
	entry := state.Ledger["2026-03-14"]
	if entry.Counts["mocha"] != 1 {
		t.Error("history count lost on item removal")
	}
	if entry.TotalCost.Cents != 0 {
		t.Errorf("orphaned item should reprice at zero, got %d cents", entry.TotalCost.Cents)
	}
}

func TestResetTodayKeepsUnlocks(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()

	tr.Increment(ctx, "espresso")
	if !tr.State().HasUnlocked("first_coffee") {
		t.Fatal("precondition: first_coffee unlocked")
	}

	tr.ResetToday(ctx)
	state := tr.State()
	if _, ok := state.Ledger["2026-03-14"]; ok {
		t.Error("today's entry should be gone")
	}
	if !state.HasUnlocked("first_coffee") {
		t.Error("unlocks must survive a same-day reset")
	}
}

func TestResetAllWipesEverything(t *testing.T) {
	tr, saver, _ := newTestTracker(t)
	ctx := context.Background()

	tr.Increment(ctx, "espresso")
	tr.ResetAll(ctx)

	state := tr.State()
	if len(state.Ledger) != 0 || len(state.Unlocked) != 0 {
		t.Error("expected empty ledger and unlocked set")
	}
	if len(state.Catalog) != len(core.DefaultCatalog()) {
		t.Error("expected default catalog after full reset")
	}
	if got := saver.scheduled[len(saver.scheduled)-1]; len(got.Ledger) != 0 {
		t.Error("reset state was not scheduled for save")
	}
}

func TestDashboardAggregates(t *testing.T) {
	tr, saver, _ := newTestTracker(t)
	ctx := context.Background()

	tr.Increment(ctx, "espresso")
	tr.Increment(ctx, "espresso")
	tr.Increment(ctx, "latte")
	saver.status = appsync.Status{Pending: true}

	d := tr.Dashboard()
	if d.Date != "2026-03-14" {
		t.Errorf("unexpected date %s", d.Date)
	}
	if d.TodayCount != 3 || d.TotalCount != 3 {
		t.Errorf("expected 3 today and total, got %d/%d", d.TodayCount, d.TotalCount)
	}
	if d.TodaySpend != 9.50 {
		t.Errorf("expected today spend 9.50, got %v", d.TodaySpend)
	}
	if d.Favorite == nil || d.Favorite.ID != "espresso" {
		t.Errorf("expected espresso favorite, got %+v", d.Favorite)
	}
	if d.WeekCount != 3 || d.MonthCount != 3 {
		t.Errorf("window counts: week %d month %d", d.WeekCount, d.MonthCount)
	}
	if !d.Save.Pending {
		t.Error("expected pending save status surfaced")
	}
	if len(d.History) != 1 || d.History[0].Count != 3 {
		t.Errorf("unexpected history %+v", d.History)
	}

	var espresso *CatalogEntry
	for i := range d.Catalog {
		if d.Catalog[i].ID == "espresso" {
			espresso = &d.Catalog[i]
		}
	}
	if espresso == nil || espresso.TodayCount != 2 {
		t.Errorf("catalog entry today count wrong: %+v", espresso)
	}
}

func TestExportIsDeepCopy(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()

	tr.Increment(ctx, "espresso")
	doc := tr.Export("alice")

	if doc.Account != "alice" {
		t.Errorf("unexpected account %q", doc.Account)
	}
	if doc.ExportedAt.IsZero() {
		t.Error("exportedAt not set")
	}
	if len(doc.Rules) != len(doc.Unlocked) {
		t.Errorf("rules/unlocked mismatch: %d vs %d", len(doc.Rules), len(doc.Unlocked))
	}

	tr.Increment(ctx, "espresso")
	if doc.Ledger["2026-03-14"].Counts["espresso"] != 1 {
		t.Error("export document mutated by later increment")
	}
}

func TestUnlockListenerFires(t *testing.T) {
	saver := &recordingSaver{}
	var seen []string
	tr := New(core.NewAppState(), achievements.NewEngine(), saver, nil,
		WithClock(fixedClock()),
		WithUnlockListener(func(r achievements.Rule) { seen = append(seen, r.ID) }))

	tr.Increment(context.Background(), "espresso")
	found := false
	for _, id := range seen {
		if id == "first_coffee" {
			found = true
		}
	}
	if !found {
		t.Errorf("listener never saw first_coffee, got %v", seen)
	}
}
