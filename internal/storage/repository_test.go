package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"coffeecounter/internal/core"
	"coffeecounter/internal/store"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "coffee.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestLoadFreshDatabase(t *testing.T) {
	repo := testRepo(t)
	if _, err := repo.Load(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on fresh database, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	state := core.NewAppState()
	state.Ledger.AdjustCount("2025-06-01", "espresso", 2, state.Catalog)
	state.Ledger.AdjustCount("2025-06-02", "latte", 1, state.Catalog)
	state.Unlocked = []string{"first_coffee", "daily_5"}

	if err := repo.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Catalog) != len(state.Catalog) {
		t.Fatalf("expected %d catalog items, got %d", len(state.Catalog), len(got.Catalog))
	}
	entry, ok := got.Ledger["2025-06-01"]
	if !ok {
		t.Fatalf("missing ledger entry")
	}
	if entry.Counts["espresso"] != 2 || entry.TotalCost.Cents != 500 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if len(got.Unlocked) != 2 || got.Unlocked[0] != "first_coffee" || got.Unlocked[1] != "daily_5" {
		t.Fatalf("unlock order not preserved: %v", got.Unlocked)
	}
}

func TestSaveIsLastWriterWins(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	first := core.NewAppState()
	first.Ledger.AdjustCount("2025-06-01", "espresso", 5, first.Catalog)
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := core.NewAppState()
	second.Ledger.AdjustCount("2025-06-02", "latte", 1, second.Catalog)
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := got.Ledger["2025-06-01"]; ok {
		t.Fatalf("old document should be fully replaced")
	}
	if _, ok := got.Ledger["2025-06-02"]; !ok {
		t.Fatalf("new document missing")
	}
}

func TestJournalUnlockIdempotent(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := repo.JournalUnlock(ctx, "first_coffee", "First Sip", "🎉", at); err != nil {
			t.Fatalf("journal: %v", err)
		}
	}
	if err := repo.JournalUnlock(ctx, "daily_5", "Caffeine Rush", "⚡", at.Add(time.Hour)); err != nil {
		t.Fatalf("journal: %v", err)
	}

	entries, err := repo.Journal(ctx)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 journal entries, got %d", len(entries))
	}
	if entries[0].RuleID != "first_coffee" || entries[1].RuleID != "daily_5" {
		t.Fatalf("unexpected journal order: %+v", entries)
	}
	if entries[0].Icon != "🎉" {
		t.Fatalf("expected the icon to round-trip, got %q", entries[0].Icon)
	}
}
