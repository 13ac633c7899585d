package core

import "testing"

func testCatalog() Catalog {
	return Catalog{
		{ID: "espresso", Name: "Espresso", Icon: "☕", Price: Money{Cents: 250}},
		{ID: "latte", Name: "Latte", Icon: "🥛", Price: Money{Cents: 450}},
	}
}

func TestGetOrCreateIdempotent(t *testing.T) {
	l := Ledger{}
	a := l.GetOrCreate("2025-06-01")
	b := l.GetOrCreate("2025-06-01")
	if a != b {
		t.Fatalf("expected the same entry for the same date")
	}
	if len(l) != 1 {
		t.Fatalf("expected one entry, got %d", len(l))
	}
}

func TestAdjustCountFloorsAtZero(t *testing.T) {
	l := Ledger{}
	cat := testCatalog()

	// Decrement an absent count: stays at zero.
	entry := l.AdjustCount("2025-06-01", "espresso", -1, cat)
	if got := entry.Counts["espresso"]; got != 0 {
		t.Fatalf("expected 0 after decrement from zero, got %d", got)
	}

	cases := []struct {
		delta int
		want  int
	}{
		{+1, 1},
		{+1, 2},
		{-1, 1},
		{-5, 0},
		{+1, 1},
	}
	for i, tc := range cases {
		entry = l.AdjustCount("2025-06-01", "espresso", tc.delta, cat)
		if got := entry.Counts["espresso"]; got != tc.want {
			t.Fatalf("case %d expected count %d, got %d", i, tc.want, got)
		}
		if got := entry.Counts["espresso"]; got < 0 {
			t.Fatalf("case %d observed negative count %d", i, got)
		}
	}
}

func TestAdjustCountRecomputesTotalCost(t *testing.T) {
	l := Ledger{}
	cat := testCatalog()

	l.AdjustCount("2025-06-01", "espresso", 1, cat)
	entry := l.AdjustCount("2025-06-01", "espresso", 1, cat)
	if entry.TotalCost.Cents != 500 {
		t.Fatalf("expected 500 cents (2 espresso), got %d", entry.TotalCost.Cents)
	}

	entry = l.AdjustCount("2025-06-01", "latte", 1, cat)
	if entry.TotalCost.Cents != 950 {
		t.Fatalf("expected 950 cents, got %d", entry.TotalCost.Cents)
	}

	// Orphaned item ids price at zero rather than failing.
	entry = l.AdjustCount("2025-06-01", "ghost", 3, cat)
	if entry.TotalCost.Cents != 950 {
		t.Fatalf("expected orphan to contribute zero, got %d", entry.TotalCost.Cents)
	}
}

func TestRepriceAll(t *testing.T) {
	l := Ledger{}
	cat := testCatalog()
	l.AdjustCount("2025-06-01", "espresso", 2, cat)

	// Price change: the same day recomputes at the new price even though
	// the purchases happened at the old one.
	cat[0].Price = Money{Cents: 300}
	l.RepriceAll(cat)
	if got := l["2025-06-01"].TotalCost.Cents; got != 600 {
		t.Fatalf("expected 600 cents after reprice, got %d", got)
	}

	// Idempotent: a second pass with the same catalog changes nothing.
	l.RepriceAll(cat)
	if got := l["2025-06-01"].TotalCost.Cents; got != 600 {
		t.Fatalf("expected reprice to be idempotent, got %d", got)
	}
}

func TestRepriceAfterCatalogDelete(t *testing.T) {
	l := Ledger{}
	cat := testCatalog()
	l.AdjustCount("2025-06-01", "espresso", 2, cat)

	cat = cat.Remove("espresso")
	l.RepriceAll(cat)

	entry := l["2025-06-01"]
	if got := entry.Counts["espresso"]; got != 2 {
		t.Fatalf("history should keep the count, got %d", got)
	}
	if entry.TotalCost.Cents != 0 {
		t.Fatalf("deleted item should price at zero, got %d", entry.TotalCost.Cents)
	}
}

func TestRemoveEntry(t *testing.T) {
	l := Ledger{}
	l.GetOrCreate("2025-06-01")
	l.Remove("2025-06-01")
	if len(l) != 0 {
		t.Fatalf("expected empty ledger, got %d entries", len(l))
	}
	// No-op on a missing date.
	l.Remove("2025-06-02")
}

func TestCatalogUpsertAndRemove(t *testing.T) {
	cat := testCatalog()

	cat = cat.Upsert(CatalogItem{ID: "espresso", Name: "Double Espresso", Price: Money{Cents: 350}})
	if len(cat) != 2 {
		t.Fatalf("upsert of existing id should not grow the catalog, got %d", len(cat))
	}
	if got := cat.PriceOf("espresso").Cents; got != 350 {
		t.Fatalf("expected updated price 350, got %d", got)
	}

	cat = cat.Upsert(CatalogItem{ID: "mocha", Name: "Mocha", Price: Money{Cents: 500}})
	if len(cat) != 3 {
		t.Fatalf("expected 3 items after insert, got %d", len(cat))
	}

	cat = cat.Remove("latte")
	if _, ok := cat.Find("latte"); ok {
		t.Fatalf("latte should be gone")
	}
	if got := cat.PriceOf("latte").Cents; got != 0 {
		t.Fatalf("missing item should price at zero, got %d", got)
	}
	if got := cat.NameOf("latte"); got != "latte" {
		t.Fatalf("missing item should fall back to its id, got %q", got)
	}
}

func TestCatalogItemValidate(t *testing.T) {
	cases := []struct {
		item CatalogItem
		ok   bool
	}{
		{CatalogItem{ID: "a", Name: "Flat White", Price: Money{Cents: 400}}, true},
		{CatalogItem{ID: "a", Name: "Free Water", Price: Money{Cents: 0}}, true},
		{CatalogItem{ID: "a", Name: "", Price: Money{Cents: 400}}, false},
		{CatalogItem{ID: "a", Name: "   ", Price: Money{Cents: 400}}, false},
		{CatalogItem{ID: "a", Name: "x", Price: Money{Cents: -1}}, false},
	}
	for i, tc := range cases {
		err := tc.item.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNormalizeMalformedState(t *testing.T) {
	s := AppState{
		Ledger: Ledger{
			"2025-06-01": {Counts: map[string]int{"espresso": -3, "latte": 1}},
			"not-a-date": {Counts: map[string]int{"espresso": 1}},
			"2025-06-02": nil,
		},
	}
	s = s.Normalize()

	if len(s.Catalog) == 0 {
		t.Fatalf("missing catalog should fall back to defaults")
	}
	if s.Unlocked == nil {
		t.Fatalf("missing unlocked set should become empty slice")
	}
	if _, ok := s.Ledger["not-a-date"]; ok {
		t.Fatalf("invalid date keys should be dropped")
	}
	if _, ok := s.Ledger["2025-06-02"]; ok {
		t.Fatalf("nil entries should be dropped")
	}
	entry := s.Ledger["2025-06-01"]
	if entry.Date != "2025-06-01" {
		t.Fatalf("entry date should be rewritten from the key, got %q", entry.Date)
	}
	if entry.Counts["espresso"] != 0 {
		t.Fatalf("negative counts should floor at zero, got %d", entry.Counts["espresso"])
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := NewAppState()
	s.Ledger.AdjustCount("2025-06-01", "espresso", 1, s.Catalog)

	c := s.Clone()
	c.Ledger.AdjustCount("2025-06-01", "espresso", 5, c.Catalog)
	c.Unlocked = append(c.Unlocked, "first_coffee")

	if got := s.Ledger["2025-06-01"].Counts["espresso"]; got != 1 {
		t.Fatalf("clone mutation leaked into source, count %d", got)
	}
	if len(s.Unlocked) != 0 {
		t.Fatalf("clone mutation leaked into unlocked set")
	}
}
