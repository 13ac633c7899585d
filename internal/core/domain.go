package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyName     = errors.New("empty item name")
	ErrNegativePrice = errors.New("negative price")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidDate   = errors.New("invalid date key")
	ErrItemNotFound  = errors.New("catalog item not found")
)

// DateKey is a calendar day in YYYY-MM-DD form, local time zone.
// Ledger entries are keyed by it; comparisons are by calendar date,
// never by exact timestamp.
type DateKey string

const dateLayout = "2006-01-02"

// Today returns the date key for the current local day.
func Today() DateKey {
	return DateKeyFor(time.Now())
}

// DateKeyFor converts a wall-clock time to its local calendar date key.
func DateKeyFor(t time.Time) DateKey {
	return DateKey(t.Local().Format(dateLayout))
}

// Time parses the key back to midnight local time.
func (d DateKey) Time() (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, string(d), time.Local)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

func (d DateKey) Validate() error {
	_, err := d.Time()
	return err
}

// Before reports whether d is an earlier calendar day than o.
// Keys are ISO dates, so lexicographic order is date order.
func (d DateKey) Before(o DateKey) bool {
	return string(d) < string(o)
}

// CatalogItem is a user-editable definition of a trackable drink.
type CatalogItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Price Money  `json:"unitPrice"`
}

func (i CatalogItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if len(i.Name) > 100 {
		return errors.New("item name too long (max 100 characters)")
	}
	return i.Price.Validate()
}

// Catalog is the ordered set of trackable items. Order is the user's
// display order; lookups go by id.
type Catalog []CatalogItem

// Find returns the item with the given id.
func (c Catalog) Find(id string) (CatalogItem, bool) {
	for _, it := range c {
		if it.ID == id {
			return it, true
		}
	}
	return CatalogItem{}, false
}

// PriceOf returns the current unit price for an item. Missing items
// resolve to zero, never an error: deleting a catalog item must not
// poison historical ledger entries that still reference its id.
func (c Catalog) PriceOf(id string) Money {
	if it, ok := c.Find(id); ok {
		return it.Price
	}
	return Money{}
}

// NameOf returns the display name for an item, falling back to the raw
// id for orphaned references.
func (c Catalog) NameOf(id string) string {
	if it, ok := c.Find(id); ok {
		return it.Name
	}
	return id
}

// Upsert replaces the item with a matching id, or appends it.
func (c Catalog) Upsert(item CatalogItem) Catalog {
	for i, it := range c {
		if it.ID == item.ID {
			c[i] = item
			return c
		}
	}
	return append(c, item)
}

// Remove deletes the item with the given id; no-op when absent.
// Ledger history referencing the id is deliberately left untouched.
func (c Catalog) Remove(id string) Catalog {
	for i, it := range c {
		if it.ID == id {
			return append(c[:i], c[i+1:]...)
		}
	}
	return c
}

// DailyEntry records one calendar day of consumption: per-item counts
// plus the cost derived from the current catalog price table.
type DailyEntry struct {
	Date      DateKey        `json:"date"`
	Counts    map[string]int `json:"counts"`
	TotalCost Money          `json:"totalCost"`
}

// TotalCount sums all item counts for the day.
func (e *DailyEntry) TotalCount() int {
	total := 0
	for _, n := range e.Counts {
		total += n
	}
	return total
}

// AppState is the unit of persistence: the whole tracker document,
// saved and loaded as one.
type AppState struct {
	Catalog  Catalog  `json:"catalog"`
	Ledger   Ledger   `json:"ledger"`
	Unlocked []string `json:"unlocked"`
}

// DefaultCatalog returns the built-in drink set used for fresh state and
// as the merge fallback for malformed persisted documents.
func DefaultCatalog() Catalog {
	return Catalog{
		{ID: "espresso", Name: "Espresso", Icon: "☕", Price: Money{Cents: 250}},
		{ID: "americano", Name: "Americano", Icon: "🫖", Price: Money{Cents: 300}},
		{ID: "latte", Name: "Latte", Icon: "🥛", Price: Money{Cents: 450}},
		{ID: "cappuccino", Name: "Cappuccino", Icon: "☕", Price: Money{Cents: 400}},
		{ID: "mocha", Name: "Mocha", Icon: "🍫", Price: Money{Cents: 500}},
		{ID: "cold_brew", Name: "Cold Brew", Icon: "🧊", Price: Money{Cents: 400}},
	}
}

// NewAppState returns a fresh state with the default catalog and an
// empty ledger.
func NewAppState() AppState {
	return AppState{
		Catalog:  DefaultCatalog(),
		Ledger:   Ledger{},
		Unlocked: []string{},
	}
}

// Normalize repairs a loaded state field by field: missing or corrupt
// sections fall back to defaults instead of failing the load. A partial
// document on disk is never a hard error.
func (s AppState) Normalize() AppState {
	if len(s.Catalog) == 0 {
		s.Catalog = DefaultCatalog()
	}
	if s.Ledger == nil {
		s.Ledger = Ledger{}
	}
	for date, entry := range s.Ledger {
		if entry == nil || date.Validate() != nil {
			delete(s.Ledger, date)
			continue
		}
		entry.Date = date
		if entry.Counts == nil {
			entry.Counts = map[string]int{}
		}
		for id, n := range entry.Counts {
			if n < 0 {
				entry.Counts[id] = 0
			}
		}
	}
	if s.Unlocked == nil {
		s.Unlocked = []string{}
	}
	return s
}

// HasUnlocked reports whether a rule id is already in the unlocked set.
func (s AppState) HasUnlocked(ruleID string) bool {
	for _, id := range s.Unlocked {
		if id == ruleID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, used to hand snapshots to the asynchronous
// persistence path without sharing mutable maps.
func (s AppState) Clone() AppState {
	out := AppState{
		Catalog:  append(Catalog(nil), s.Catalog...),
		Ledger:   make(Ledger, len(s.Ledger)),
		Unlocked: append([]string(nil), s.Unlocked...),
	}
	for date, entry := range s.Ledger {
		counts := make(map[string]int, len(entry.Counts))
		for id, n := range entry.Counts {
			counts[id] = n
		}
		out.Ledger[date] = &DailyEntry{Date: entry.Date, Counts: counts, TotalCost: entry.TotalCost}
	}
	return out
}
