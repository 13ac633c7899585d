package core

// Ledger is the day-indexed record of consumption. It is a set keyed by
// date; iteration order carries no meaning.
type Ledger map[DateKey]*DailyEntry

// GetOrCreate returns the entry for a date, inserting a zero-valued one
// the first time that date is touched. Idempotent per date.
func (l Ledger) GetOrCreate(date DateKey) *DailyEntry {
	if entry, ok := l[date]; ok {
		return entry
	}
	entry := &DailyEntry{Date: date, Counts: map[string]int{}}
	l[date] = entry
	return entry
}

// AdjustCount adds delta (typically ±1) to an item's count for the given
// date, flooring at zero, then recomputes the entry's total cost from
// scratch against the current catalog. Decrementing from zero stays at
// zero; it is not an error.
func (l Ledger) AdjustCount(date DateKey, itemID string, delta int, catalog Catalog) *DailyEntry {
	entry := l.GetOrCreate(date)
	entry.Counts[itemID] += delta
	if entry.Counts[itemID] < 0 {
		entry.Counts[itemID] = 0
	}
	entry.recalculate(catalog)
	return entry
}

// Remove deletes the entry for a date; no-op when absent.
func (l Ledger) Remove(date DateKey) {
	delete(l, date)
}

// RepriceAll recomputes every entry's total cost against the current
// price table. Historical day costs float with current catalog prices;
// they are not a record of price at purchase time. That is the tracker's
// documented policy, not an accident of implementation.
func (l Ledger) RepriceAll(catalog Catalog) {
	for _, entry := range l {
		entry.recalculate(catalog)
	}
}

// recalculate rebuilds TotalCost as Σ count×price over the whole counts
// map. A full recompute on every mutation keeps the invariant exact with
// no incremental drift. Items no longer in the catalog price at zero.
func (e *DailyEntry) recalculate(catalog Catalog) {
	total := Money{}
	for id, n := range e.Counts {
		total = total.Add(catalog.PriceOf(id).Mul(n))
	}
	e.TotalCost = total
}
