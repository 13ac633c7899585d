package core

import (
	"sort"
	"time"
)

// Aggregate views over the ledger. Everything in this file is a pure
// read: no function mutates the ledger or the catalog.

// Totals holds all-time sums across every ledger entry.
type Totals struct {
	TotalCount int
	TotalSpend Money
	Breakdown  map[string]int
}

// ComputeTotals sums counts and spend across the whole ledger. The
// breakdown keeps ids of deleted catalog items; history survives the
// catalog.
func ComputeTotals(ledger Ledger) Totals {
	t := Totals{Breakdown: map[string]int{}}
	for _, entry := range ledger {
		for id, n := range entry.Counts {
			t.TotalCount += n
			t.Breakdown[id] += n
		}
		t.TotalSpend = t.TotalSpend.Add(entry.TotalCost)
	}
	return t
}

// WindowCount sums counts of entries whose calendar date is >= since
// (inclusive). Use WeekStart/MonthStart to derive the window bound.
func WindowCount(ledger Ledger, since DateKey) int {
	count := 0
	for date, entry := range ledger {
		if date.Before(since) {
			continue
		}
		count += entry.TotalCount()
	}
	return count
}

// WeekStart returns the key seven days before now.
func WeekStart(now time.Time) DateKey {
	return DateKeyFor(now.AddDate(0, 0, -7))
}

// MonthStart returns the key of the first day of now's month.
func MonthStart(now time.Time) DateKey {
	return DateKeyFor(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()))
}

// Averages holds per-active-day means.
type Averages struct {
	AvgCount float64
	AvgSpend float64
}

// DailyAverage divides the all-time totals by the number of active days
// (days with at least one non-zero count). With no active days the
// denominator defaults to 1, so an empty ledger yields zero averages
// rather than a division by zero.
func DailyAverage(ledger Ledger) Averages {
	t := ComputeTotals(ledger)
	activeDays := 0
	for _, entry := range ledger {
		if entry.TotalCount() > 0 {
			activeDays++
		}
	}
	if activeDays == 0 {
		activeDays = 1
	}
	return Averages{
		AvgCount: float64(t.TotalCount) / float64(activeDays),
		AvgSpend: t.TotalSpend.Dollars() / float64(activeDays),
	}
}

// Favorite returns the item id with the highest all-time count, or ""
// for an empty breakdown. Ties resolve to whichever id the map iteration
// meets first; the tie-break is unspecified, not a guaranteed rule.
func Favorite(breakdown map[string]int) string {
	best := ""
	bestCount := 0
	for id, n := range breakdown {
		if n > bestCount {
			best = id
			bestCount = n
		}
	}
	return best
}

// VarietyCount returns the number of distinct items ever consumed.
func VarietyCount(breakdown map[string]int) int {
	n := 0
	for _, count := range breakdown {
		if count > 0 {
			n++
		}
	}
	return n
}

// RecentHistory returns entries sorted by date descending, skipping days
// whose counts are all zero, truncated to limit.
func RecentHistory(ledger Ledger, limit int) []DailyEntry {
	out := make([]DailyEntry, 0, len(ledger))
	for _, entry := range ledger {
		if entry.TotalCount() == 0 {
			continue
		}
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[j].Date.Before(out[i].Date)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
