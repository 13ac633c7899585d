package service

import (
	"time"

	"coffeecounter/internal/core"
)

// Dashboard is the read model behind the main screen: today's tally,
// all-time aggregates and the persistence status banner, computed in
// one pass under the lock.
type Dashboard struct {
	Date       core.DateKey    `json:"date"`
	TodayCount int             `json:"todayCount"`
	TodaySpend float64         `json:"todaySpend"`
	TotalCount int             `json:"totalCount"`
	TotalSpend float64         `json:"totalSpend"`
	WeekCount  int             `json:"weekCount"`
	MonthCount int             `json:"monthCount"`
	AvgCount   float64         `json:"avgPerDay"`
	AvgSpend   float64         `json:"avgSpendPerDay"`
	Favorite   *FavoriteItem   `json:"favorite,omitempty"`
	Catalog    []CatalogEntry  `json:"catalog"`
	Breakdown  []BreakdownItem `json:"breakdown"`
	History    []HistoryDay    `json:"history"`
	Unlocked   int             `json:"unlockedCount"`
	Rules      int             `json:"ruleCount"`
	Save       SaveStatus      `json:"save"`
}

// CatalogEntry is a catalog item annotated with today's count.
type CatalogEntry struct {
	core.CatalogItem
	UnitPrice  float64 `json:"price"`
	TodayCount int     `json:"todayCount"`
}

// BreakdownItem is one slice of the all-time distribution. Name falls
// back to the raw id for items deleted from the catalog.
type BreakdownItem struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// FavoriteItem is the all-time most consumed item.
type FavoriteItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// HistoryDay is one row of the recent-history list.
type HistoryDay struct {
	Date  core.DateKey `json:"date"`
	Count int          `json:"count"`
	Spend float64      `json:"spend"`
}

// SaveStatus surfaces the debouncer's last outcome to the client.
type SaveStatus struct {
	Pending   bool      `json:"pending"`
	LastSave  time.Time `json:"lastSave"`
	LastError string    `json:"lastError,omitempty"`
}

// Dashboard assembles the full read model from the current state.
func (t *Tracker) Dashboard() Dashboard {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	today := core.DateKeyFor(now)
	totals := core.ComputeTotals(t.state.Ledger)
	averages := core.DailyAverage(t.state.Ledger)

	d := Dashboard{
		Date:       today,
		TotalCount: totals.TotalCount,
		TotalSpend: totals.TotalSpend.Dollars(),
		WeekCount:  core.WindowCount(t.state.Ledger, core.WeekStart(now)),
		MonthCount: core.WindowCount(t.state.Ledger, core.MonthStart(now)),
		AvgCount:   averages.AvgCount,
		AvgSpend:   averages.AvgSpend,
		Unlocked:   len(t.state.Unlocked),
		Rules:      len(t.engine.Rules()),
	}

	var todayCounts map[string]int
	if entry, ok := t.state.Ledger[today]; ok {
		todayCounts = entry.Counts
		d.TodayCount = entry.TotalCount()
		d.TodaySpend = entry.TotalCost.Dollars()
	}

	d.Catalog = make([]CatalogEntry, 0, len(t.state.Catalog))
	for _, item := range t.state.Catalog {
		d.Catalog = append(d.Catalog, CatalogEntry{
			CatalogItem: item,
			UnitPrice:   item.Price.Dollars(),
			TodayCount:  todayCounts[item.ID],
		})
	}

	if fav := core.Favorite(totals.Breakdown); fav != "" {
		d.Favorite = &FavoriteItem{
			ID:    fav,
			Name:  t.state.Catalog.NameOf(fav),
			Count: totals.Breakdown[fav],
		}
	}

	d.Breakdown = make([]BreakdownItem, 0, len(totals.Breakdown))
	for _, item := range t.state.Catalog {
		n := totals.Breakdown[item.ID]
		if n == 0 {
			continue
		}
		d.Breakdown = append(d.Breakdown, BreakdownItem{
			ID:      item.ID,
			Name:    item.Name,
			Count:   n,
			Percent: percent(n, totals.TotalCount),
		})
	}
	// Orphaned ids (items since deleted) still count toward history.
	for id, n := range totals.Breakdown {
		if _, ok := t.state.Catalog.Find(id); ok || n == 0 {
			continue
		}
		d.Breakdown = append(d.Breakdown, BreakdownItem{
			ID:      id,
			Name:    t.state.Catalog.NameOf(id),
			Count:   n,
			Percent: percent(n, totals.TotalCount),
		})
	}

	recent := core.RecentHistory(t.state.Ledger, t.historyLimit)
	d.History = make([]HistoryDay, 0, len(recent))
	for _, entry := range recent {
		d.History = append(d.History, HistoryDay{
			Date:  entry.Date,
			Count: entry.TotalCount(),
			Spend: entry.TotalCost.Dollars(),
		})
	}

	status := t.saver.Status()
	d.Save = SaveStatus{Pending: status.Pending, LastSave: status.LastSave}
	if status.LastError != nil {
		d.Save.LastError = status.LastError.Error()
	}
	return d
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// ExportDocument is the full-state download: the persisted document
// verbatim plus export metadata.
type ExportDocument struct {
	ExportedAt time.Time    `json:"exportedAt"`
	Account    string       `json:"account,omitempty"`
	Catalog    core.Catalog `json:"catalog"`
	Ledger     core.Ledger  `json:"ledger"`
	Unlocked   []string     `json:"unlocked"`
	Rules      []ExportRule `json:"achievements"`
}

// ExportRule is the unlocked-achievement detail included in exports.
type ExportRule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Export snapshots the whole state for download. The copy is deep, so
// later mutations never leak into a document already handed out.
func (t *Tracker) Export(account string) ExportDocument {
	t.mu.Lock()
	state := t.state.Clone()
	t.mu.Unlock()

	doc := ExportDocument{
		ExportedAt: t.now().UTC(),
		Account:    account,
		Catalog:    state.Catalog,
		Ledger:     state.Ledger,
		Unlocked:   state.Unlocked,
	}
	for _, id := range state.Unlocked {
		if rule, ok := t.engine.Find(id); ok {
			doc.Rules = append(doc.Rules, ExportRule{ID: rule.ID, Name: rule.Name, Icon: rule.Icon})
		}
	}
	return doc
}

// Items returns the catalog for the management view.
func (t *Tracker) Items() core.Catalog {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(core.Catalog, len(t.state.Catalog))
	copy(out, t.state.Catalog)
	return out
}
