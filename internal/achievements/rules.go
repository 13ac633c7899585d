// Package achievements implements the unlock engine: a static table of
// threshold rules evaluated against ledger aggregates, feeding a
// monotonically growing unlocked set.
package achievements

import "coffeecounter/internal/core"

// Metrics is the snapshot a rule condition is evaluated against.
type Metrics struct {
	TotalCount int
	TotalSpend core.Money
	Breakdown  map[string]int
	TodayCount int
	Variety    int
}

// Condition is one rule kind. Each variant carries only the fields its
// predicate needs; evaluation is a method call, not a generic field grab.
type Condition interface {
	// Met reports whether the threshold is reached.
	Met(m Metrics) bool
	// Progress returns the current value and the target, for rendering
	// per-rule progress bars.
	Progress(m Metrics) (current, target int64)
}

// TotalCount unlocks at a cumulative all-time coffee count.
type TotalCount struct {
	Threshold int
}

func (c TotalCount) Met(m Metrics) bool { return m.TotalCount >= c.Threshold }
func (c TotalCount) Progress(m Metrics) (int64, int64) {
	return int64(m.TotalCount), int64(c.Threshold)
}

// PerItemCount unlocks at a cumulative count of one specific item.
type PerItemCount struct {
	ItemID    string
	Threshold int
}

func (c PerItemCount) Met(m Metrics) bool { return m.Breakdown[c.ItemID] >= c.Threshold }
func (c PerItemCount) Progress(m Metrics) (int64, int64) {
	return int64(m.Breakdown[c.ItemID]), int64(c.Threshold)
}

// TotalSpend unlocks at a cumulative all-time spend.
type TotalSpend struct {
	Threshold core.Money
}

func (c TotalSpend) Met(m Metrics) bool { return m.TotalSpend.Cents >= c.Threshold.Cents }
func (c TotalSpend) Progress(m Metrics) (int64, int64) {
	return m.TotalSpend.Cents, c.Threshold.Cents
}

// DailyCount unlocks at a single-day coffee count.
type DailyCount struct {
	Threshold int
}

func (c DailyCount) Met(m Metrics) bool { return m.TodayCount >= c.Threshold }
func (c DailyCount) Progress(m Metrics) (int64, int64) {
	return int64(m.TodayCount), int64(c.Threshold)
}

// Variety unlocks once enough distinct items have ever been consumed.
type Variety struct {
	Threshold int
}

func (c Variety) Met(m Metrics) bool { return m.Variety >= c.Threshold }
func (c Variety) Progress(m Metrics) (int64, int64) {
	return int64(m.Variety), int64(c.Threshold)
}

// Rule is one static achievement definition. The table is fixed at build
// time and never mutated at runtime.
type Rule struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Condition   Condition
}

// BuiltIn is the standard rule table.
func BuiltIn() []Rule {
	return []Rule{
		{ID: "first_coffee", Name: "First Sip", Icon: "🎉", Description: "Log your first coffee", Condition: TotalCount{Threshold: 1}},
		{ID: "coffee_10", Name: "Getting Started", Icon: "☕", Description: "Drink 10 coffees", Condition: TotalCount{Threshold: 10}},
		{ID: "coffee_50", Name: "Regular", Icon: "🌟", Description: "Drink 50 coffees", Condition: TotalCount{Threshold: 50}},
		{ID: "coffee_100", Name: "Coffee Enthusiast", Icon: "💫", Description: "Drink 100 coffees", Condition: TotalCount{Threshold: 100}},
		{ID: "coffee_500", Name: "Coffee Addict", Icon: "🏆", Description: "Drink 500 coffees", Condition: TotalCount{Threshold: 500}},
		{ID: "coffee_1000", Name: "Coffee Legend", Icon: "👑", Description: "Drink 1000 coffees", Condition: TotalCount{Threshold: 1000}},
		{ID: "espresso_master", Name: "Espresso Master", Icon: "⚡", Description: "Drink 25 espressos", Condition: PerItemCount{ItemID: "espresso", Threshold: 25}},
		{ID: "latte_lover", Name: "Latte Lover", Icon: "🥛", Description: "Drink 25 lattes", Condition: PerItemCount{ItemID: "latte", Threshold: 25}},
		{ID: "mocha_madness", Name: "Mocha Madness", Icon: "🍫", Description: "Drink 25 mochas", Condition: PerItemCount{ItemID: "mocha", Threshold: 25}},
		{ID: "cold_brew_champ", Name: "Cold Brew Champion", Icon: "🧊", Description: "Drink 25 cold brews", Condition: PerItemCount{ItemID: "cold_brew", Threshold: 25}},
		{ID: "variety", Name: "Variety Seeker", Icon: "🌈", Description: "Try all coffee types", Condition: Variety{Threshold: 6}},
		{ID: "big_spender_50", Name: "Big Spender", Icon: "💰", Description: "Spend $50 on coffee", Condition: TotalSpend{Threshold: core.Money{Cents: 5000}}},
		{ID: "big_spender_100", Name: "Coffee Investor", Icon: "💎", Description: "Spend $100 on coffee", Condition: TotalSpend{Threshold: core.Money{Cents: 10000}}},
		{ID: "big_spender_500", Name: "Coffee Mogul", Icon: "🤑", Description: "Spend $500 on coffee", Condition: TotalSpend{Threshold: core.Money{Cents: 50000}}},
		{ID: "daily_5", Name: "Caffeine Rush", Icon: "⚡", Description: "Drink 5 coffees in one day", Condition: DailyCount{Threshold: 5}},
		{ID: "daily_10", Name: "Unstoppable", Icon: "🚀", Description: "Drink 10 coffees in one day", Condition: DailyCount{Threshold: 10}},
	}
}
