package achievements

import (
	"encoding/json"

	"coffeecounter/internal/core"
)

// Engine evaluates the rule table after every ledger mutation. Each rule
// is a two-state machine: Locked, then Unlocked, terminal. Nothing here
// ever removes an id from the unlocked set; only a full state reset does.
type Engine struct {
	rules []Rule
}

// NewEngine builds an engine over a rule table, defaulting to BuiltIn.
func NewEngine(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = BuiltIn()
	}
	return &Engine{rules: rules}
}

// Rules returns the engine's rule table.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Find returns the rule with the given id.
func (e *Engine) Find(id string) (Rule, bool) {
	for _, r := range e.rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// ComputeMetrics derives the evaluation snapshot from the current state
// and today's entry.
func ComputeMetrics(state core.AppState, today core.DateKey) Metrics {
	totals := core.ComputeTotals(state.Ledger)
	todayCount := 0
	if entry, ok := state.Ledger[today]; ok {
		todayCount = entry.TotalCount()
	}
	return Metrics{
		TotalCount: totals.TotalCount,
		TotalSpend: totals.TotalSpend,
		Breakdown:  totals.Breakdown,
		TodayCount: todayCount,
		Variety:    core.VarietyCount(totals.Breakdown),
	}
}

// Evaluate checks every still-locked rule against the current metrics,
// appends newly-true rule ids to the state's unlocked set, and returns
// the newly unlocked rules. All rules that turn true in one pass are
// reported; there is no short-circuit after the first unlock.
func (e *Engine) Evaluate(state *core.AppState, today core.DateKey) []Rule {
	m := ComputeMetrics(*state, today)
	var unlocked []Rule
	for _, r := range e.rules {
		if state.HasUnlocked(r.ID) {
			continue
		}
		if r.Condition.Met(m) {
			state.Unlocked = append(state.Unlocked, r.ID)
			unlocked = append(unlocked, r)
		}
	}
	return unlocked
}

// RuleProgress is a rule plus its current metric standing, for the
// presentation layer's achievement grid.
type RuleProgress struct {
	Rule     Rule
	Unlocked bool
	Current  int64
	Target   int64
}

// MarshalJSON flattens the rule into the wire shape the achievement
// grid consumes; the condition variant stays server internal.
func (p RuleProgress) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
		Unlocked    bool   `json:"unlocked"`
		Current     int64  `json:"current"`
		Target      int64  `json:"target"`
	}{
		ID:          p.Rule.ID,
		Name:        p.Rule.Name,
		Description: p.Rule.Description,
		Icon:        p.Rule.Icon,
		Unlocked:    p.Unlocked,
		Current:     p.Current,
		Target:      p.Target,
	})
}

// Progress reports every rule's standing against the current metrics.
// Unlocked rules keep reporting: the set is monotonic even when the
// underlying metric later regresses below the threshold.
func (e *Engine) Progress(state core.AppState, today core.DateKey) []RuleProgress {
	m := ComputeMetrics(state, today)
	out := make([]RuleProgress, 0, len(e.rules))
	for _, r := range e.rules {
		current, target := r.Condition.Progress(m)
		out = append(out, RuleProgress{
			Rule:     r,
			Unlocked: state.HasUnlocked(r.ID),
			Current:  current,
			Target:   target,
		})
	}
	return out
}
