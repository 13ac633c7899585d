// Package storage is the local device store: a sqlite database holding
// the tracker document plus the unlock journal consumed by the notifier.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"coffeecounter/internal/core"
	"coffeecounter/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements store.Store. The document is rebuilt from the three
// state tables and normalized field by field, so a partially written
// database degrades to defaults instead of failing the load.
func (r *SQLiteRepository) Load(ctx context.Context) (core.AppState, error) {
	state := core.AppState{Ledger: core.Ledger{}}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, icon, price_cents FROM catalog_items ORDER BY position`)
	if err != nil {
		return core.AppState{}, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it core.CatalogItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Icon, &it.Price.Cents); err != nil {
			return core.AppState{}, fmt.Errorf("scan catalog item: %w", err)
		}
		state.Catalog = append(state.Catalog, it)
	}
	if err := rows.Err(); err != nil {
		return core.AppState{}, fmt.Errorf("iterate catalog: %w", err)
	}

	entryRows, err := r.db.QueryContext(ctx,
		`SELECT date, counts, total_cost_cents FROM ledger_entries`)
	if err != nil {
		return core.AppState{}, fmt.Errorf("query ledger: %w", err)
	}
	defer entryRows.Close()
	for entryRows.Next() {
		var (
			date       string
			countsJSON string
			costCents  int64
		)
		if err := entryRows.Scan(&date, &countsJSON, &costCents); err != nil {
			return core.AppState{}, fmt.Errorf("scan ledger entry: %w", err)
		}
		counts := map[string]int{}
		if err := json.Unmarshal([]byte(countsJSON), &counts); err != nil {
			// Corrupt counts blob: keep the day with zero counts rather
			// than failing the whole load.
			slog.WarnContext(ctx, "Dropping corrupt counts blob", "date", date, "error", err)
			counts = map[string]int{}
		}
		state.Ledger[core.DateKey(date)] = &core.DailyEntry{
			Date:      core.DateKey(date),
			Counts:    counts,
			TotalCost: core.Money{Cents: costCents},
		}
	}
	if err := entryRows.Err(); err != nil {
		return core.AppState{}, fmt.Errorf("iterate ledger: %w", err)
	}

	unlockRows, err := r.db.QueryContext(ctx,
		`SELECT rule_id FROM unlocked_achievements ORDER BY unlocked_at`)
	if err != nil {
		return core.AppState{}, fmt.Errorf("query unlocked: %w", err)
	}
	defer unlockRows.Close()
	for unlockRows.Next() {
		var id string
		if err := unlockRows.Scan(&id); err != nil {
			return core.AppState{}, fmt.Errorf("scan unlock: %w", err)
		}
		state.Unlocked = append(state.Unlocked, id)
	}
	if err := unlockRows.Err(); err != nil {
		return core.AppState{}, fmt.Errorf("iterate unlocked: %w", err)
	}

	if len(state.Catalog) == 0 && len(state.Ledger) == 0 && len(state.Unlocked) == 0 {
		return core.AppState{}, store.ErrNotFound
	}

	return state.Normalize(), nil
}

// Save implements store.Store: last writer wins, the whole document is
// replaced in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, state core.AppState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"catalog_items", "ledger_entries", "unlocked_achievements"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, it := range state.Catalog {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_items (id, name, icon, price_cents, position) VALUES (?, ?, ?, ?, ?)`,
			it.ID, it.Name, it.Icon, it.Price.Cents, i); err != nil {
			return fmt.Errorf("insert catalog item %s: %w", it.ID, err)
		}
	}

	for date, entry := range state.Ledger {
		countsJSON, err := json.Marshal(entry.Counts)
		if err != nil {
			return fmt.Errorf("marshal counts for %s: %w", date, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_entries (date, counts, total_cost_cents) VALUES (?, ?, ?)`,
			string(date), string(countsJSON), entry.TotalCost.Cents); err != nil {
			return fmt.Errorf("insert ledger entry %s: %w", date, err)
		}
	}

	now := time.Now().UTC()
	for i, id := range state.Unlocked {
		// Synthetic timestamp offset preserves unlock order on reload.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO unlocked_achievements (rule_id, unlocked_at) VALUES (?, ?)`,
			id, now.Add(time.Duration(i)*time.Microsecond)); err != nil {
			return fmt.Errorf("insert unlock %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// JournalUnlock appends an unlock event to the journal the notifier
// worker writes. Idempotent per rule id.
func (r *SQLiteRepository) JournalUnlock(ctx context.Context, ruleID, name, icon string, unlockedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO unlock_journal (rule_id, name, icon, unlocked_at, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		ruleID, name, icon, unlockedAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("journal unlock %s: %w", ruleID, err)
	}
	return nil
}

// JournalEntry is one recorded unlock event.
type JournalEntry struct {
	RuleID     string
	Name       string
	Icon       string
	UnlockedAt time.Time
}

// Journal returns the recorded unlock events, oldest first.
func (r *SQLiteRepository) Journal(ctx context.Context) ([]JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rule_id, name, icon, unlocked_at FROM unlock_journal ORDER BY recorded_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.RuleID, &e.Name, &e.Icon, &e.UnlockedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ store.Store = (*SQLiteRepository)(nil)
