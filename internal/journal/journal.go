// Package journal records per-issue outcomes of a sync run in a local
// SQLite database. The journal is a report, not a cache: de-duplication
// always goes through the tracking service's fingerprint field, never
// through local state.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Actions recorded for an issue during a run.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionSkipped = "skipped"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	action      TEXT NOT NULL,
	work_item_id INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_entries_run_id ON run_entries(run_id);
`

// Entry is one recorded outcome: what happened to one issue in one run.
type Entry struct {
	RunID       string    `db:"run_id"`
	Fingerprint string    `db:"fingerprint"`
	Action      string    `db:"action"`
	WorkItemID  int       `db:"work_item_id"`
	Error       string    `db:"error"`
	CreatedAt   time.Time `db:"created_at"`
}

// Summary aggregates a run's outcomes.
type Summary struct {
	Created int `db:"created"`
	Updated int `db:"updated"`
	Skipped int `db:"skipped"`
}

// Total returns the number of issues the run touched.
func (s Summary) Total() int {
	return s.Created + s.Updated + s.Skipped
}

// Journal is a SQLite-backed run journal.
type Journal struct {
	db *sqlx.DB
}

// Open opens (or creates) the journal database at dbPath, enables WAL
// mode, and ensures the schema exists.
func Open(dbPath string) (*Journal, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record inserts one outcome entry. A zero CreatedAt is stamped with
// the current time.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO run_entries (
			run_id, fingerprint, action, work_item_id, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Fingerprint, e.Action, e.WorkItemID, e.Error, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording journal entry: %w", err)
	}
	return nil
}

// Summarize aggregates the outcomes of a single run.
func (j *Journal) Summarize(ctx context.Context, runID string) (Summary, error) {
	var s Summary
	err := j.db.GetContext(ctx, &s, `
		SELECT
			COALESCE(SUM(action = ?), 0) AS created,
			COALESCE(SUM(action = ?), 0) AS updated,
			COALESCE(SUM(action = ?), 0) AS skipped
		FROM run_entries WHERE run_id = ?`,
		ActionCreated, ActionUpdated, ActionSkipped, runID,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing run %s: %w", runID, err)
	}
	return s, nil
}

// Entries returns a run's entries in insertion order.
func (j *Journal) Entries(ctx context.Context, runID string) ([]Entry, error) {
	var entries []Entry
	err := j.db.SelectContext(ctx, &entries, `
		SELECT run_id, fingerprint, action, work_item_id, error, created_at
		FROM run_entries WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing run %s entries: %w", runID, err)
	}
	return entries, nil
}
