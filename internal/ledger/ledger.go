// Package ledger records classification progress in SQLite so an
// interrupted run can resume without asking the model again.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// ErrNotOpen is returned when the ledger has been closed.
var ErrNotOpen = errors.New("ledger is not open")

// Outcome is the classification result stored for one study title.
type Outcome struct {
	RunID      string
	Title      string
	IsAudit    bool
	Domain     string
	RecordedAt time.Time
}

// Run describes one classification run.
type Run struct {
	ID        string
	Input     string
	Model     string
	StartedAt time.Time
}

// RunStats summarizes the outcomes recorded for a run.
type RunStats struct {
	Processed int `json:"processed"`
	Audits    int `json:"audits"`
}

// Ledger wraps the progress database.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path, creating parent directories.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, eris.Wrapf(err, "creating ledger directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "opening ledger")
	}
	db.SetMaxOpenConns(1) // one writer; workers serialize through the pool

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "creating ledger schema")
	}
	return &Ledger{db: db}, nil
}

// Close closes the database. Later calls return ErrNotOpen.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			model TEXT NOT NULL,
			started_at TEXT NOT NULL
		);

		-- One row per study title; a later run overwrites an earlier verdict
		CREATE TABLE IF NOT EXISTS outcomes (
			title TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			is_audit INTEGER NOT NULL,
			domain TEXT NOT NULL DEFAULT '',
			recorded_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
	`
	_, err := db.Exec(schema)
	return err
}

func (l *Ledger) conn() (*sql.DB, error) {
	if l == nil || l.db == nil {
		return nil, ErrNotOpen
	}
	return l.db, nil
}

// StartRun registers a new run and returns it with a fresh ID.
func (l *Ledger) StartRun(ctx context.Context, input, model string) (Run, error) {
	db, err := l.conn()
	if err != nil {
		return Run{}, err
	}
	run := Run{
		ID:        uuid.NewString(),
		Input:     input,
		Model:     model,
		StartedAt: time.Now().UTC(),
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO runs (id, input, model, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Input, run.Model, run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, eris.Wrap(err, "inserting run")
	}
	return run, nil
}

// Record stores an outcome, replacing any earlier one for the same title.
func (l *Ledger) Record(ctx context.Context, o Outcome) error {
	db, err := l.conn()
	if err != nil {
		return err
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}
	_, err = db.ExecContext(ctx,
		`INSERT OR REPLACE INTO outcomes (title, run_id, is_audit, domain, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		o.Title, o.RunID, boolToInt(o.IsAudit), o.Domain, o.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return eris.Wrapf(err, "recording outcome for %q", o.Title)
	}
	return nil
}

// ImportTitles marks titles as processed under runID without a verdict.
// Titles already present are left alone. It returns the number added.
func (l *Ledger) ImportTitles(ctx context.Context, runID string, titles []string) (int, error) {
	db, err := l.conn()
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "beginning import")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO outcomes (title, run_id, is_audit, domain, recorded_at)
		 VALUES (?, ?, 0, '', ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "preparing import")
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	added := 0
	for _, title := range titles {
		res, err := stmt.ExecContext(ctx, title, runID, now)
		if err != nil {
			return 0, eris.Wrapf(err, "importing %q", title)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "committing import")
	}
	return added, nil
}

// Titles returns every title with a recorded outcome.
func (l *Ledger) Titles(ctx context.Context) ([]string, error) {
	db, err := l.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT title FROM outcomes ORDER BY title`)
	if err != nil {
		return nil, eris.Wrap(err, "querying titles")
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, eris.Wrap(err, "scanning title")
		}
		titles = append(titles, t)
	}
	return titles, eris.Wrap(rows.Err(), "iterating titles")
}

// Get returns the outcome stored for title.
func (l *Ledger) Get(ctx context.Context, title string) (Outcome, bool, error) {
	db, err := l.conn()
	if err != nil {
		return Outcome{}, false, err
	}
	var (
		o        Outcome
		isAudit  int
		recorded string
	)
	err = db.QueryRowContext(ctx,
		`SELECT title, run_id, is_audit, domain, recorded_at FROM outcomes WHERE title = ?`, title,
	).Scan(&o.Title, &o.RunID, &isAudit, &o.Domain, &recorded)
	if errors.Is(err, sql.ErrNoRows) {
		return Outcome{}, false, nil
	}
	if err != nil {
		return Outcome{}, false, eris.Wrapf(err, "reading outcome for %q", title)
	}
	o.IsAudit = isAudit != 0
	o.RecordedAt, _ = time.Parse(time.RFC3339Nano, recorded)
	return o, true, nil
}

// Stats counts the outcomes recorded by a run.
func (l *Ledger) Stats(ctx context.Context, runID string) (RunStats, error) {
	db, err := l.conn()
	if err != nil {
		return RunStats{}, err
	}
	var s RunStats
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_audit), 0) FROM outcomes WHERE run_id = ?`, runID,
	).Scan(&s.Processed, &s.Audits)
	if err != nil {
		return RunStats{}, eris.Wrap(err, "counting outcomes")
	}
	return s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
