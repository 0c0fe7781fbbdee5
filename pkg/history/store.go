package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DBFileName is the run ledger database inside the data dir.
const DBFileName = "runs.sqlite"

// Status is the terminal state of one run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusNoResults Status = "no_results"
	StatusFailed    Status = "failed"
)

// Run is one ledger row. ID is assigned by Record.
type Run struct {
	ID           string
	ScheduleName string
	Datasource   string
	Status       Status
	RowsExported int
	OutputPath   string
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Store is the sqlite-backed run ledger. Every scheduled or foreground
// run leaves exactly one row whatever its outcome.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	schedule_name TEXT,
	datasource TEXT,
	status TEXT,
	rows_exported INTEGER,
	output_path TEXT,
	error_message TEXT,
	started_at DATETIME,
	finished_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at);
`

// Open opens (creating if needed) the run ledger in dataDir.
func Open(dataDir string) (*Store, error) {
	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run ledger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a completed run and returns it with its assigned id.
func (s *Store) Record(ctx context.Context, run Run) (Run, error) {
	run.ID = uuid.New().String()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, schedule_name, datasource, status, rows_exported, output_path, error_message, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ScheduleName, run.Datasource, string(run.Status),
		run.RowsExported, run.OutputPath, run.Error,
		run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return Run{}, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first, up to limit.
// A non-positive limit returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, schedule_name, datasource, status, rows_exported, output_path, error_message, started_at, finished_at
	      FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var status string
		if err := rows.Scan(&r.ID, &r.ScheduleName, &r.Datasource, &status,
			&r.RowsExported, &r.OutputPath, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Status = Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneOlderThan deletes runs that started before the cutoff and
// returns how many were removed.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}
