// Package sqlite archives run summaries in a SQLite database.
//
// It uses the pure Go driver registered by modernc.org/sqlite, so no cgo is required.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"

	_ "modernc.org/sqlite"
)

// Store implements ports.RunStore backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ ports.RunStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and prepares the schema.
// Use ":memory:" for a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a different database.
		db.SetMaxOpenConns(1)
	}
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New initializes the required schema in the given database and returns a Store.
// The caller keeps ownership of db unless Close is called.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			workflow TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL,
			steps INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			output BLOB
		);`,
	)
	return err
}

// Save inserts or replaces the summary.
func (s *Store) Save(ctx context.Context, summary domain.RunSummary) error {
	var output any
	if len(summary.Output) > 0 {
		output = []byte(summary.Output)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, workflow, status, error, steps, started_at, finished_at, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workflow = excluded.workflow,
			status = excluded.status,
			error = excluded.error,
			steps = excluded.steps,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			output = excluded.output`,
		summary.ID,
		summary.Workflow,
		string(summary.Status),
		summary.Error,
		summary.Steps,
		summary.StartedAt.UnixNano(),
		summary.FinishedAt.UnixNano(),
		output,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", summary.ID, err)
	}
	return nil
}

// Load retrieves a summary.
func (s *Store) Load(ctx context.Context, runID string) (domain.RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow, status, error, steps, started_at, finished_at, output
		FROM runs WHERE id = ?`, runID)

	var (
		summary          domain.RunSummary
		status           string
		started, finished int64
		output           []byte
	)
	err := row.Scan(&summary.ID, &summary.Workflow, &status, &summary.Error, &summary.Steps, &started, &finished, &output)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunSummary{}, domain.ErrRunNotFound
	}
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("load run %s: %w", runID, err)
	}

	summary.Status = domain.RunStatus(status)
	summary.StartedAt = time.Unix(0, started).UTC()
	summary.FinishedAt = time.Unix(0, finished).UTC()
	if len(output) > 0 {
		summary.Output = output
	}
	return summary, nil
}

// Delete removes a run.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

// List returns run IDs, most recent first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
