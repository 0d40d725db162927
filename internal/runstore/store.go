// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runstore persists run history and per-item checkpoints in a local
// SQLite database. The pipeline checkpoints every processed item, so a
// crash mid-batch does not lose completed work; the REST surface reads run
// status from here.
// Implements: prd005-run-store (R1-R4);
//
//	docs/ARCHITECTURE § Run Store.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/medscan/pkg/types"
)

const dbFile = "medscan.db"

// Run status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Store manages the run history SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the run database at cfg.StateDir/medscan.db,
// creating the schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dbPath := filepath.Join(cfg.StateDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening run database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			total_items INTEGER NOT NULL,
			processed_items INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_items (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			result TEXT NOT NULL,
			failed INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_items_run_id ON run_items(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RunRecord is one row of run history.
type RunRecord struct {
	ID             int64     `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitzero"`
	TotalItems     int       `json:"total_items"`
	ProcessedItems int       `json:"processed_items"`
	Status         string    `json:"status"`
}

// ItemRecord is one checkpointed item result.
type ItemRecord struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Result   string `json:"result"`
	Failed   bool   `json:"failed"`
}

// BeginRun inserts a new running run and returns its id.
func (s *Store) BeginRun(ctx context.Context, totalItems int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, total_items, processed_items, status) VALUES (?, ?, 0, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), totalItems, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}
	return id, nil
}

// CheckpointItem records one processed item and bumps the run's processed
// count. Re-checkpointing the same position overwrites the earlier row.
func (s *Store) CheckpointItem(ctx context.Context, runID int64, position int, item types.Item, result string, failed bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning checkpoint: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_items (run_id, position, name, kind, result, failed) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, position, item.Name, string(item.Kind), result, failed); err != nil {
		return fmt.Errorf("checkpointing item %s: %w", item.Name, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET processed_items = (SELECT count(*) FROM run_items WHERE run_id = ?) WHERE id = ?`,
		runID, runID); err != nil {
		return fmt.Errorf("updating run progress: %w", err)
	}

	return tx.Commit()
}

// FinishRun marks a run completed or failed.
func (s *Store) FinishRun(ctx context.Context, runID int64, status string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), status, runID); err != nil {
		return fmt.Errorf("finishing run %d: %w", runID, err)
	}
	return nil
}

// LatestRun returns the most recently started run, or nil when the store
// is empty.
func (s *Store) LatestRun(ctx context.Context) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, coalesce(finished_at, ''), total_items, processed_items, status
		 FROM runs ORDER BY id DESC LIMIT 1`)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// Runs returns run history, most recent first, up to limit rows
// (default 20).
func (s *Store) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, coalesce(finished_at, ''), total_items, processed_items, status
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// RunItems returns the checkpointed items of a run in processing order.
func (s *Store) RunItems(ctx context.Context, runID int64) ([]ItemRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, name, kind, result, failed FROM run_items WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run items: %w", err)
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var it ItemRecord
		if err := rows.Scan(&it.Position, &it.Name, &it.Kind, &it.Result, &it.Failed); err != nil {
			return nil, fmt.Errorf("scanning run item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunRecord, error) {
	var rec RunRecord
	var started, finished string
	if err := sc.Scan(&rec.ID, &started, &finished, &rec.TotalItems, &rec.ProcessedItems, &rec.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished != "" {
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	}
	return &rec, nil
}
