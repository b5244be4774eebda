// Package store keeps the previous snapshot and a log of runs in SQLite.
// It is the local alternative to the state sheet: same Load/Save contract,
// plus the run history served by the status endpoints.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/clearwatch/clears"
	"github.com/hazyhaar/clearwatch/dbopen"
)

// Run statuses.
const (
	StatusOK        = "ok"
	StatusNoChanges = "no_changes"
	StatusFailed    = "failed"
)

// Run is one row of the run log. Snapshots are never stored here.
type Run struct {
	ID         string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Events     int       `json:"events"`
	Delivered  int       `json:"delivered"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// Store wraps the state database.
type Store struct {
	DB *sql.DB
}

// Open opens (creating if needed) the database at path and applies Schema.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return &Store{DB: db}, nil
}

// New wraps an already opened database. The schema must be applied.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Load returns the stored snapshot; an empty table is an empty snapshot.
func (s *Store) Load(ctx context.Context) (clears.Snapshot, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT player, map, value FROM state_cells`)
	if err != nil {
		return nil, fmt.Errorf("store: load state: %w", err)
	}
	defer rows.Close()

	snap := make(clears.Snapshot)
	for rows.Next() {
		var k clears.CellKey
		var v string
		if err := rows.Scan(&k.Player, &k.Map, &v); err != nil {
			return nil, fmt.Errorf("store: scan state cell: %w", err)
		}
		snap[k] = v
	}
	return snap, rows.Err()
}

// Save replaces the stored snapshot in one transaction.
func (s *Store) Save(ctx context.Context, snap clears.Snapshot) error {
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM state_cells`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO state_cells (player, map, value) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, k := range snap.Keys() {
			if _, err := stmt.ExecContext(ctx, k.Player, k.Map, snap[k]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: save state: %w", err)
	}
	return nil
}

// RecordRun appends a run to the log.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	_, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO runs (run_id, started_at, finished_at, events, delivered, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), r.Events, r.Delivered, r.Status, r.Error)
	if err != nil {
		return fmt.Errorf("store: record run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT run_id, started_at, finished_at, events, delivered, status, error
		FROM runs ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.Events, &r.Delivered, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
