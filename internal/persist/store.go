// Package persist keeps a journal of installer runs in a local SQLite file.
package persist

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Store handles persistence of install runs and their steps using SQLite
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a new SQLite-backed journal at the given path
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}

	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

// init creates the necessary tables if they don't exist
func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			started_at   TEXT NOT NULL,
			finished_at  TEXT,
			options      TEXT,
			outcome      TEXT NOT NULL DEFAULT '',
			backup_path  TEXT NOT NULL DEFAULT '',
			error        TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS steps (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			stage        TEXT NOT NULL,
			operation    TEXT NOT NULL,
			status       TEXT NOT NULL,
			error        TEXT NOT NULL DEFAULT '',
			started_at   TEXT NOT NULL,
			duration_ms  INTEGER NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
		CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
	`)
	return err
}

// StartRun records the beginning of a run.
func (s *Store) StartRun(id string, options map[string]bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO runs (id, started_at, options)
		VALUES (?, ?, ?)
	`, id, at.UTC().Format(timeLayout), toJSON(options))
	return err
}

// RecordStep appends a finished host operation to a run.
func (s *Store) RecordStep(id, stage, operation string, stepErr error, at time.Time, took time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, msg := StatusOK, ""
	if stepErr != nil {
		status, msg = StatusFailed, stepErr.Error()
	}

	_, err := s.db.Exec(`
		INSERT INTO steps (run_id, stage, operation, status, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, stage, operation, status, msg, at.UTC().Format(timeLayout), took.Milliseconds())
	return err
}

// FinishRun stores the outcome of a run.
func (s *Store) FinishRun(id, outcome, backupPath string, runErr error, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}

	res, err := s.db.Exec(`
		UPDATE runs SET finished_at = ?, outcome = ?, backup_path = ?, error = ?
		WHERE id = ?
	`, at.UTC().Format(timeLayout), outcome, backupPath, msg, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// GetRun returns a run with its steps.
func (s *Store) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, started_at, finished_at, options, outcome, backup_path, error
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	run.Steps, err = s.getStepsInternal(run.ID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first, without their steps.
func (s *Store) RecentRuns(limit int) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, options, outcome, backup_path, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) getStepsInternal(runID string) ([]Step, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, stage, operation, status, error, started_at, duration_ms
		FROM steps
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var st Step
		var startedAt string
		var durationMS int64

		if err := rows.Scan(&st.ID, &st.RunID, &st.Stage, &st.Operation, &st.Status, &st.Error, &startedAt, &durationMS); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, startedAt); err == nil {
			st.StartedAt = t
		}
		st.Duration = time.Duration(durationMS) * time.Millisecond
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var startedAt string
	var finishedAt, options sql.NullString

	err := row.Scan(&run.ID, &startedAt, &finishedAt, &options, &run.Outcome, &run.BackupPath, &run.Error)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(timeLayout, startedAt); err == nil {
		run.StartedAt = t
	}
	if finishedAt.Valid {
		if t, err := time.Parse(timeLayout, finishedAt.String); err == nil {
			run.FinishedAt = t
		}
	}
	if options.Valid {
		_ = fromJSON(options.String, &run.Options)
	}
	return &run, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
