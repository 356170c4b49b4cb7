package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage keeps the run history of the toolkit's jobs in a local
// SQLite database so past runs can be inspected after the fact.
type Storage struct {
	db *sql.DB
}

// Run records the outcome of one job invocation.
type Run struct {
	ID         int64
	Job        string // "pto" or "status"
	StartedAt  time.Time
	PtoStart   *time.Time // resolved span start, nil when not on PTO
	PtoEnd     *time.Time // resolved span end, nil when not on PTO
	StatusText string     // chat status text set this run, if any
	Payload    string     // phone payload dispatched this run
	Error      string     // non-empty when the run failed
	CreatedAt  time.Time
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			pto_start DATETIME,
			pto_end DATETIME,
			status_text TEXT DEFAULT '',
			payload TEXT DEFAULT '',
			error TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_job ON runs(job)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}

	return nil
}

// RecordRun inserts a run record and fills in its ID.
func (s *Storage) RecordRun(r *Run) error {
	res, err := s.db.Exec(
		`INSERT INTO runs (job, started_at, pto_start, pto_end, status_text, payload, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Job, r.StartedAt, r.PtoStart, r.PtoEnd, r.StatusText, r.Payload, r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return nil
}

// RecentRuns returns the most recent runs for a job, newest first.
func (s *Storage) RecentRuns(job string, limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, job, started_at, pto_start, pto_end, status_text, payload, error, created_at
		 FROM runs WHERE job = ? ORDER BY started_at DESC LIMIT ?`,
		job, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		if err := rows.Scan(&r.ID, &r.Job, &r.StartedAt, &r.PtoStart, &r.PtoEnd,
			&r.StatusText, &r.Payload, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// PruneRuns deletes run records started before the given instant and
// returns how many were removed.
func (s *Storage) PruneRuns(before time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM runs WHERE started_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
