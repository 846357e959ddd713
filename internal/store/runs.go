package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// timeFormat has fixed-width fractional seconds so stored timestamps sort
// lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrRunNotFound is returned when no run matches an ID.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousID is returned when an ID prefix matches several runs.
	ErrAmbiguousID = errors.New("run ID prefix is ambiguous")
)

// Run is one recorded pipeline stage invocation.
type Run struct {
	ID         string             `json:"id"`
	Stage      string             `json:"stage"`
	Status     string             `json:"status"`
	Input      string             `json:"input"`
	Output     string             `json:"output"`
	Rows       int                `json:"rows"`
	Error      string             `json:"error,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at,omitzero"`
	Categories []CategoryCount    `json:"categories,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// Duration is the wall time of a finished run, or 0 while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CategoryCount is one stored class count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// StartRun records a new running stage and returns its ID.
func (s *Store) StartRun(stage, input, output string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, stage, status, input, output, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, stage, StatusRunning, input, output, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run as succeeded with the number of rows it produced.
func (s *Store) FinishRun(id string, rows int) error {
	return s.finish(id, StatusSucceeded, rows, "")
}

// FailRun marks a run as failed with the error that stopped it.
func (s *Store) FailRun(id string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	return s.finish(id, StatusFailed, 0, msg)
}

func (s *Store) finish(id, status string, rows int, msg string) error {
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, row_count = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, rows, msg, time.Now().UTC().Format(timeFormat), id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// RecordCategories stores the class distribution for a run, replacing any
// earlier counts for the same categories.
func (s *Store) RecordCategories(id string, counts map[string]int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for cat, n := range counts {
		_, err := tx.Exec(
			`INSERT INTO run_categories (run_id, category, count) VALUES (?, ?, ?)
			 ON CONFLICT(run_id, category) DO UPDATE SET count = excluded.count`,
			id, cat, n,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert category %q: %w", cat, err)
		}
	}
	return tx.Commit()
}

// RecordMetrics stores named scalar results for a run.
func (s *Store) RecordMetrics(id string, metrics map[string]float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for name, v := range metrics {
		_, err := tx.Exec(
			`INSERT INTO run_metrics (run_id, name, value) VALUES (?, ?, ?)
			 ON CONFLICT(run_id, name) DO UPDATE SET value = excluded.value`,
			id, name, v,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert metric %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first. A limit of 0 or less
// returns every run.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, stage, status, input, output, row_count, error, started_at, finished_at
		 FROM runs
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// GetRun returns one run with its categories and metrics. id may be a
// unique prefix of a full run ID.
func (s *Store) GetRun(id string) (*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, stage, status, input, output, row_count, error, started_at, finished_at
		 FROM runs
		 WHERE id = ? OR id LIKE ? || '%'
		 ORDER BY id = ? DESC
		 LIMIT 2`,
		id, id, id,
	)
	if err != nil {
		return nil, err
	}
	runs, err := scanRuns(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	switch {
	case len(runs) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(runs) > 1 && runs[0].ID != id:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
	r := runs[0]

	if r.Categories, err = s.categories(r.ID); err != nil {
		return nil, err
	}
	if r.Metrics, err = s.metrics(r.ID); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) categories(id string) ([]CategoryCount, error) {
	rows, err := s.db.Query(
		`SELECT category, count FROM run_categories WHERE run_id = ? ORDER BY count DESC, category ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) metrics(id string) (map[string]float64, error) {
	rows, err := s.db.Query(`SELECT name, value FROM run_metrics WHERE run_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var name string
		var v float64
		if err := rows.Scan(&name, &v); err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, rows.Err()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Stage, &r.Status, &r.Input, &r.Output, &r.Rows, &r.Error, &started, &finished); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeFormat, started)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", started, err)
		}
		r.StartedAt = t
		if finished != "" {
			if r.FinishedAt, err = time.Parse(timeFormat, finished); err != nil {
				return nil, fmt.Errorf("parse run timestamp %q: %w", finished, err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// MetricNames returns the metric keys of r in sorted order.
func (r Run) MetricNames() []string {
	names := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
