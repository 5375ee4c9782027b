// Package history keeps an audit log of crawls in SQLite: when each run
// happened, how it was configured, what it published and which directories
// failed to list. The log is never consulted to skip work in a later crawl.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrRunNotFound is returned when no run matches an id or id prefix.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when an id prefix matches several runs.
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
)

// RunState is the lifecycle state recorded for a run.
type RunState string

const (
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateCancelled RunState = "cancelled"
	StateFailed    RunState = "failed"
)

// Run is one recorded crawl.
type Run struct {
	ID         string
	Root       string
	Filters    []string
	Stops      []string
	Workers    int
	State      RunState
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Tasks      int
	Published  int
	Pruned     int
	Failures   int
}

// Duration is the wall time of a finished run, zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome carries the final counters of a run.
type Outcome struct {
	State     RunState
	Tasks     int
	Published int
	Pruned    int
	Failures  []RunError
}

// RunError is a directory that could not be listed.
type RunError struct {
	Path    string
	Message string
}

// Store manages the history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath and applies
// pending migrations. ":memory:" gives a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps pragmas and in-memory databases consistent; SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.dbPath
}

// CreateRun inserts run in the running state. An empty ID is replaced by a new
// UUID and a zero StartedAt by the current time.
func (s *Store) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.State = StateRunning

	filters, err := json.Marshal(nonNil(run.Filters))
	if err != nil {
		return fmt.Errorf("marshal filters: %w", err)
	}
	stops, err := json.Marshal(nonNil(run.Stops))
	if err != nil {
		return fmt.Errorf("marshal stops: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO runs (id, root, filters, stops, workers, state, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, string(filters), string(stops), run.Workers, string(run.State), run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// AppendPaths stores published paths for a run starting at sequence number
// firstSeq.
func (s *Store) AppendPaths(ctx context.Context, runID string, firstSeq int, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_paths (run_id, seq, path) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare path insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range paths {
		if _, err := stmt.ExecContext(ctx, runID, firstSeq+i, p); err != nil {
			return fmt.Errorf("insert path %q: %w", p, err)
		}
	}
	return tx.Commit()
}

// FinishRun records the final state, counters and failures of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, out Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE runs
		SET state = ?, finished_at = ?, tasks = ?, published = ?, pruned = ?, failures = ?
		WHERE id = ?`,
		string(out.State), time.Now().UTC(), out.Tasks, out.Published, out.Pruned, len(out.Failures), runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}

	for _, f := range out.Failures {
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_errors (run_id, path, message) VALUES (?, ?, ?)`,
			runID, f.Path, f.Message); err != nil {
			return fmt.Errorf("insert run error: %w", err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, root, filters, stops, workers, state, started_at, finished_at, tasks, published, pruned, failures`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var (
		run            Run
		filters, stops string
		state          string
		finished       sql.NullTime
	)
	if err := row.Scan(&run.ID, &run.Root, &filters, &stops, &run.Workers, &state,
		&run.StartedAt, &finished, &run.Tasks, &run.Published, &run.Pruned, &run.Failures); err != nil {
		return nil, err
	}
	run.State = RunState(state)
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	if err := json.Unmarshal([]byte(filters), &run.Filters); err != nil {
		return nil, fmt.Errorf("unmarshal filters: %w", err)
	}
	if err := json.Unmarshal([]byte(stops), &run.Stops); err != nil {
		return nil, fmt.Errorf("unmarshal stops: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun finds a run by its full id or by a unique id prefix.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, ErrRunNotFound
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' LIMIT 2`,
		idOrPrefix, escapeLike(idOrPrefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.ID == idOrPrefix {
			return run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%s: %w", idOrPrefix, ErrRunNotFound)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%s: %w", idOrPrefix, ErrAmbiguousRun)
	}
}

// Paths returns the published paths of a run in publish order.
func (s *Store) Paths(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM run_paths WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Errors returns the listing failures recorded for a run.
func (s *Store) Errors(ctx context.Context, runID string) ([]RunError, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, message FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run errors: %w", err)
	}
	defer rows.Close()

	var errs []RunError
	for rows.Next() {
		var e RunError
		if err := rows.Scan(&e.Path, &e.Message); err != nil {
			return nil, fmt.Errorf("scan run error: %w", err)
		}
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

// DeleteRunsBefore removes runs started before cutoff along with their paths
// and errors, returning how many runs were deleted.
func (s *Store) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff = cutoff.UTC()
	for _, q := range []string{
		`DELETE FROM run_paths WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`,
		`DELETE FROM run_errors WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`,
	} {
		if _, err := tx.ExecContext(ctx, q, cutoff); err != nil {
			return 0, fmt.Errorf("delete run children: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
