// Package journal records convergence runs and their actions in a local
// SQLite database, so operators can see what changed and when.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/specialistvlad/djangoconverge/internal/ctxlog"
	"github.com/specialistvlad/djangoconverge/internal/executor"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	resource    TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	status      TEXT NOT NULL,
	changed     INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_resource ON runs(resource, started_at);
CREATE TABLE IF NOT EXISTS actions (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	idx         INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	description TEXT NOT NULL,
	changed     INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, idx)
);`

// Journal is a SQLite-backed run journal. It is safe for concurrent use.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal database at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	dbPath := path
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}
	dbPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal at path '%s': %w", dbPath, err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal at path '%s': %w", dbPath, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal tables: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("Journal opened.", "path", dbPath)
	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Run is one journaled convergence run. It implements executor.Observer.
type Run struct {
	ID       string
	Resource string
	j        *Journal
}

// Begin records the start of a run for resource.
func (j *Journal) Begin(ctx context.Context, resource string) (*Run, error) {
	run := &Run{ID: uuid.NewString(), Resource: resource, j: j}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, resource, started_at, status) VALUES (?, ?, ?, ?)`,
		run.ID, resource, formatTime(j.now()), StatusRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}
	return run, nil
}

// ActionFinished records one action outcome. Journal failures are logged and
// never interrupt the run.
func (r *Run) ActionFinished(ctx context.Context, index int, res executor.Result, err error) {
	_, dbErr := r.j.db.ExecContext(ctx,
		`INSERT INTO actions (run_id, idx, kind, description, changed, skipped, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, index, res.Action.Kind(), res.Action.String(), res.Changed, res.Skipped,
		res.Duration.Milliseconds(), errorText(err),
	)
	if dbErr != nil {
		ctxlog.FromContext(ctx).Warn("Failed to journal action.", "run_id", r.ID, "index", index, "error", dbErr)
	}
}

// Finish records the end of the run.
func (r *Run) Finish(ctx context.Context, report *executor.Report, runErr error) error {
	status := StatusSucceeded
	if runErr != nil {
		status = StatusFailed
	}
	changed := report != nil && report.Changed()
	_, err := r.j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, changed = ?, error = ? WHERE id = ?`,
		formatTime(r.j.now()), status, changed, errorText(runErr), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
