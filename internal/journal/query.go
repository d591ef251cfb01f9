package journal

import (
	"context"
	"fmt"
	"time"
)

// RunRecord is a stored run.
type RunRecord struct {
	ID         string
	Resource   string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Changed    bool
	Error      string
}

// ActionRecord is a stored action outcome.
type ActionRecord struct {
	Index       int
	Kind        string
	Description string
	Changed     bool
	Skipped     bool
	Duration    time.Duration
	Error       string
}

// Runs lists the most recent runs, newest first. An empty resource matches
// every resource; limit <= 0 means no limit.
func (j *Journal) Runs(ctx context.Context, resource string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, resource, started_at, COALESCE(finished_at, ''), status, changed, error
		 FROM runs
		 WHERE ? = '' OR resource = ?
		 ORDER BY rowid DESC
		 LIMIT ?`,
		resource, resource, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started, finished string
		if err := rows.Scan(&rec.ID, &rec.Resource, &started, &finished, &rec.Status, &rec.Changed, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if rec.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if rec.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Actions lists the actions of one run in plan order.
func (j *Journal) Actions(ctx context.Context, runID string) ([]ActionRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT idx, kind, description, changed, skipped, duration_ms, error
		 FROM actions WHERE run_id = ? ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		var rec ActionRecord
		var ms int64
		if err := rows.Scan(&rec.Index, &rec.Kind, &rec.Description, &rec.Changed, &rec.Skipped, &ms, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q in journal: %w", s, err)
	}
	return t, nil
}
