package testutil

import (
	"context"
	"slices"
	"sync"
)

// CommandRecord is one management command seen by RecordingCommands.
type CommandRecord struct {
	Argv []string
	Dir  string
	Env  []string
}

// RecordingCommands is an executor.CommandRunner that records every command
// and fails those whose argv contains one of FailOn.
type RecordingCommands struct {
	FailOn map[string]error

	mu      sync.Mutex
	records []CommandRecord
}

// Run implements executor.CommandRunner.
func (r *RecordingCommands) Run(ctx context.Context, argv []string, dir string, env []string) error {
	r.mu.Lock()
	r.records = append(r.records, CommandRecord{Argv: slices.Clone(argv), Dir: dir, Env: slices.Clone(env)})
	r.mu.Unlock()

	for _, arg := range argv {
		if err, ok := r.FailOn[arg]; ok {
			return err
		}
	}
	return ctx.Err()
}

// Records returns a copy of the recorded commands.
func (r *RecordingCommands) Records() []CommandRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}

// RecordsIn returns the commands that ran in dir, in order.
func (r *RecordingCommands) RecordsIn(dir string) []CommandRecord {
	var out []CommandRecord
	for _, rec := range r.Records() {
		if rec.Dir == dir {
			out = append(out, rec)
		}
	}
	return out
}
