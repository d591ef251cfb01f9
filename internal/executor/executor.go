// Package executor applies a convergence plan through the file system and
// command execution collaborators.
//
// Actions run strictly in plan order. The first failure halts the run and is
// returned as an *ActionError; actions that already ran are not rolled back.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/specialistvlad/djangoconverge/internal/ctxlog"
	"github.com/specialistvlad/djangoconverge/internal/plan"
)

// Collaborator failures. Implementations of FileWriter and CommandRunner wrap
// their errors with these so callers can tell them apart.
var (
	ErrFileWriteFailed = errors.New("file write failed")
	ErrCommandFailed   = errors.New("command failed")
)

// FileWriter writes content to an absolute path, creating parent
// directories. It reports whether the file content changed.
type FileWriter interface {
	WriteFile(ctx context.Context, path, content string) (changed bool, err error)
}

// CommandRunner runs argv in dir to completion, with env added to the
// inherited environment.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, dir string, env []string) error
}

// Observer is notified after every action, successful or not.
type Observer interface {
	ActionFinished(ctx context.Context, index int, result Result, err error)
}

// Result is the outcome of one applied action.
type Result struct {
	Action   plan.Action
	Changed  bool
	Skipped  bool
	Duration time.Duration
}

// Report is the outcome of applying a whole plan.
type Report struct {
	Resource string
	Results  []Result
}

// Changed reports whether any action changed state.
func (r *Report) Changed() bool {
	for _, res := range r.Results {
		if res.Changed {
			return true
		}
	}
	return false
}

// Skipped reports whether the actions were only logged, as in a dry run.
func (r *Report) Skipped() bool {
	return len(r.Results) > 0 && r.Results[0].Skipped
}

// ActionError identifies the action that halted a run.
type ActionError struct {
	Index  int
	Action plan.Action
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d (%s): %v", e.Index+1, e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Executor applies plans.
type Executor struct {
	files    FileWriter
	commands CommandRunner
	dryRun   bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithDryRun makes the executor log every action without performing it.
func WithDryRun(dryRun bool) Option {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// New creates an Executor backed by the given collaborators.
func New(files FileWriter, commands CommandRunner, opts ...Option) *Executor {
	e := &Executor{files: files, commands: commands}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Apply runs every action of p in order. It stops at the first failure or
// when ctx is cancelled between actions. The returned report holds the
// results of every action that was attempted.
func (e *Executor) Apply(ctx context.Context, p *plan.Plan, observers ...Observer) (*Report, error) {
	logger := ctxlog.FromContext(ctx).With("resource", p.Resource)
	report := &Report{Resource: p.Resource}
	logger.Debug("Applying plan.", "actions", len(p.Actions), "dry_run", e.dryRun)

	for i, action := range p.Actions {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		start := time.Now()
		res := Result{Action: action}
		var err error
		if e.dryRun {
			res.Skipped = true
			logger.Info("Dry run, action skipped.", "action", action.String())
		} else {
			res.Changed, err = e.apply(ctx, action)
		}
		res.Duration = time.Since(start)
		report.Results = append(report.Results, res)

		for _, o := range observers {
			o.ActionFinished(ctx, i, res, err)
		}
		if err != nil {
			logger.Error("Action failed.", "index", i, "action", action.String(), "error", err)
			return report, &ActionError{Index: i, Action: action, Err: err}
		}
	}

	logger.Debug("Plan applied.", "changed", report.Changed())
	return report, nil
}

func (e *Executor) apply(ctx context.Context, action plan.Action) (bool, error) {
	logger := ctxlog.FromContext(ctx)
	switch a := action.(type) {
	case plan.WriteFile:
		changed, err := e.files.WriteFile(ctx, a.Path, a.Content)
		if err != nil {
			return false, err
		}
		logger.Info("Local settings written.", "path", a.Path, "size", humanize.Bytes(uint64(len(a.Content))), "changed", changed)
		return changed, nil
	case plan.RunCommand:
		start := time.Now()
		if err := e.commands.Run(ctx, a.Argv, a.Dir, a.Env); err != nil {
			return false, err
		}
		logger.Info("Command finished.", "argv", a.Argv, "dir", a.Dir, "took", time.Since(start).Round(time.Millisecond))
		return true, nil
	default:
		return false, fmt.Errorf("unknown action type %T", action)
	}
}
