package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/djangoconverge/internal/config"
	"github.com/specialistvlad/djangoconverge/internal/ctxlog"
	"github.com/specialistvlad/djangoconverge/internal/discovery"
	"github.com/specialistvlad/djangoconverge/internal/executor"
	"github.com/specialistvlad/djangoconverge/internal/journal"
	"github.com/specialistvlad/djangoconverge/internal/plan"
	"github.com/specialistvlad/djangoconverge/internal/settings"
)

// Render returns the local settings overlay for app.
func (a *App) Render(app *config.Application) (string, error) {
	out, err := settings.Render(app.SettingsOptions(), app.Path, settings.WithGenerator(a.cfg.Generator))
	if err != nil {
		return "", fmt.Errorf("application %q: %w", app.Path, err)
	}
	return out, nil
}

// Plan renders the overlay, discovers the project layout and builds the
// convergence plan for app.
func (a *App) Plan(ctx context.Context, app *config.Application) (*plan.Plan, error) {
	ctx = ctxlog.With(a.Context(ctx), "resource", app.Path)

	overlay, err := a.Render(app)
	if err != nil {
		return nil, err
	}
	paths, err := discovery.Resolve(ctx, a.finder, app.Path, app.Overrides())
	if err != nil {
		return nil, fmt.Errorf("application %q: %w", app.Path, err)
	}
	p, err := plan.Build(ctx, plan.Input{
		Resource: app.Path,
		Dir:      app.Path,
		Python:   app.Python,
		Desired:  app.Desired(),
		Paths:    paths,
		Overlay:  overlay,
	})
	if err != nil {
		return nil, fmt.Errorf("application %q: %w", app.Path, err)
	}
	return p, nil
}

// PlanAll builds the plans of apps concurrently. Plans are returned in the
// order of apps; any failure discards them all.
func (a *App) PlanAll(ctx context.Context, apps []*config.Application) ([]*plan.Plan, error) {
	plans := make([]*plan.Plan, len(apps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.WorkerCount)
	for i, app := range apps {
		g.Go(func() error {
			p, err := a.Plan(gctx, app)
			if err != nil {
				return err
			}
			plans[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

// Outcome is the result of converging one application.
type Outcome struct {
	Resource string
	// Report is nil when the application could not be planned.
	Report *executor.Report
	Err    error
}

// Apply converges apps, up to WorkerCount at a time. Applications are
// independent: a failure in one does not stop the others. Outcomes are
// returned in the order of apps and the returned error joins every failure.
func (a *App) Apply(ctx context.Context, apps []*config.Application) ([]Outcome, error) {
	ctx = a.Context(ctx)
	exec := executor.New(a.files, a.commands, executor.WithDryRun(a.cfg.DryRun))

	outcomes := make([]Outcome, len(apps))
	var g errgroup.Group
	g.SetLimit(a.cfg.WorkerCount)
	for i, app := range apps {
		g.Go(func() error {
			report, err := a.apply(ctx, exec, app)
			outcomes[i] = Outcome{Resource: app.Path, Report: report, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	errs := make([]error, 0, len(outcomes))
	for _, o := range outcomes {
		errs = append(errs, o.Err)
	}
	return outcomes, errors.Join(errs...)
}

func (a *App) apply(ctx context.Context, exec *executor.Executor, app *config.Application) (*executor.Report, error) {
	logger := ctxlog.FromContext(ctx).With("resource", app.Path)

	p, err := a.Plan(ctx, app)
	if err != nil {
		logger.Error("Planning failed.", "error", err)
		return nil, err
	}

	var observers []executor.Observer
	var run *journal.Run
	if a.journal != nil && !a.cfg.DryRun {
		run, err = a.journal.Begin(ctx, app.Path)
		if err != nil {
			return nil, err
		}
		observers = append(observers, run)
	}

	report, runErr := exec.Apply(ctx, p, observers...)
	if run != nil {
		if err := run.Finish(ctx, report, runErr); err != nil {
			logger.Warn("Failed to journal run.", "run_id", run.ID, "error", err)
		}
	}
	if runErr != nil {
		return report, fmt.Errorf("application %q: %w", app.Path, runErr)
	}
	logger.Info("Application converged.", "actions", len(report.Results), "changed", report.Changed())
	return report, nil
}

// History lists recorded runs for resource, newest first. An empty resource
// lists every run.
func (a *App) History(ctx context.Context, resource string, limit int) ([]journal.RunRecord, error) {
	if a.journal == nil {
		return nil, errors.New("no run journal configured")
	}
	return a.journal.Runs(a.Context(ctx), resource, limit)
}

// RunActions lists the recorded actions of one run.
func (a *App) RunActions(ctx context.Context, runID string) ([]journal.ActionRecord, error) {
	if a.journal == nil {
		return nil, errors.New("no run journal configured")
	}
	return a.journal.Actions(a.Context(ctx), runID)
}
