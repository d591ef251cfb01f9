package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/djangoconverge/internal/config"
	"github.com/specialistvlad/djangoconverge/internal/ctxlog"
	"github.com/specialistvlad/djangoconverge/internal/discovery"
	"github.com/specialistvlad/djangoconverge/internal/executor"
	"github.com/specialistvlad/djangoconverge/internal/fsutil"
	"github.com/specialistvlad/djangoconverge/internal/journal"
	"github.com/specialistvlad/djangoconverge/internal/localexecutor"
)

// ErrLoadConfig wraps every failure to load or validate the declared
// applications.
var ErrLoadConfig = errors.New("failed to load configuration")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger  *slog.Logger
	cfg     *Config
	model   *config.Model
	journal *journal.Journal

	finder   discovery.Finder
	files    executor.FileWriter
	commands executor.CommandRunner
}

// Option replaces one of the App's collaborators, mostly for tests.
type Option func(*App)

// WithFinder replaces the file system search used for path discovery.
func WithFinder(f discovery.Finder) Option {
	return func(a *App) {
		a.finder = f
	}
}

// WithFileWriter replaces the collaborator that writes settings files.
func WithFileWriter(w executor.FileWriter) Option {
	return func(a *App) {
		a.files = w
	}
}

// WithCommandRunner replaces the collaborator that runs management commands.
func WithCommandRunner(r executor.CommandRunner) Option {
	return func(a *App) {
		a.commands = r
	}
}

// NewApp is the constructor for the main application. It builds an isolated
// logger writing to logW, loads every configured application and opens the
// run journal when one is configured.
func NewApp(ctx context.Context, logW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	logger.Debug("Configuration loaded.", "applications", len(model.Applications))

	a := &App{
		logger:   logger,
		cfg:      cfg,
		model:    model,
		finder:   fsutil.WalkFinder{},
		files:    localexecutor.Files{},
		commands: localexecutor.Commands{},
	}
	for _, o := range opts {
		o(a)
	}

	if cfg.JournalPath != "" {
		j, err := journal.Open(ctx, cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		a.journal = j
		logger.Debug("Run journal opened.", "path", cfg.JournalPath)
	}
	return a, nil
}

// Close releases the run journal, if any.
func (a *App) Close() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}

// Model returns the loaded configuration model.
func (a *App) Model() *config.Model {
	return a.model
}

// Context returns ctx carrying the App's logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Select returns the declared applications at paths in the given order, or
// every application when paths is empty.
func (a *App) Select(paths ...string) ([]*config.Application, error) {
	if len(paths) == 0 {
		if len(a.model.Applications) == 0 {
			return nil, errors.New("no applications declared")
		}
		return a.model.Applications, nil
	}
	apps := make([]*config.Application, 0, len(paths))
	for _, p := range paths {
		app := a.model.Find(p)
		if app == nil {
			return nil, fmt.Errorf("application %q is not declared", p)
		}
		apps = append(apps, app)
	}
	return apps, nil
}
