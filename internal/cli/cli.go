package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/djangoconverge/internal/app"
	"github.com/specialistvlad/djangoconverge/internal/hcl"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// options are the process flags shared by every subcommand.
type options struct {
	configPaths []string
	logFormat   string
	logLevel    string
	workers     int
	journal     string
	generator   string

	outW io.Writer
	errW io.Writer
}

// Execute parses args and runs the selected subcommand. Command output goes
// to outW; logs go to errW. Usage and configuration errors are returned as
// *ExitError with code 2.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	slog.Debug("CLI parser started.")
	opts := &options{outW: outW, errW: errW}
	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetOut(outW)
	root.SetErr(errW)

	started := false
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		started = true
	}

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if !started {
		// Unknown subcommands and similar parse failures never reach a RunE.
		return usageError(err)
	}
	return err
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "djangoconverge",
		Short: "Converge Django applications to their declared state",
		Long: `djangoconverge reads application_django declarations from HCL files,
renders each application's local settings overlay, discovers its project
layout and runs the requested management commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := root.PersistentFlags()
	flags.StringSliceVarP(&opts.configPaths, "config", "c", nil, "Path to an .hcl file or a directory of .hcl files (repeatable).")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.IntVar(&opts.workers, "workers", 4, "Number of applications converged concurrently.")
	flags.StringVar(&opts.journal, "journal", "", "Path to the SQLite run journal. Empty disables journaling.")
	flags.StringVar(&opts.generator, "generator", "", "Name written in the header of rendered settings files.")

	root.AddCommand(
		newRenderCmd(opts),
		newPlanCmd(opts),
		newApplyCmd(opts),
		newFindCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

// newApp validates the shared flags and loads the declared applications.
func (o *options) newApp(ctx context.Context, dryRun bool) (*app.App, error) {
	cfg, err := app.NewConfig(app.Config{
		ConfigPaths: o.configPaths,
		LogFormat:   o.logFormat,
		LogLevel:    o.logLevel,
		WorkerCount: o.workers,
		JournalPath: o.journal,
		DryRun:      dryRun,
		Generator:   o.generator,
	})
	if err != nil {
		return nil, usageError(err)
	}
	a, err := app.NewApp(ctx, o.errW, cfg, hcl.NewLoader())
	if errors.Is(err, app.ErrLoadConfig) {
		return nil, usageError(err)
	}
	return a, err
}

// withArgs turns positional argument errors into usage errors.
func withArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}
