package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/specialistvlad/djangoconverge/internal/fsutil"
)

func newRenderCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "render [APP_PATH]",
		Short: "Print the local settings overlay of an application",
		Long: `Print the local settings overlay of the application declared at APP_PATH.
APP_PATH may be omitted when exactly one application is declared.`,
		Args: withArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			apps, err := a.Select(args...)
			if err != nil {
				return usageError(err)
			}
			if len(apps) != 1 {
				return usageError(errors.New("several applications are declared; name one with APP_PATH"))
			}
			out, err := a.Render(apps[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func newPlanCmd(opts *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "plan [APP_PATH...]",
		Short: "Show the actions apply would take",
		Long: `Show the ordered actions that apply would take for each named
application, or for every declared application when none is named.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := planEncoder(format)
			if err != nil {
				return usageError(err)
			}
			a, err := opts.newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			apps, err := a.Select(args...)
			if err != nil {
				return usageError(err)
			}
			plans, err := a.PlanAll(cmd.Context(), apps)
			if err != nil {
				return err
			}
			return enc(cmd.OutOrStdout(), plans)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "text", "Output format. Options: 'text', 'json' or 'yaml'.")
	return cmd
}

func newApplyCmd(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "apply [APP_PATH...]",
		Short: "Converge applications to their declared state",
		Long: `Write each application's local settings overlay and run its management
commands, for every named application or every declared one when none is named.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			defer a.Close()

			apps, err := a.Select(args...)
			if err != nil {
				return usageError(err)
			}
			outcomes, applyErr := a.Apply(cmd.Context(), apps)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "APPLICATION\tACTIONS\tCHANGED\tSTATUS")
			for _, o := range outcomes {
				status, actions, changed := "ok", 0, false
				if o.Report != nil {
					actions, changed = len(o.Report.Results), o.Report.Changed()
					if o.Report.Skipped() {
						status = "dry-run"
					}
				}
				if o.Err != nil {
					status = "failed"
				}
				fmt.Fprintf(w, "%s\t%d\t%t\t%s\n", o.Resource, actions, changed, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return applyErr
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log every action without performing it.")
	return cmd
}

func newFindCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "find ROOT NAME",
		Short: "Print the canonical file named NAME under ROOT",
		Long: `Print the file named NAME under ROOT that path discovery would choose:
the shallowest match, ties broken lexically.`,
		Args: withArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok, err := fsutil.FindFile(args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return &ExitError{Code: 1, Message: fmt.Sprintf("no file named %s under %s", args[1], args[0])}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [APP_PATH]",
		Short: "List recorded convergence runs",
		Args:  withArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.journal == "" {
				return usageError(errors.New("history requires --journal"))
			}
			a, err := opts.newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			resource := ""
			if len(args) == 1 {
				resource = args[0]
			}
			runs, err := a.History(cmd.Context(), resource, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tAPPLICATION\tSTARTED\tDURATION\tSTATUS\tCHANGED")
			for _, run := range runs {
				duration := "-"
				if !run.FinishedAt.IsZero() {
					duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
					run.ID, run.Resource, humanize.Time(run.StartedAt), duration, run.Status, run.Changed)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to list. 0 lists all.")
	return cmd
}
