package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/mdxprep/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
	RunID string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [project]",
		Short: "Show recorded runs",
		Long: `List the runs recorded in the SQLite history (--history, or the
history field of the project's config), newest first, or show every step of
one run with --run.

The history is an audit log; it never influences what a run patches.

Examples:
  mdxprep history --history .mdxprep.db
  mdxprep history --history .mdxprep.db --run 0192f3c4-...
  mdxprep history ./firmware --limit 5 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			project := "."
			if len(args) == 1 {
				project = args[0]
			}
			return runHistory(opts, project, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of runs to list (0: all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the steps of one run")

	return cmd
}

func runHistory(opts *HistoryOptions, projectDir string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := loadConfig(opts.RootOptions, projectDir)
	if err != nil {
		_ = out.Error("E_CONFIG", err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	hist, err := openHistory(opts.RootOptions, cfg, projectDir)
	if err != nil {
		_ = out.Error("E_HISTORY", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open history", err)
	}
	if hist == nil {
		_ = out.Error("E_HISTORY", "no history database configured", nil)
		return NewExitError(ExitCommandError, "no history database: pass --history or set history in the config")
	}
	defer closeHistory(hist)

	ctx := cmd.Context()
	if opts.RunID != "" {
		report, err := hist.GetRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrNotFound) {
			_ = out.Error("E_NOT_FOUND", err.Error(), nil)
			return WrapExitError(ExitCommandError, "unknown run", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read history", err)
		}
		return out.Success(report, func(w io.Writer) error {
			fmt.Fprintf(w, "Run %s (%s) %s\n", report.RunID, report.Trigger, report.StartedAt.Format(time.RFC3339))
			return writeReport(w, report)
		})
	}

	runs, err := hist.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}
	return out.Success(runs, func(w io.Writer) error {
		if len(runs) == 0 {
			_, err := fmt.Fprintln(w, "No runs recorded.")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tTRIGGER\tSTARTED\tINSTANCES\tAPPLIED\tPRESENT\tFAILED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
				r.RunID, r.Trigger, r.StartedAt.Format(time.RFC3339), r.Instances, r.Applied, r.Present, r.Failed)
		}
		return tw.Flush()
	})
}
