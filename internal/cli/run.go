package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/mdxprep/internal/config"
	"github.com/roach88/mdxprep/internal/engine"
	"github.com/roach88/mdxprep/internal/ir"
	"github.com/roach88/mdxprep/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Strict bool

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to engine.UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [project]",
		Short: "Prepare every vendored library instance of a project",
		Long: `Prune, generate tables and patch every vendored library found under
<project>/.pio/libdeps/<env>/. The project defaults to the current directory.

Steps that find their target missing or unrecognisable are reported but do
not fail the command unless --strict is given.

Exit codes:
  0 - Prepared (or nothing installed yet)
  1 - Failed steps with --strict, or interrupted
  2 - Command error (invalid config, unreadable history)

Examples:
  mdxprep run
  mdxprep run ./firmware --history .mdxprep.db
  mdxprep run ./firmware --format json --strict`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			project := "."
			if len(args) == 1 {
				project = args[0]
			}
			return runPrepare(opts, project, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit 1 when any step is missing, not applicable or failed")

	return cmd
}

func runPrepare(opts *RunOptions, projectDir string, cmd *cobra.Command) error {
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
	if hist != nil {
		defer closeHistory(hist)
	}

	report, err := prepare(cmd.Context(), cfg, hist, opts.RunIDs, projectDir, ir.TriggerRun)
	if engine.IsNoLibDeps(err) {
		return out.Success(map[string]string{"message": err.Error()}, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Nothing to prepare: %v (install dependencies first)\n", err)
			return err
		})
	}
	if err != nil {
		return WrapExitError(ExitFailure, "run interrupted", err)
	}

	if err := out.Success(report, func(w io.Writer) error { return writeReport(w, report) }); err != nil {
		return err
	}
	if n := failedSteps(report); opts.Strict && n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d step(s) failed", n))
	}
	return nil
}

// prepare runs the orchestrator once, stopping between whole-file writes
// on SIGINT or SIGTERM.
func prepare(ctx context.Context, cfg *config.Config, hist *store.Store, ids engine.RunIDGenerator, projectDir string, trigger ir.Trigger) (ir.RunReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engOpts := []engine.Option{engine.WithLogger(slog.Default())}
	if hist != nil {
		engOpts = append(engOpts, engine.WithRecorder(hist))
	}
	if ids != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(ids))
	}
	report, err := engine.New(cfg, engOpts...).Run(ctx, projectDir, trigger)
	if errors.Is(err, context.Canceled) {
		slog.Warn("run interrupted", "run", report.RunID, "instances_done", len(report.Instances))
	}
	return report, err
}

func closeHistory(s *store.Store) {
	if err := s.Close(); err != nil {
		slog.Error("error closing history", "error", err)
	}
}
