package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/mdxprep/internal/engine"
	"github.com/roach88/mdxprep/internal/ir"
)

// HookOptions holds flags for the hook command.
type HookOptions struct {
	*RootOptions

	// RunIDs allows overriding the run ID generator (for testing).
	RunIDs engine.RunIDGenerator
}

// hookTriggers maps hook names to run triggers.
var hookTriggers = map[string]ir.Trigger{
	string(ir.TriggerAfterInstall): ir.TriggerAfterInstall,
	string(ir.TriggerBeforeBuild):  ir.TriggerBeforeBuild,
}

// NewHookCommand creates the hook command.
func NewHookCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HookOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hook <after-install|before-build> [project]",
		Short: "Build lifecycle entry point; never fails the build",
		Long: `Run the same preparation as "mdxprep run" from a build lifecycle hook.

The hook always exits 0: problems are logged and the build continues, so a
vendored library that moved on upstream cannot break an unrelated build.

Examples:
  mdxprep hook after-install .
  mdxprep hook before-build $PROJECT_DIR`,
		Args:          cobra.RangeArgs(1, 2),
		ValidArgs:     []string{string(ir.TriggerAfterInstall), string(ir.TriggerBeforeBuild)},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			project := "."
			if len(args) == 2 {
				project = args[1]
			}
			runHook(opts, args[0], project, cmd)
			return nil
		},
	}

	return cmd
}

func runHook(opts *HookOptions, name, projectDir string, cmd *cobra.Command) {
	logger := slog.Default().With("hook", name, "project", projectDir)

	trigger, ok := hookTriggers[name]
	if !ok {
		logger.Warn("unknown hook, nothing done")
		return
	}

	cfg, err := loadConfig(opts.RootOptions, projectDir)
	if err != nil {
		logger.Warn("invalid config, nothing done", "error", err)
		return
	}

	hist, err := openHistory(opts.RootOptions, cfg, projectDir)
	if err != nil {
		logger.Warn("history unavailable, continuing without it", "error", err)
		hist = nil
	}
	if hist != nil {
		defer closeHistory(hist)
	}

	report, err := prepare(cmd.Context(), cfg, hist, opts.RunIDs, projectDir, trigger)
	switch {
	case engine.IsNoLibDeps(err):
		logger.Info("no installed libraries yet")
		return
	case err != nil:
		logger.Warn("hook stopped early", "error", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := out.Success(report, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "mdxprep %s: %d applied, %d present, %d failed\n",
			name, report.Count(ir.StatusApplied), report.Count(ir.StatusPresent), failedSteps(report))
		return err
	}); err != nil {
		logger.Warn("failed to write report", "error", err)
	}
}
