package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/mdxprep/internal/config"
	"github.com/roach88/mdxprep/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // explicit mdxprep.yaml; empty means <project>/mdxprep.yaml
	History string // SQLite run history; empty means the config's history field
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the mdxprep CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mdxprep",
		Short: "mdxprep - prepare vendored MDX/PDX sources for embedded builds",
		Long: `Prune, patch and generate filter tables for the vendored mdxtools and
portable_mdx libraries of a PlatformIO project.

Every step is idempotent: running it on an already prepared tree changes
nothing, so it is safe as a build hook.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default <project>/"+config.FileName+")")
	cmd.PersistentFlags().StringVar(&opts.History, "history", "", "SQLite run history database")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewHookCommand(opts))
	cmd.AddCommand(NewSincCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setupLogging installs a text handler on w as the default logger.
func setupLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// loadConfig reads --config when given, otherwise the project's own file.
func loadConfig(opts *RootOptions, projectDir string) (*config.Config, error) {
	if opts.Config != "" {
		return config.Load(opts.Config)
	}
	return config.LoadProject(projectDir)
}

// openHistory opens the run history named by --history or the config. A
// relative config path is taken from projectDir. It returns nil when
// neither names one.
func openHistory(opts *RootOptions, cfg *config.Config, projectDir string) (*store.Store, error) {
	path := opts.History
	if path == "" && cfg != nil && cfg.History != "" {
		path = cfg.History
		if !filepath.IsAbs(path) {
			path = filepath.Join(projectDir, path)
		}
	}
	if path == "" {
		return nil, nil
	}
	return store.Open(path)
}
