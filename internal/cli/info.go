package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/mdxprep/internal/mdx"
)

// InfoResult is the JSON payload of the info command.
type InfoResult struct {
	Path  string `json:"path"`
	Title string `json:"title"`
	PDX   string `json:"pdx,omitempty"`
	Bank  string `json:"bank,omitempty"` // resolved bank path; empty when not found
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <song.mdx>",
		Short: "Show the title and sample bank of an MDX song",
		Long: `Decode the Shift-JIS title of an MDX song and look up the PDX bank it
names in the song's directory.

Examples:
  mdxprep info song.mdx
  mdxprep info song.mdx --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInfo(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	h, err := mdx.ReadFile(path)
	if err != nil {
		_ = out.Error("E_READ", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read song", err)
	}
	result := InfoResult{Path: path, Title: h.Title, PDX: h.PDX}
	if h.HasPDX() {
		bank, err := mdx.ResolvePDX(path, h)
		switch {
		case err == nil:
			result.Bank = bank
		case !errors.Is(err, mdx.ErrPDXNotFound):
			return WrapExitError(ExitCommandError, "failed to look up bank", err)
		}
	}

	return out.Success(result, func(w io.Writer) error {
		fmt.Fprintf(w, "Title: %s\n", result.Title)
		switch {
		case result.PDX == "":
			fmt.Fprintln(w, "Bank:  none")
		case result.Bank == "":
			fmt.Fprintf(w, "Bank:  %s (not found)\n", result.PDX)
		default:
			fmt.Fprintf(w, "Bank:  %s (%s)\n", result.PDX, result.Bank)
		}
		return nil
	})
}
