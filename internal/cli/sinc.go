package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/mdxprep/internal/ir"
	"github.com/roach88/mdxprep/internal/sinctable"
)

// SincOptions holds flags for the sinc command.
type SincOptions struct {
	*RootOptions
	Denominator   int
	ZeroCrossings int
	Alpha         float64
	Name          string
	OutDir        string
}

// SincResult is the JSON payload of the sinc command.
type SincResult struct {
	Params  sinctable.Params `json:"params"`
	Key     string           `json:"key"`
	Entries int              `json:"entries"`
	Coeffs  []int16          `json:"coeffs,omitempty"`
	Step    *ir.StepResult   `json:"step,omitempty"`
}

// NewSincCommand creates the sinc command.
func NewSincCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SincOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sinc",
		Short: "Generate a windowed-sinc filter table",
		Long: `Generate the quantized Kaiser-windowed sinc table for a resampler
denominator. Without --out the table is written to stdout in the artifact
layout; with --out it is written (or left alone when its key matches) into
that directory together with its .key sidecar.

Examples:
  mdxprep sinc -d 3 > sinctbl3.h
  mdxprep sinc -d 4 --out .pio/libdeps/esp32dev/mdxtools
  mdxprep sinc -d 4 --zero-crossings 16 --alpha 6 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSinc(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Denominator, "denominator", "d", 0, "resampler denominator D (required)")
	cmd.Flags().IntVar(&opts.ZeroCrossings, "zero-crossings", sinctable.DefaultZeroCrossings, "zero crossings Z per side")
	cmd.Flags().Float64Var(&opts.Alpha, "alpha", sinctable.DefaultAlpha, "Kaiser window alpha")
	cmd.Flags().StringVar(&opts.Name, "name", "", "artifact file name with --out (default sinctbl<D>.h)")
	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "directory to write the artifact into")
	_ = cmd.MarkFlagRequired("denominator")

	return cmd
}

func runSinc(opts *SincOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	params := sinctable.Params{
		Denominator:   opts.Denominator,
		ZeroCrossings: opts.ZeroCrossings,
		Alpha:         opts.Alpha,
	}

	table, err := sinctable.Generate(params)
	if err != nil {
		_ = out.Error("E_PARAMS", err.Error(), params)
		return WrapExitError(ExitCommandError, "invalid table parameters", err)
	}
	key, err := sinctable.Key(params)
	if err != nil {
		_ = out.Error("E_PARAMS", err.Error(), params)
		return WrapExitError(ExitCommandError, "invalid table parameters", err)
	}
	result := SincResult{Params: params, Key: key, Entries: len(table.Coeffs)}

	if opts.OutDir == "" {
		result.Coeffs = table.Coeffs
		return out.Success(result, func(w io.Writer) error {
			_, err := w.Write(table.Bytes())
			return err
		})
	}

	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("sinctbl%d.h", opts.Denominator)
	}
	step := sinctable.NewWriter(slog.Default()).Ensure(opts.OutDir, sinctable.Spec{Name: name, Params: params})
	result.Step = &step
	if err := out.Success(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s: %s (%d entries, key %s)\n", name, step.Status, result.Entries, key[:12])
		return err
	}); err != nil {
		return err
	}
	if step.Status.Failed() {
		return WrapExitError(ExitFailure, "failed to write table", fmt.Errorf("%s", step.Detail))
	}
	return nil
}
