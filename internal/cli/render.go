package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mdxprep/internal/alloc"
	"github.com/roach88/mdxprep/internal/config"
	"github.com/roach88/mdxprep/internal/mdx"
	"github.com/roach88/mdxprep/internal/mixer"
	"github.com/roach88/mdxprep/internal/preview"
	"github.com/roach88/mdxprep/internal/sinctable"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Out           string
	Bank          int
	Notes         []int
	KeyOnDelay    int
	Staccato      int
	NoteTicks     int
	Bucket        int
	Volume        int
	Rate          int
	BlockSize     int
	TickRate      int
	ExternalBytes int
}

// RenderResult is the JSON payload of the render command.
type RenderResult struct {
	Out     string       `json:"out"`
	Title   string       `json:"title,omitempty"`
	Bank    string       `json:"bank"`
	Rate    int          `json:"rate"`
	Notes   int          `json:"notes"`
	Ticks   int64        `json:"ticks"`
	Samples int          `json:"samples"`
	Region  alloc.Region `json:"region"`
	Stats   mixer.Stats  `json:"stats"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <bank.pdx|song.mdx>",
		Short: "Preview a PDX bank through the reference mixer",
		Long: `Sequence the samples of a PDX bank with key-on delay and staccato,
mix them through the bucketed reference mixer and write a stereo WAV.

Given an MDX song, the bank it names is looked up next to it.

Filter tables and the output rate come from the config (see --config) unless
overridden by flags.

Examples:
  mdxprep render drums.pdx -o preview.wav
  mdxprep render song.mdx -o preview.wav
  mdxprep render song.pdx -o bank1.wav --bank 1 --notes 0,4,7 --staccato 12
  mdxprep render song.pdx -o slow.wav --bucket 0 --external-bytes 4194304`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "WAV file to write (required)")
	cmd.Flags().IntVar(&opts.Bank, "bank", 0, "sample bank (notes map to bank*96+note)")
	cmd.Flags().IntSliceVar(&opts.Notes, "notes", nil, "notes to play (default: every sample in the bank)")
	cmd.Flags().IntVar(&opts.KeyOnDelay, "key-on-delay", 0, "ticks between note start and key-on")
	cmd.Flags().IntVar(&opts.Staccato, "staccato", -1, "ticks from key-on to key-off (negative: let samples run out)")
	cmd.Flags().IntVar(&opts.NoteTicks, "note-ticks", 48, "ticks per note")
	cmd.Flags().IntVar(&opts.Bucket, "bucket", mixer.NativeBucket, "frequency bucket 0-4 (4 is native rate)")
	cmd.Flags().IntVar(&opts.Volume, "volume", mixer.MaxVolume, "channel volume")
	cmd.Flags().IntVar(&opts.Rate, "rate", 0, "output rate (default: config render.output_rate)")
	cmd.Flags().IntVar(&opts.BlockSize, "block-size", 0, "mix block size (default: config render.block_size)")
	cmd.Flags().IntVar(&opts.TickRate, "tick-rate", 100, "sequencer ticks per second")
	cmd.Flags().IntVar(&opts.ExternalBytes, "external-bytes", 0, "simulated external RAM for the bank (0: none)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runRender(opts *RenderOptions, bankPath string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := loadConfig(opts.RootOptions, ".")
	if err != nil {
		_ = out.Error("E_CONFIG", err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	if opts.Bucket < 0 || opts.Bucket >= mixer.NumBuckets {
		return NewExitError(ExitCommandError, fmt.Sprintf("bucket %d out of range [0,%d)", opts.Bucket, mixer.NumBuckets))
	}

	var title string
	if isMDX(bankPath) {
		h, err := mdx.ReadFile(bankPath)
		if err != nil {
			_ = out.Error("E_READ", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read song", err)
		}
		resolved, err := mdx.ResolvePDX(bankPath, h)
		if err != nil {
			_ = out.Error("E_NO_BANK", err.Error(), nil)
			return WrapExitError(ExitCommandError, "song has no usable bank", err)
		}
		title, bankPath = h.Title, resolved
	}

	bank, err := os.ReadFile(bankPath)
	if err != nil {
		_ = out.Error("E_READ", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read bank", err)
	}

	table3, err := tableFor(cfg, 3)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid table", err)
	}
	table4, err := tableFor(cfg, 4)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid table", err)
	}

	rate := opts.Rate
	if rate <= 0 {
		rate = cfg.Render.OutputRate
	}
	block := opts.BlockSize
	if block <= 0 {
		block = cfg.Render.BlockSize
	}

	res, err := preview.Render(cmd.Context(), preview.Options{
		Bank:          bank,
		BankIndex:     opts.Bank,
		Notes:         opts.Notes,
		KeyOnDelay:    opts.KeyOnDelay,
		Staccato:      opts.Staccato,
		NoteTicks:     opts.NoteTicks,
		Bucket:        opts.Bucket,
		Volume:        opts.Volume,
		NativeRate:    cfg.Render.NativeRate,
		OutputRate:    rate,
		BlockSize:     block,
		TickRate:      opts.TickRate,
		ExternalBytes: opts.ExternalBytes,
		Table3:        table3,
		Table4:        table4,
		Logger:        slog.Default(),
	})
	if errors.Is(err, preview.ErrNoNotes) {
		_ = out.Error("E_NO_NOTES", err.Error(), nil)
		return WrapExitError(ExitFailure, "nothing to render", err)
	}
	if err != nil {
		_ = out.Error("E_RENDER", err.Error(), nil)
		return WrapExitError(ExitCommandError, "render failed", err)
	}

	if err := writeWAVFile(opts.Out, res, rate); err != nil {
		_ = out.Error("E_WRITE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write WAV", err)
	}

	result := RenderResult{
		Out:     opts.Out,
		Title:   title,
		Bank:    bankPath,
		Rate:    rate,
		Notes:   res.Notes,
		Ticks:   res.Ticks,
		Samples: len(res.Left),
		Region:  res.Region,
		Stats:   res.Stats,
	}
	return out.Success(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s: %d notes, %d ticks, %d frames at %d Hz (bank in %s memory, %d of %d blocks silent)\n",
			result.Out, result.Notes, result.Ticks, result.Samples, result.Rate, result.Region,
			result.Stats.SilentBlocks, result.Stats.Blocks)
		return err
	})
}

func isMDX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mdx")
}

// tableFor returns the configured table with denominator d, or the default
// parameters for d when the config has none.
func tableFor(cfg *config.Config, d int) (sinctable.Table, error) {
	params := sinctable.Params{Denominator: d}
	for _, spec := range cfg.Tables {
		if spec.Denominator == d {
			params = spec.Params
			break
		}
	}
	return sinctable.Generate(params.WithDefaults())
}

func writeWAVFile(path string, res *preview.Result, rate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := res.WriteWAV(f, rate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
