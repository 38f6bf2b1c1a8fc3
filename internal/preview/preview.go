// Package preview renders a PDX bank through the sequencer and mixer
// models, one note after another on a single ADPCM track.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/mdxprep/internal/alloc"
	"github.com/roach88/mdxprep/internal/mixer"
	"github.com/roach88/mdxprep/internal/pdx"
	"github.com/roach88/mdxprep/internal/sequencer"
	"github.com/roach88/mdxprep/internal/sinctable"
)

// ErrNoNotes is returned when nothing in the bank can be played.
var ErrNoNotes = errors.New("preview: no playable samples")

// maxTailTicks bounds how long rendering continues after the sequence ends
// while a sample is still sounding.
const maxTailTicks = 4096

// Options configures a preview.
type Options struct {
	// Bank is the raw PDX data.
	Bank []byte

	// BankIndex selects the sample bank (0 = samples 0-95).
	BankIndex int

	// Notes lists the notes to play. Empty plays every non-empty sample of
	// BankIndex.
	Notes []int

	KeyOnDelay int
	Staccato   int // ticks after key-on; negative lets samples run out
	NoteTicks  int
	Bucket     int
	Volume     int

	NativeRate int // mixing rate; zero means mixer.NativeRate
	OutputRate int
	BlockSize  int
	TickRate   int // ticks per second

	// ExternalBytes is the capacity of the simulated external memory that
	// the bank is preferably loaded into. Zero means none.
	ExternalBytes int

	Table3, Table4 sinctable.Table

	Logger *slog.Logger
}

// Result is a rendered preview.
type Result struct {
	Left, Right []int32
	Notes       int
	Ticks       int64
	Region      alloc.Region
	Stats       mixer.Stats
}

// WriteWAV encodes the result at rate.
func (r *Result) WriteWAV(w io.WriteSeeker, rate int) error {
	return mixer.WriteWAV(w, rate, r.Left, r.Right)
}

type sink struct {
	bank     *pdx.File
	renderer *mixer.Renderer
	opts     *Options
	logger   *slog.Logger
}

func (s *sink) NoteOn(t *sequencer.Track) {
	smp, ok := s.bank.Lookup(t.Note, t.Bank)
	if !ok {
		s.logger.Debug("no sample", "note", t.Note, "bank", t.Bank)
		return
	}
	s.renderer.Channels[t.Channel-sequencer.FirstADPCMChannel].Play(smp.Data, s.opts.Bucket, s.opts.Volume, mixer.PanBoth)
}

func (s *sink) NoteOff(t *sequencer.Track) {
	s.renderer.Channels[t.Channel-sequencer.FirstADPCMChannel].Stop()
}

// program builds the track bytes for notes.
func program(opts *Options, notes []int) []byte {
	stacc := byte(sequencer.StaccatoOff)
	if opts.Staccato >= 0 {
		stacc = byte(min(opts.Staccato, 0xFE))
	}
	data := []byte{
		sequencer.CmdKeyOnDelay, byte(min(max(opts.KeyOnDelay, 0), 0xFF)),
		sequencer.CmdStaccato, stacc,
		sequencer.CmdExtended, sequencer.ExtBank, byte(opts.BankIndex),
	}
	length := byte(min(max(opts.NoteTicks, 1), 256) - 1)
	for _, n := range notes {
		data = append(data, byte(0x80+n), length)
	}
	return append(data, sequencer.CmdEnd)
}

func (o *Options) withDefaults() {
	if o.NoteTicks <= 0 {
		o.NoteTicks = 48
	}
	if o.Volume <= 0 {
		o.Volume = mixer.MaxVolume
	}
	if o.OutputRate <= 0 {
		o.OutputRate = 44100
	}
	if o.BlockSize <= 0 {
		o.BlockSize = 512
	}
	if o.TickRate <= 0 {
		o.TickRate = 100
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Render plays the selected notes and returns the mixed output.
func Render(ctx context.Context, opts Options) (*Result, error) {
	opts.withDefaults()

	placement := alloc.Placement{General: alloc.Heap{}}
	if opts.ExternalBytes > 0 {
		placement.External = alloc.NewLimited(opts.ExternalBytes)
	}
	bank, region, err := pdx.LoadInto(placement, opts.Bank)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("bank loaded", "entries", bank.Len(), "bytes", bank.Size(), "region", region)

	notes := opts.Notes
	if len(notes) == 0 {
		for n := 0; n < pdx.BankSize; n++ {
			if _, ok := bank.Lookup(n, opts.BankIndex); ok {
				notes = append(notes, n)
			}
		}
	}
	for _, n := range notes {
		if n < 0 || n >= pdx.BankSize {
			return nil, fmt.Errorf("preview: note %d out of range [0,%d)", n, pdx.BankSize)
		}
	}
	if len(notes) == 0 {
		return nil, ErrNoNotes
	}

	renderer, err := mixer.New(mixer.Options{
		NativeRate: opts.NativeRate,
		OutputRate: opts.OutputRate,
		BlockSize:  opts.BlockSize,
		Table3:     opts.Table3,
		Table4:     opts.Table4,
	})
	if err != nil {
		return nil, err
	}

	track := &sequencer.Track{Channel: sequencer.FirstADPCMChannel, Data: program(&opts, notes)}
	seq := &sequencer.Sequencer{
		Tracks: []*sequencer.Track{track},
		Sink:   &sink{bank: bank, renderer: renderer, opts: &opts, logger: opts.Logger},
	}

	perTick := max(opts.OutputRate/opts.TickRate, 1)
	blockL := make([]int32, opts.BlockSize)
	blockR := make([]int32, opts.BlockSize)
	res := &Result{Notes: len(notes), Region: region}

	tail := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seq.Ended() {
			if !anyActive(renderer) || tail >= maxTailTicks {
				break
			}
			tail++
		}
		seq.Tick()
		for left := perTick; left > 0; {
			n := min(left, opts.BlockSize)
			if err := renderer.Render(blockL[:n], blockR[:n]); err != nil {
				return nil, err
			}
			res.Left = append(res.Left, blockL[:n]...)
			res.Right = append(res.Right, blockR[:n]...)
			left -= n
		}
	}
	res.Ticks = seq.Ticks()
	res.Stats = renderer.Stats()
	return res, nil
}

func anyActive(r *mixer.Renderer) bool {
	for i := range r.Channels {
		if r.Channels[i].Active {
			return true
		}
	}
	return false
}
