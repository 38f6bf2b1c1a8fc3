// Package mixer is the Go model of the ADPCM mixing path installed into
// mdxtools: eight channels grouped by playback rate into five buckets,
// one resampler pass per non-empty bucket, an optional output resampler,
// and a silent-block short cut.
//
// All buffers are sized in New for the largest block; Render does not
// allocate.
package mixer

import (
	"errors"
	"fmt"

	"github.com/roach88/mdxprep/internal/sinctable"
)

const (
	NumChannels = 8
	NumBuckets  = 5

	// NativeBucket plays at the native rate without a bucket resampler.
	NativeBucket = NumBuckets - 1

	// NativeRate is the mixing rate in Hz.
	NativeRate = 15625

	// MaxVolume is unity gain.
	MaxVolume = 16
)

// Pan bits.
const (
	PanLeft  uint8 = 1 << 0
	PanRight uint8 = 1 << 1
	PanBoth        = PanLeft | PanRight
)

// ErrBlockSize is returned when Render is given mismatched or oversized
// output buffers.
var ErrBlockSize = errors.New("mixer: bad block size")

// bucketRatios lists den/step per bucket: x4, x3, x2, x1.5.
var bucketRatios = [NativeBucket]struct{ den, step int }{
	{4, 1}, {3, 1}, {4, 2}, {3, 2},
}

// Channel is one ADPCM voice.
type Channel struct {
	Active bool
	Bucket int
	Pan    uint8
	Volume int

	data []byte
	pos  int // nibble position
	dec  Decoder
}

// Play starts data on the channel.
func (c *Channel) Play(data []byte, bucket int, volume int, pan uint8) {
	if bucket < 0 || bucket > NativeBucket {
		bucket = NativeBucket
	}
	c.dec.Reset()
	c.data = data
	c.pos = 0
	c.Bucket = bucket
	c.Volume = volume
	c.Pan = pan & PanBoth
	c.Active = len(data) > 0
}

// Stop silences the channel.
func (c *Channel) Stop() { c.Active = false }

// decode fills dst, low nibble first. The channel deactivates at the end
// of its data and the remainder of dst is zero.
func (c *Channel) decode(dst []int32) {
	for i := range dst {
		if !c.Active || c.pos >= len(c.data)*2 {
			c.Active = false
			dst[i] = 0
			continue
		}
		b := c.data[c.pos/2]
		nibble := b & 0x0f
		if c.pos&1 != 0 {
			nibble = b >> 4
		}
		dst[i] = int32(c.dec.Decode(nibble)) * int32(c.Volume) / MaxVolume
		c.pos++
	}
}

// Options configures a Renderer.
type Options struct {
	// NativeRate is the rate the channels are mixed at. Zero means the
	// NativeRate constant.
	NativeRate int

	// OutputRate is the rate Render produces. Equal to the native rate means
	// no output resampler.
	OutputRate int

	// BlockSize is the largest block Render accepts.
	BlockSize int

	// Table3 and Table4 are the D=3 and D=4 filter tables.
	Table3, Table4 sinctable.Table
}

// Stats counts resampler work, for tests and diagnostics.
type Stats struct {
	Blocks          int
	SilentBlocks    int
	BucketResamples int
	OutputResamples int
}

// Renderer mixes the channels into a stereo block.
type Renderer struct {
	Channels [NumChannels]Channel

	buckets [NativeBucket]Resampler
	outL    Resampler // nil when the output rate is the native rate
	outR    Resampler
	block   int
	mixSize int
	native  int

	mixL, mixR []int32
	decodeBuf  []int32
	bucketBuf  []int32
	bucketOut  []int32

	stats Stats
}

// New creates a renderer and allocates every buffer it will use.
func New(opts Options) (*Renderer, error) {
	if opts.BlockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBlockSize, opts.BlockSize)
	}
	if opts.OutputRate <= 0 {
		return nil, fmt.Errorf("mixer: output rate must be positive, got %d", opts.OutputRate)
	}

	native := opts.NativeRate
	if native == 0 {
		native = NativeRate
	}
	if native < 0 {
		return nil, fmt.Errorf("mixer: native rate must be positive, got %d", native)
	}

	r := &Renderer{block: opts.BlockSize, mixSize: opts.BlockSize, native: native}
	for b, ratio := range bucketRatios {
		table := opts.Table4
		if ratio.den == 3 {
			table = opts.Table3
		}
		if table.Params.Denominator != ratio.den {
			return nil, fmt.Errorf("mixer: bucket %d needs a D=%d table, got D=%d", b, ratio.den, table.Params.Denominator)
		}
		fr, err := NewFixedResampler(table, ratio.step)
		if err != nil {
			return nil, fmt.Errorf("mixer: bucket %d: %w", b, err)
		}
		r.buckets[b] = fr
	}

	if opts.OutputRate != native {
		// one resampler per side so each keeps its own position
		for _, side := range []*Resampler{&r.outL, &r.outR} {
			lr, err := NewLinearResampler(native, opts.OutputRate)
			if err != nil {
				return nil, err
			}
			*side = lr
		}
		// worst case over any phase, plus the sample held across calls
		r.mixSize = (opts.BlockSize*native)/opts.OutputRate + 2
	}

	bucketSize := r.mixSize
	for _, ratio := range bucketRatios {
		if n := r.mixSize*ratio.step/ratio.den + 2; n > bucketSize {
			bucketSize = n
		}
	}
	r.mixL = make([]int32, r.mixSize)
	r.mixR = make([]int32, r.mixSize)
	r.decodeBuf = make([]int32, bucketSize)
	r.bucketBuf = make([]int32, bucketSize)
	r.bucketOut = make([]int32, r.mixSize)
	return r, nil
}

// HasOutputResampler reports whether an output resampler exists.
func (r *Renderer) HasOutputResampler() bool { return r.outL != nil }

// NativeRate returns the rate the channels are mixed at.
func (r *Renderer) NativeRate() int { return r.native }

// BlockSize returns the largest block Render accepts.
func (r *Renderer) BlockSize() int { return r.block }

// Stats returns counters accumulated since New.
func (r *Renderer) Stats() Stats { return r.stats }

// MixLen returns the number of native-rate samples needed for an output
// block of n samples.
func (r *Renderer) MixLen(n int) int {
	if r.outL == nil {
		return n
	}
	return r.outL.InputLen(n)
}

func (r *Renderer) anyActive() bool {
	for i := range r.Channels {
		if r.Channels[i].Active {
			return true
		}
	}
	return false
}

// Render fills outL and outR, which must have the same length of at most
// BlockSize.
func (r *Renderer) Render(outL, outR []int32) error {
	n := len(outL)
	if len(outR) != n || n > r.block {
		return fmt.Errorf("%w: %d/%d, max %d", ErrBlockSize, len(outL), len(outR), r.block)
	}
	r.stats.Blocks++

	if !r.anyActive() {
		clear(outL)
		clear(outR)
		r.stats.SilentBlocks++
		return nil
	}

	mixLen := min(r.MixLen(n), r.mixSize)
	mixL, mixR := r.mixL[:mixLen], r.mixR[:mixLen]
	clear(mixL)
	clear(mixR)

	for b := 0; b < NumBuckets; b++ {
		need := mixLen
		if b < NativeBucket {
			need = min(r.buckets[b].InputLen(mixLen), len(r.bucketBuf))
		}
		acc := r.bucketBuf[:need]
		used := false
		var pan uint8
		for i := range r.Channels {
			c := &r.Channels[i]
			if !c.Active || c.Bucket != b {
				continue
			}
			if !used {
				clear(acc)
				used = true
			}
			pan |= c.Pan
			dec := r.decodeBuf[:need]
			c.decode(dec)
			for k, v := range dec {
				acc[k] += v
			}
		}
		if !used {
			continue
		}

		src := acc
		if b < NativeBucket {
			src = r.bucketOut[:mixLen]
			r.buckets[b].Resample(acc, src)
			r.stats.BucketResamples++
		}
		for k, v := range src {
			if pan&PanLeft != 0 {
				mixL[k] += v
			}
			if pan&PanRight != 0 {
				mixR[k] += v
			}
		}
	}

	if r.outL == nil {
		copy(outL, mixL)
		copy(outR, mixR)
		return nil
	}
	r.outL.Resample(mixL, outL)
	r.outR.Resample(mixR, outR)
	r.stats.OutputResamples++
	return nil
}
