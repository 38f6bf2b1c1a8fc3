package mixer

import (
	"fmt"

	"github.com/roach88/mdxprep/internal/sinctable"
)

// Resampler converts a stream between two fixed rates. Implementations keep
// their state across calls and never allocate in Resample.
type Resampler interface {
	// InputLen returns how many input samples the next Resample call needs
	// to produce outLen samples.
	InputLen(outLen int) int

	// Resample fills out from in and returns the number of input samples
	// consumed. Missing input is treated as silence.
	Resample(in, out []int32) int
}

// FixedResampler upsamples by Den/Step with a windowed-sinc table whose
// zero crossings fall every Den taps. The output lags the input by
// ZeroCrossings input samples.
type FixedResampler struct {
	coeffs []int16
	den    int64
	step   int64
	half   int64
	hist   []int32
	n      int64 // input samples pushed so far
	t      int64 // position of the next output, in 1/den input samples
}

// NewFixedResampler creates a resampler from table. step must be in
// [1, table.Denominator].
func NewFixedResampler(table sinctable.Table, step int) (*FixedResampler, error) {
	den := table.Params.Denominator
	if den <= 0 || len(table.Coeffs) == 0 {
		return nil, fmt.Errorf("fixed resampler: empty table")
	}
	if step < 1 || step > den {
		return nil, fmt.Errorf("fixed resampler: step %d out of range for denominator %d", step, den)
	}
	half := int64(len(table.Coeffs) - 1)
	return &FixedResampler{
		coeffs: table.Coeffs,
		den:    int64(den),
		step:   int64(step),
		half:   half,
		hist:   make([]int32, 2*half/int64(den)+1),
		t:      -half,
	}, nil
}

// Ratio returns the upsampling ratio as den/step.
func (r *FixedResampler) Ratio() (den, step int) { return int(r.den), int(r.step) }

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// highest returns the newest input index the output at position t reads.
func (r *FixedResampler) highest(t int64) int64 {
	return floorDiv(t+r.half, r.den)
}

// InputLen implements Resampler.
func (r *FixedResampler) InputLen(outLen int) int {
	if outLen <= 0 {
		return 0
	}
	last := r.highest(r.t + int64(outLen-1)*r.step)
	if need := last + 1 - r.n; need > 0 {
		return int(need)
	}
	return 0
}

func (r *FixedResampler) push(v int32) {
	r.hist[r.n%int64(len(r.hist))] = v
	r.n++
}

func (r *FixedResampler) at(i int64) int32 {
	if i < 0 || i < r.n-int64(len(r.hist)) {
		return 0
	}
	return r.hist[i%int64(len(r.hist))]
}

// Resample implements Resampler.
func (r *FixedResampler) Resample(in, out []int32) int {
	k := 0
	for j := range out {
		top := r.highest(r.t)
		for r.n <= top {
			var v int32
			if k < len(in) {
				v = in[k]
				k++
			}
			r.push(v)
		}

		var acc int64
		lo := floorDiv(r.t-r.half+r.den-1, r.den)
		for i := lo; i <= top; i++ {
			m := r.t - i*r.den
			if m < 0 {
				m = -m
			}
			acc += int64(r.at(i)) * int64(r.coeffs[m])
		}
		out[j] = int32(acc >> 15)
		r.t += r.step
	}
	return k
}

// LinearResampler converts between arbitrary integer rates by linear
// interpolation. It serves the output stage.
type LinearResampler struct {
	inRate  int64
	outRate int64
	frac    int64
	prev    int32
	cur     int32
}

// NewLinearResampler creates a resampler from inRate to outRate.
func NewLinearResampler(inRate, outRate int) (*LinearResampler, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("linear resampler: rates must be positive (%d -> %d)", inRate, outRate)
	}
	return &LinearResampler{inRate: int64(inRate), outRate: int64(outRate)}, nil
}

// InputLen implements Resampler.
func (r *LinearResampler) InputLen(outLen int) int {
	if outLen <= 0 {
		return 0
	}
	return int((r.frac + int64(outLen-1)*r.inRate) / r.outRate)
}

// Resample implements Resampler.
func (r *LinearResampler) Resample(in, out []int32) int {
	k := 0
	for j := range out {
		for r.frac >= r.outRate {
			r.prev = r.cur
			r.cur = 0
			if k < len(in) {
				r.cur = in[k]
				k++
			}
			r.frac -= r.outRate
		}
		out[j] = r.prev + int32(int64(r.cur-r.prev)*r.frac/r.outRate)
		r.frac += r.inRate
	}
	return k
}
