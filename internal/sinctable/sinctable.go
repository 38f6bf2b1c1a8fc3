// Package sinctable generates the quantized windowed-sinc tables the
// vendored fixed-ratio resampler includes as compiled-in constants.
//
// A table is the non-negative half of a Kaiser-windowed sinc low-pass kernel
// sampled at 1/D of the input sample spacing: N+1 signed 16-bit coefficients
// for n in [0, N], N = Z*D. Generation is pure and deterministic in
// (D, Z, alpha).
package sinctable

import (
	"bytes"
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultZeroCrossings is the number of sinc zero crossings on each side.
	DefaultZeroCrossings = 26

	// DefaultAlpha is the Kaiser window shape parameter.
	DefaultAlpha = 5.0

	// besselTerms is the number of series terms used for I0.
	besselTerms = 50

	// fullScale is the quantization scale and clamp bound.
	fullScale = 32767
)

// ErrInvalidParams is returned for non-positive denominators or crossings.
var ErrInvalidParams = errors.New("sinctable: denominator and zero crossings must be positive")

// Params selects a table.
type Params struct {
	Denominator   int     `yaml:"denominator" json:"denominator"`
	ZeroCrossings int     `yaml:"zero_crossings" json:"zero_crossings"`
	Alpha         float64 `yaml:"alpha" json:"alpha"`
}

// WithDefaults fills zero ZeroCrossings and Alpha with the defaults.
func (p Params) WithDefaults() Params {
	if p.ZeroCrossings == 0 {
		p.ZeroCrossings = DefaultZeroCrossings
	}
	if p.Alpha == 0 {
		p.Alpha = DefaultAlpha
	}
	return p
}

// HalfLength returns N = Z*D, the last valid table index.
func (p Params) HalfLength() int {
	return p.ZeroCrossings * p.Denominator
}

func (p Params) validate() error {
	if p.Denominator <= 0 || p.ZeroCrossings <= 0 {
		return fmt.Errorf("%w: D=%d Z=%d", ErrInvalidParams, p.Denominator, p.ZeroCrossings)
	}
	if math.IsNaN(p.Alpha) || math.IsInf(p.Alpha, 0) {
		return fmt.Errorf("%w: alpha=%v", ErrInvalidParams, p.Alpha)
	}
	return nil
}

// Table is a generated coefficient table.
type Table struct {
	Params Params
	Coeffs []int16
}

// Generate computes the table for p. Coefficient n is
// round(w(n) * sinc(n*pi/D) * 32767) clamped to +-32767, where w is the
// Kaiser window I0(alpha*pi*sqrt(1-(n/N)^2)) / I0(alpha*pi).
func Generate(p Params) (Table, error) {
	if err := p.validate(); err != nil {
		return Table{}, err
	}

	n := p.HalfLength()
	coeffs := make([]int16, n+1)
	norm := BesselI0(p.Alpha * math.Pi)
	for i := 0; i <= n; i++ {
		r := float64(i) / float64(n)
		w := BesselI0(p.Alpha*math.Pi*math.Sqrt(1-r*r)) / norm
		c := w * sinc(float64(i)*math.Pi/float64(p.Denominator))
		coeffs[i] = quantize(c)
	}
	return Table{Params: p, Coeffs: coeffs}, nil
}

// MustGenerate is like Generate but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustGenerate(p Params) Table {
	t, err := Generate(p)
	if err != nil {
		panic(err)
	}
	return t
}

// BesselI0 approximates the zeroth-order modified Bessel function of the
// first kind by its power series truncated to 50 terms.
func BesselI0(x float64) float64 {
	sum := 0.0
	term := 1.0
	half := x / 2
	for k := 0; k < besselTerms; k++ {
		if k > 0 {
			term *= half / float64(k)
		}
		sum += term * term
	}
	return sum
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(x) / x
}

func quantize(c float64) int16 {
	q := math.Round(c * fullScale)
	if q > fullScale {
		q = fullScale
	}
	if q < -fullScale {
		q = -fullScale
	}
	return int16(q)
}

// Format renders coefficients in the artifact layout: one integer per line,
// right-justified to width 6 and followed by a comma.
func Format(coeffs []int16) []byte {
	var buf bytes.Buffer
	buf.Grow(len(coeffs) * 8)
	for _, c := range coeffs {
		fmt.Fprintf(&buf, "%6d,\n", c)
	}
	return buf.Bytes()
}

// Bytes returns the artifact content for the table.
func (t Table) Bytes() []byte {
	return Format(t.Coeffs)
}
