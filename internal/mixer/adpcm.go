package mixer

// OKI MSM6258 4-bit ADPCM, as used by the X68000.

var stepTable = [49]int32{
	16, 17, 19, 21, 23, 25, 28, 31, 34, 37, 41, 45, 50, 55, 60, 66,
	73, 80, 88, 97, 107, 118, 130, 143, 157, 173, 190, 209, 230, 253, 279, 307,
	337, 371, 408, 449, 494, 544, 598, 658, 724, 796, 876, 963, 1060, 1166, 1282, 1411,
	1552,
}

var indexAdjust = [8]int32{-1, -1, -1, -1, 2, 4, 6, 8}

// Decoder holds the state of one ADPCM stream.
type Decoder struct {
	signal int32
	index  int32
}

// Reset returns the decoder to its initial state.
func (d *Decoder) Reset() {
	d.signal = 0
	d.index = 0
}

// Decode consumes one nibble and returns a 16-bit sample.
func (d *Decoder) Decode(nibble byte) int16 {
	step := stepTable[d.index]
	diff := step >> 3
	if nibble&1 != 0 {
		diff += step >> 2
	}
	if nibble&2 != 0 {
		diff += step >> 1
	}
	if nibble&4 != 0 {
		diff += step
	}
	if nibble&8 != 0 {
		diff = -diff
	}
	d.signal = clamp32(d.signal+diff, -2048, 2047)
	d.index = clamp32(d.index+indexAdjust[nibble&7], 0, int32(len(stepTable)-1))
	return int16(d.signal << 4)
}

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
