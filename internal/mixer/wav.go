package mixer

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes interleaved 16-bit stereo PCM from left and right, which
// must have equal length. Samples are clamped to the 16-bit range.
func WriteWAV(w io.WriteSeeker, sampleRate int, left, right []int32) error {
	if len(left) != len(right) {
		return fmt.Errorf("wav: channel lengths differ (%d != %d)", len(left), len(right))
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	data := make([]int, 0, 2*len(left))
	for i := range left {
		data = append(data, clamp16(left[i]), clamp16(right[i]))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: close: %w", err)
	}
	return nil
}

func clamp16(v int32) int {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int(v)
}
