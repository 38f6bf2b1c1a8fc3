// Package pdx reads PDX sample banks: a directory of 8-byte entries
// (big-endian offset, big-endian length) followed by raw ADPCM data.
//
// A bank may hold more than 96 entries. The directory size is taken from
// the lowest sample offset, and a sample is addressed by note + bank*96.
package pdx

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/roach88/mdxprep/internal/alloc"
)

// BankSize is the number of samples one bank addresses.
const BankSize = 96

const entrySize = 8

// ErrTooShort is returned for data shorter than one directory entry.
var ErrTooShort = errors.New("pdx: data shorter than one directory entry")

// Sample references raw ADPCM bytes inside the loaded data. Nothing is
// decoded ahead of playback.
type Sample struct {
	Data []byte
}

// Empty reports whether the sample has no data.
func (s Sample) Empty() bool { return len(s.Data) == 0 }

// File is a loaded bank.
type File struct {
	Samples []Sample
	raw     []byte
}

// Len returns the number of directory entries.
func (f *File) Len() int { return len(f.Samples) }

// Size returns the size of the underlying data.
func (f *File) Size() int { return len(f.raw) }

// entryCount derives the directory size from the lowest nonzero offset
// among the first BankSize entries. It falls back to BankSize when that
// offset is not 8-byte aligned or lies outside the data.
func entryCount(raw []byte) int {
	var lowest uint32
	for i := 0; i < BankSize && (i+1)*entrySize <= len(raw); i++ {
		off := binary.BigEndian.Uint32(raw[i*entrySize:])
		if off != 0 && (lowest == 0 || off < lowest) {
			lowest = off
		}
	}
	if lowest == 0 || lowest%entrySize != 0 || uint64(lowest) > uint64(len(raw)) {
		return BankSize
	}
	return int(lowest / entrySize)
}

// Load parses raw. Samples reference raw directly. Entries whose data lies
// outside raw are empty; lengths running past the end are clipped.
func Load(raw []byte) (*File, error) {
	if len(raw) < entrySize {
		return nil, ErrTooShort
	}
	n := entryCount(raw)
	f := &File{Samples: make([]Sample, n), raw: raw}
	for i := 0; i < n && (i+1)*entrySize <= len(raw); i++ {
		off := binary.BigEndian.Uint32(raw[i*entrySize:])
		size := binary.BigEndian.Uint32(raw[i*entrySize+4:])
		if off == 0 || size == 0 || uint64(off) >= uint64(len(raw)) {
			continue
		}
		end := uint64(off) + uint64(size)
		if end > uint64(len(raw)) {
			end = uint64(len(raw))
		}
		f.Samples[i] = Sample{Data: raw[off:end]}
	}
	return f, nil
}

// LoadInto copies raw into a block from p and parses the copy, so the
// bank lives in whichever memory region served the allocation.
func LoadInto(p alloc.Placement, raw []byte) (*File, alloc.Region, error) {
	block, err := p.Alloc(len(raw))
	if err != nil {
		return nil, "", fmt.Errorf("pdx: %w", err)
	}
	copy(block.Data, raw)
	f, err := Load(block.Data)
	if err != nil {
		return nil, "", err
	}
	return f, block.Region, nil
}

// Index returns the effective sample index for a note in a bank.
func Index(note, bank int) int {
	return note + bank*BankSize
}

// Lookup returns the sample for note in bank. It reports false when the
// index is out of range or the entry is empty.
func (f *File) Lookup(note, bank int) (Sample, bool) {
	if f == nil {
		return Sample{}, false
	}
	idx := Index(note, bank)
	if idx < 0 || idx >= len(f.Samples) {
		return Sample{}, false
	}
	s := f.Samples[idx]
	if s.Empty() {
		return Sample{}, false
	}
	return s, true
}

// Encode builds a bank holding samples in order. Empty samples get a zero
// directory entry. The directory has exactly len(samples) entries, or
// BankSize entries when samples is shorter than that.
func Encode(samples [][]byte) []byte {
	n := len(samples)
	if n < BankSize {
		n = BankSize
	}
	size := n * entrySize
	for _, s := range samples {
		size += len(s)
	}
	out := make([]byte, n*entrySize, size)
	for i, s := range samples {
		if len(s) == 0 {
			continue
		}
		binary.BigEndian.PutUint32(out[i*entrySize:], uint32(len(out)))
		binary.BigEndian.PutUint32(out[i*entrySize+4:], uint32(len(s)))
		out = append(out, s...)
	}
	return out
}
