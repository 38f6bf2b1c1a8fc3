package pdx

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mdxprep/internal/alloc"
)

func samples(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{byte(i), byte(i >> 8), 0x77}
	}
	return out
}

func TestLoad_StandardBank(t *testing.T) {
	f, err := Load(Encode(samples(10)))
	require.NoError(t, err)
	assert.Equal(t, BankSize, f.Len())

	s, ok := f.Lookup(3, 0)
	require.True(t, ok)
	assert.Equal(t, []byte{3, 0, 0x77}, s.Data)

	_, ok = f.Lookup(50, 0)
	assert.False(t, ok, "entry inside directory but empty")
}

func TestLoad_ExtendedBank(t *testing.T) {
	f, err := Load(Encode(samples(200)))
	require.NoError(t, err)
	assert.Equal(t, 200, f.Len())

	s, ok := f.Lookup(4, 1)
	require.True(t, ok)
	assert.Equal(t, []byte{100, 0, 0x77}, s.Data)

	s, ok = f.Lookup(7, 2)
	require.True(t, ok)
	assert.Equal(t, []byte{199, 0, 0x77}, s.Data)
}

func TestLookup_BankBounds(t *testing.T) {
	f, err := Load(Encode(samples(200)))
	require.NoError(t, err)

	tests := []struct {
		name       string
		note, bank int
	}{
		{"past end", 8, 2},
		{"far bank", 0, 3},
		{"negative note", -1, 0},
		{"negative bank", 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := f.Lookup(tt.note, tt.bank)
			assert.False(t, ok)
		})
	}

	var nilFile *File
	_, ok := nilFile.Lookup(0, 0)
	assert.False(t, ok)
}

func TestLoad_MisalignedOffsetFallsBack(t *testing.T) {
	raw := make([]byte, 1024)
	binary.BigEndian.PutUint32(raw[0:], 0x301)
	binary.BigEndian.PutUint32(raw[4:], 4)

	f, err := Load(raw)
	require.NoError(t, err)
	assert.Equal(t, BankSize, f.Len())

	s, ok := f.Lookup(0, 0)
	require.True(t, ok)
	assert.Len(t, s.Data, 4)
}

func TestLoad_OffsetPastEndFallsBack(t *testing.T) {
	raw := make([]byte, 16)
	binary.BigEndian.PutUint32(raw[0:], 0x800)
	binary.BigEndian.PutUint32(raw[4:], 4)

	f, err := Load(raw)
	require.NoError(t, err)
	assert.Equal(t, BankSize, f.Len())
	_, ok := f.Lookup(0, 0)
	assert.False(t, ok)
}

func TestLoad_ClipsLength(t *testing.T) {
	raw := Encode([][]byte{{1, 2, 3, 4}})
	binary.BigEndian.PutUint32(raw[4:], 1000)

	f, err := Load(raw)
	require.NoError(t, err)
	s, ok := f.Lookup(0, 0)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, s.Data)
}

func TestLoad_TooShort(t *testing.T) {
	_, err := Load([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestLoad_ReferencesRawData(t *testing.T) {
	raw := Encode([][]byte{{9, 9}})
	f, err := Load(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), f.Size())

	raw[len(raw)-1] = 1
	s, _ := f.Lookup(0, 0)
	assert.Equal(t, []byte{9, 1}, s.Data)
}

func TestLoadInto_Regions(t *testing.T) {
	raw := Encode(samples(4))

	f, region, err := LoadInto(alloc.Placement{External: alloc.NewLimited(4096), General: alloc.Heap{}}, raw)
	require.NoError(t, err)
	assert.Equal(t, alloc.RegionExternal, region)
	assert.Equal(t, BankSize, f.Len())

	_, region, err = LoadInto(alloc.Placement{External: alloc.NewLimited(16), General: alloc.Heap{}}, raw)
	require.NoError(t, err)
	assert.Equal(t, alloc.RegionGeneral, region)

	_, _, err = LoadInto(alloc.Placement{}, raw)
	assert.ErrorIs(t, err, alloc.ErrExhausted)
}

func TestIndex(t *testing.T) {
	assert.Equal(t, 5, Index(5, 0))
	assert.Equal(t, 101, Index(5, 1))
	assert.Equal(t, 197, Index(5, 2))
}
