package mdx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// "テスト" in Shift-JIS.
var sjisTest = []byte{0x83, 0x65, 0x83, 0x58, 0x83, 0x67}

func song(title []byte, pdx string) []byte {
	raw := append([]byte{}, title...)
	raw = append(raw, titleEnd...)
	raw = append(raw, pdx...)
	raw = append(raw, 0)
	return append(raw, 0x00, 0x10, 0xff)
}

func TestParse(t *testing.T) {
	raw := song(append(append([]byte{}, sjisTest...), " 01"...), "DRUMS")

	h, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "テスト 01", h.Title)
	assert.Equal(t, "DRUMS", h.PDX)
	assert.True(t, h.HasPDX())
	assert.Equal(t, len(raw)-3, h.DataOffset)
}

func TestParse_NoBank(t *testing.T) {
	h, err := Parse(song([]byte("fm only"), ""))
	require.NoError(t, err)
	assert.Equal(t, "fm only", h.Title)
	assert.False(t, h.HasPDX())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("no terminator"))
	assert.ErrorIs(t, err, ErrNotMDX)

	raw := append([]byte("title"), titleEnd...)
	raw = append(raw, "BANK"...)
	_, err = Parse(raw)
	assert.ErrorIs(t, err, ErrNoPDXName)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mdx")
	require.NoError(t, os.WriteFile(path, song([]byte("x"), "a.pdx"), 0o644))

	h, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a.pdx", h.PDX)

	_, err = ReadFile(filepath.Join(t.TempDir(), "none.mdx"))
	assert.Error(t, err)
}

func TestResolvePDX(t *testing.T) {
	dir := t.TempDir()
	mdxPath := filepath.Join(dir, "song.mdx")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Drums.pdx"), []byte{0}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BASS.PDX"), []byte{0}, 0o644))

	tests := []struct {
		name string
		pdx  string
		want string
	}{
		{"exact case", "Drums.pdx", "Drums.pdx"},
		{"case insensitive", "DRUMS.PDX", "Drums.pdx"},
		{"implied extension", "bass", "BASS.PDX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePDX(mdxPath, Header{PDX: tt.pdx})
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.want), got)
		})
	}

	_, err := ResolvePDX(mdxPath, Header{PDX: "piano"})
	assert.ErrorIs(t, err, ErrPDXNotFound)

	_, err = ResolvePDX(mdxPath, Header{})
	assert.ErrorIs(t, err, ErrPDXNotFound)
}
