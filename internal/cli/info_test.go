package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSong writes an MDX header naming pdx into dir.
func writeSong(t *testing.T, dir, title, pdx string) string {
	t.Helper()
	raw := append([]byte(title), 0x0d, 0x0a, 0x1a)
	raw = append(raw, pdx...)
	raw = append(raw, 0, 0x00, 0x08)
	path := filepath.Join(dir, "song.mdx")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestInfo_ResolvesBank(t *testing.T) {
	dir := t.TempDir()
	song := writeSong(t, dir, "Opening", "drums")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "DRUMS.PDX"), []byte{0}, 0o644))

	out, err := execute(t, "info", song, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data InfoResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "Opening", resp.Data.Title)
	assert.Equal(t, "drums", resp.Data.PDX)
	assert.Equal(t, filepath.Join(dir, "DRUMS.PDX"), resp.Data.Bank)
}

func TestInfo_Text(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "info", writeSong(t, dir, "FM", ""))
	require.NoError(t, err)
	assert.Equal(t, "Title: FM\nBank:  none\n", out)

	out, err = execute(t, "info", writeSong(t, dir, "PCM", "gone"))
	require.NoError(t, err)
	assert.Contains(t, out, "Bank:  gone (not found)")
}

func TestInfo_NotMDX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.mdx")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	_, err := execute(t, "info", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
