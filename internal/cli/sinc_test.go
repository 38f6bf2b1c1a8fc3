package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mdxprep/internal/ir"
	"github.com/roach88/mdxprep/internal/sinctable"
)

func TestSinc_Stdout(t *testing.T) {
	out, err := execute(t, "sinc", "-d", "3")
	require.NoError(t, err)

	want := sinctable.MustGenerate(sinctable.Params{Denominator: 3}.WithDefaults())
	assert.Equal(t, string(want.Bytes()), out)
}

func TestSinc_JSON(t *testing.T) {
	out, err := execute(t, "sinc", "-d", "4", "--zero-crossings", "8", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   SincResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 8, resp.Data.Params.ZeroCrossings)
	assert.Len(t, resp.Data.Coeffs, resp.Data.Entries)
	assert.Len(t, resp.Data.Key, 64)
	assert.Nil(t, resp.Data.Step)
}

func TestSinc_OutDir(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "sinc", "-d", "3", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "sinctbl3.h: applied")

	data, err := os.ReadFile(filepath.Join(dir, "sinctbl3.h"))
	require.NoError(t, err)
	want := sinctable.MustGenerate(sinctable.Params{Denominator: 3}.WithDefaults())
	assert.Equal(t, want.Bytes(), data)
	assert.FileExists(t, filepath.Join(dir, "sinctbl3.h"+sinctable.KeySuffix))

	out, err = execute(t, "sinc", "-d", "3", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "sinctbl3.h: "+string(ir.StatusPresent))
}

func TestSinc_CustomName(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "sinc", "-d", "4", "--out", dir, "--name", "filter4.h")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "filter4.h"))
}

func TestSinc_InvalidParams(t *testing.T) {
	_, err := execute(t, "sinc", "-d", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSinc_DenominatorRequired(t *testing.T) {
	_, err := execute(t, "sinc")
	require.Error(t, err)
}
