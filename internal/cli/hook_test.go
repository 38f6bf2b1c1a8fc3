package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mdxprep/internal/ir"
	"github.com/roach88/mdxprep/internal/testutil"
)

func TestHook_AfterInstallThenBeforeBuild(t *testing.T) {
	project := testutil.Project(t, []string{"esp32dev"}, "portable_mdx")

	out, err := execute(t, "hook", "after-install", project)
	require.NoError(t, err)
	assert.Equal(t, "mdxprep after-install: 1 applied, 0 present, 0 failed\n", out)

	out, err = execute(t, "hook", "before-build", project, "--format", "json")
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ir.TriggerBeforeBuild, resp.Data.Trigger)
	assert.Equal(t, 1, resp.Data.Count(ir.StatusPresent))
}

func TestHook_NeverFails(t *testing.T) {
	badConfig := testutil.Project(t, []string{"native"}, "portable_mdx")
	writeConfig(t, badConfig, "table_library: nope\n")

	drifted := testutil.Project(t, []string{"native"}, "mdxtools")
	testutil.WriteFile(t, testutil.LibraryDir(drifted, "native", "mdxtools"), "mdx_driver.c", "int x;\n")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown hook", []string{"hook", "post-upload", t.TempDir()}},
		{"no libdeps", []string{"hook", "after-install", t.TempDir()}},
		{"invalid config", []string{"hook", "before-build", badConfig}},
		{"unwritable history", []string{"hook", "before-build", drifted, "--history", t.TempDir()}},
		{"drifted tree", []string{"hook", "before-build", drifted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.NoError(t, err)
		})
	}
}

func TestHook_InvalidConfigLeavesTreeAlone(t *testing.T) {
	project := testutil.Project(t, []string{"native"}, "portable_mdx")
	writeConfig(t, project, "table_library: nope\n")
	before := testutil.Snapshot(t, project)

	out, err := execute(t, "hook", "after-install", project)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, before, testutil.Snapshot(t, project))
}

func TestHook_RequiresName(t *testing.T) {
	_, err := execute(t, "hook")
	require.Error(t, err)
}
