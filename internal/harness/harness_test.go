package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Runs, s.runs())
		})
	}
}

func TestRunWithGolden_PSRAM(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/psram_rerun.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func pristine(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "patches", "testdata", "pristine"))
	require.NoError(t, err)
	return dir
}

func TestRun_FailingAssertionsAreReported(t *testing.T) {
	s := &Scenario{
		Name:        "failing",
		Description: "assertions that cannot hold",
		Pristine:    pristine(t),
		Libraries:   []string{"mdxtools"},
		Runs:        2,
		Assertions: []Assertion{
			{Type: AssertStatusCount, Run: 2, Status: "applied", Count: 3},
			{Type: AssertExists, Library: "mdxtools", Path: "stream.h"},
			{Type: AssertStable},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[1], "native/mdxtools/stream.h")
}

func TestRun_NoPristine(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{Libraries: []string{"mdxtools"}})
	assert.ErrorIs(t, err, ErrNoPristine)
}

func TestRun_UnknownPristineLibrary(t *testing.T) {
	s := &Scenario{Pristine: pristine(t), Libraries: []string{"fmgen"}}
	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pristine library fmgen")
}

func TestRun_InvalidConfig(t *testing.T) {
	s := &Scenario{Pristine: pristine(t), Libraries: []string{"mdxtools"}, Config: "table_library: nope\n"}
	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario config")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Scenario{Pristine: pristine(t), Libraries: []string{"mdxtools"}}
	_, err := Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}
