package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mdxprep/internal/ir"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ResolvesPristine(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/psram_rerun.yaml")
	require.NoError(t, err)

	assert.Equal(t, "psram_rerun", s.Name)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "..", "..", "..", "patches", "testdata", "pristine"), s.Pristine)
	assert.Equal(t, []string{"esp32dev"}, s.envs())
	assert.Equal(t, 2, s.runs())
	assert.Equal(t, ir.TriggerAfterInstall, s.trigger(0))
	assert.Equal(t, ir.TriggerBeforeBuild, s.trigger(1))
	assert.Equal(t, ir.TriggerAfterInstall, s.trigger(2))
}

func TestLoadScenario_Defaults(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, `
name: defaults
description: "defaults"
libraries: [mdxtools]
assertions:
  - type: status_count
    status: applied
`))
	require.NoError(t, err)
	assert.Empty(t, s.Pristine)
	assert.Equal(t, []string{DefaultEnv}, s.envs())
	assert.Equal(t, 1, s.runs())
	assert.Equal(t, ir.TriggerHarness, s.trigger(5))
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	_, err := LoadScenario("testdata/invalid/typo.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_RejectsUnknownTrigger(t *testing.T) {
	_, err := LoadScenario("testdata/invalid/bad_trigger.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post-build")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	assert.Error(t, err)
}

func TestLoadScenarios_SortedByFile(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"drifted_tree", "full_rerun", "prune_tools", "psram_rerun", "selected_groups"}, names)
}

func TestValidateScenario(t *testing.T) {
	base := func() Scenario {
		return Scenario{
			Name:        "x",
			Description: "x",
			Libraries:   []string{"mdxtools"},
			Runs:        2,
			Assertions:  []Assertion{{Type: AssertStable}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Scenario)
		errMsg string
	}{
		{"valid", func(*Scenario) {}, ""},
		{"no name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"no description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no libraries", func(s *Scenario) { s.Libraries = nil }, "libraries list is required"},
		{"no assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"negative runs", func(s *Scenario) { s.Runs = -1 }, "runs must be non-negative"},
		{"stable needs reruns", func(s *Scenario) { s.Runs = 1 }, "stable needs at least 2 runs"},
		{"seed unknown library", func(s *Scenario) {
			s.Seed = []SeedFile{{Library: "portable_mdx", Path: "a.c"}}
		}, "not in libraries"},
		{"seed unknown env", func(s *Scenario) {
			s.Seed = []SeedFile{{Env: "esp32dev", Library: "mdxtools", Path: "a.c"}}
		}, "not in envs"},
		{"seed escapes root", func(s *Scenario) {
			s.Seed = []SeedFile{{Library: "mdxtools", Path: "../../x.c"}}
		}, "escapes the library root"},
		{"run out of range", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertStatusCount, Status: "applied", Run: 3}}
		}, "run 3 out of range"},
		{"unknown type", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: "trace_contains"}}
		}, "unknown assertion type"},
		{"contains needs text", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertContains, Library: "mdxtools", Path: "pdx.c"}}
		}, "text is required"},
		{"exists needs path", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertExists, Library: "mdxtools"}}
		}, "library and path are required"},
		{"status needs step", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertStatus, Status: "applied"}}
		}, "step is required"},
		{"unknown status", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertStatusCount, Status: "skipped"}}
		}, `unknown status "skipped"`},
		{"negative count", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertStatusCount, Status: "applied", Count: -1}}
		}, "count must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(&s)
			err := validateScenario(&s)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
