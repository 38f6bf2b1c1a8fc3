package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mdxprep/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Pristine is the directory holding one unpatched copy per library.
	// Relative paths are resolved against the scenario file.
	Pristine string `yaml:"pristine,omitempty"`

	// Envs lists the build environments to lay out. Defaults to DefaultEnv.
	Envs []string `yaml:"envs,omitempty"`

	// Libraries lists the pristine libraries copied into every env.
	Libraries []string `yaml:"libraries"`

	// Config is inline mdxprep.yaml content. Empty means defaults.
	Config string `yaml:"config,omitempty"`

	// Seed files are written (or removed) after the pristine copy and
	// before the first run.
	Seed []SeedFile `yaml:"seed,omitempty"`

	// Runs is how many times the orchestrator runs. Defaults to 1.
	Runs int `yaml:"runs,omitempty"`

	// Triggers are cycled across runs. Defaults to ir.TriggerHarness.
	Triggers []string `yaml:"triggers,omitempty"`

	// Assertions validate the run traces and the resulting tree.
	Assertions []Assertion `yaml:"assertions"`
}

// SeedFile overrides one file of a library before the first run.
type SeedFile struct {
	// Env limits the seed to one env. Empty means every env.
	Env     string `yaml:"env,omitempty"`
	Library string `yaml:"library"`
	Path    string `yaml:"path"`
	Content string `yaml:"content,omitempty"`

	// Remove deletes the path instead of writing Content.
	Remove bool `yaml:"remove,omitempty"`
}

// Assertion validates a run trace or the tree after a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Run selects the run (1-based). Zero means the last run, or the
	// first run for stable.
	Run int `yaml:"run,omitempty"`

	// Env and Library filter which instances are checked.
	Env     string `yaml:"env,omitempty"`
	Library string `yaml:"library,omitempty"`

	// Path is a library-relative file (contains, not_contains, count,
	// exists, absent).
	Path string `yaml:"path,omitempty"`

	// Text is the substring for contains, not_contains and count.
	Text string `yaml:"text,omitempty"`

	// Step is the step ID for status.
	Step string `yaml:"step,omitempty"`

	// Status is the expected step status (status, status_count).
	Status string `yaml:"status,omitempty"`

	// Count is the expected number for count and status_count.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertContains    = "contains"
	AssertNotContains = "not_contains"
	AssertCount       = "count"
	AssertExists      = "exists"
	AssertAbsent      = "absent"
	AssertStatus      = "status"
	AssertStatusCount = "status_count"
	AssertStable      = "stable"
)

// DefaultEnv is used when a scenario lists no envs.
const DefaultEnv = "native"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Pristine != "" && !filepath.IsAbs(scenario.Pristine) {
		scenario.Pristine = filepath.Join(filepath.Dir(path), scenario.Pristine)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)

	scenarios := make([]*Scenario, 0, len(matches))
	for _, m := range matches {
		s, err := LoadScenario(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(m), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func (s *Scenario) envs() []string {
	if len(s.Envs) == 0 {
		return []string{DefaultEnv}
	}
	return s.Envs
}

func (s *Scenario) runs() int {
	if s.Runs <= 0 {
		return 1
	}
	return s.Runs
}

// trigger returns the trigger for the zero-based run i.
func (s *Scenario) trigger(i int) ir.Trigger {
	if len(s.Triggers) == 0 {
		return ir.TriggerHarness
	}
	return ir.Trigger(s.Triggers[i%len(s.Triggers)])
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Libraries) == 0 {
		return fmt.Errorf("libraries list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Runs < 0 {
		return fmt.Errorf("runs must be non-negative")
	}

	for i, t := range s.Triggers {
		if !ir.Trigger(t).Valid() {
			return fmt.Errorf("triggers[%d]: unknown trigger %q", i, t)
		}
	}

	for i, seed := range s.Seed {
		if !slices.Contains(s.Libraries, seed.Library) {
			return fmt.Errorf("seed[%d]: library %q is not in libraries", i, seed.Library)
		}
		if seed.Env != "" && !slices.Contains(s.envs(), seed.Env) {
			return fmt.Errorf("seed[%d]: env %q is not in envs", i, seed.Env)
		}
		if err := validateRelPath(seed.Path); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], s.runs()); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, runs int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Run < 0 || a.Run > runs {
		return fmt.Errorf("assertions[%d]: run %d out of range 1..%d", index, a.Run, runs)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertContains, AssertNotContains, AssertCount:
		if a.Library == "" || a.Path == "" {
			return fmt.Errorf("assertions[%d]: library and path are required for %s", index, a.Type)
		}
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertExists, AssertAbsent:
		if a.Library == "" || a.Path == "" {
			return fmt.Errorf("assertions[%d]: library and path are required for %s", index, a.Type)
		}
	case AssertStatus:
		if a.Step == "" {
			return fmt.Errorf("assertions[%d]: step is required for status", index)
		}
		if err := validateStatus(a.Status); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertStatusCount:
		if err := validateStatus(a.Status); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertStable:
		if runs < 2 {
			return fmt.Errorf("assertions[%d]: stable needs at least 2 runs", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Path != "" {
		if err := validateRelPath(a.Path); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}
	return nil
}

func validateStatus(s string) error {
	switch ir.Status(s) {
	case ir.StatusApplied, ir.StatusPresent, ir.StatusNotApplicable, ir.StatusMissing, ir.StatusIOError:
		return nil
	}
	return fmt.Errorf("unknown status %q", s)
}

func validateRelPath(p string) error {
	if p == "" {
		return fmt.Errorf("path is required")
	}
	clean := path.Clean(p)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path %q escapes the library root", p)
	}
	return nil
}
