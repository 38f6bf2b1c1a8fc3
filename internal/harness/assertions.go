package harness

import (
	"fmt"
	"maps"
	"path"
	"strings"

	"github.com/roach88/mdxprep/internal/ir"
	"github.com/roach88/mdxprep/internal/testutil"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// AssertionContext carries what assertions evaluate against besides the
// run traces.
type AssertionContext struct {
	// Envs are the scenario's build environments.
	Envs []string

	// Snapshots holds the libdeps tree after each run, keyed by
	// "<env>/<library>/<path>".
	Snapshots []map[string]string
}

// EvaluateAssertions checks every assertion and returns the failure
// messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertContains, AssertNotContains, AssertCount, AssertExists, AssertAbsent:
		snap, err := snapshotFor(actx, a.Run)
		if err != nil {
			return err
		}
		for _, env := range envsFor(actx, a) {
			if err := assertFile(snap, env, a); err != nil {
				return err
			}
		}
		return nil
	case AssertStatus:
		run, err := runFor(result, a.Run)
		if err != nil {
			return err
		}
		return assertStatus(run, a)
	case AssertStatusCount:
		run, err := runFor(result, a.Run)
		if err != nil {
			return err
		}
		return assertStatusCount(run, a)
	case AssertStable:
		return assertStable(actx, a.Run)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func snapshotFor(actx *AssertionContext, run int) (map[string]string, error) {
	if len(actx.Snapshots) == 0 {
		return nil, fmt.Errorf("no runs recorded")
	}
	if run == 0 {
		run = len(actx.Snapshots)
	}
	if run < 1 || run > len(actx.Snapshots) {
		return nil, fmt.Errorf("run %d out of range 1..%d", run, len(actx.Snapshots))
	}
	return actx.Snapshots[run-1], nil
}

func runFor(result *Result, run int) (RunTrace, error) {
	if len(result.Runs) == 0 {
		return RunTrace{}, fmt.Errorf("no runs recorded")
	}
	if run == 0 {
		run = len(result.Runs)
	}
	if run < 1 || run > len(result.Runs) {
		return RunTrace{}, fmt.Errorf("run %d out of range 1..%d", run, len(result.Runs))
	}
	return result.Runs[run-1], nil
}

func envsFor(actx *AssertionContext, a Assertion) []string {
	if a.Env != "" {
		return []string{a.Env}
	}
	return actx.Envs
}

// assertFile checks a file assertion against one env's copy of a library.
func assertFile(snap map[string]string, env string, a Assertion) error {
	key := path.Join(env, a.Library, path.Clean(a.Path))
	content, isFile := snap[key]
	exists := isFile || hasPrefix(snap, key+"/")

	switch a.Type {
	case AssertExists:
		if !exists {
			return &AssertionError{Type: a.Type, Expected: key + " to exist", Actual: "not found"}
		}
		return nil
	case AssertAbsent:
		if exists {
			return &AssertionError{Type: a.Type, Expected: key + " to be absent", Actual: "present"}
		}
		return nil
	}

	if !isFile {
		return &AssertionError{Type: a.Type, Expected: "file " + key, Actual: "not found"}
	}
	n := strings.Count(content, a.Text)
	switch a.Type {
	case AssertContains:
		if n == 0 {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s to contain %q", key, a.Text), Actual: "not found"}
		}
	case AssertNotContains:
		if n > 0 {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s not to contain %q", key, a.Text), Actual: fmt.Sprintf("%d occurrences", n)}
		}
	case AssertCount:
		if n != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d occurrences of %q in %s", a.Count, a.Text, key), Actual: fmt.Sprintf("%d occurrences", n)}
		}
	}
	return nil
}

func hasPrefix(snap map[string]string, prefix string) bool {
	for k := range snap {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func matches(step TraceStep, a Assertion) bool {
	return (a.Env == "" || step.Env == a.Env) && (a.Library == "" || step.Library == a.Library)
}

// assertStatus requires at least one step with the given ID and every such
// step to have the expected status.
func assertStatus(run RunTrace, a Assertion) error {
	found := 0
	for _, step := range run.Steps {
		if step.ID != a.Step || !matches(step, a) {
			continue
		}
		found++
		if step.Status != ir.Status(a.Status) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("run %d: %s in %s/%s to be %s", run.Run, a.Step, step.Env, step.Library, a.Status),
				Actual:   string(step.Status),
			}
		}
	}
	if found == 0 {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("run %d: step %s", run.Run, a.Step), Actual: "not found"}
	}
	return nil
}

func assertStatusCount(run RunTrace, a Assertion) error {
	n := 0
	for _, step := range run.Steps {
		if matches(step, a) && step.Status == ir.Status(a.Status) {
			n++
		}
	}
	if n != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("run %d: %d steps %s", run.Run, a.Count, a.Status),
			Actual:   fmt.Sprintf("%d", n),
		}
	}
	return nil
}

// assertStable requires every snapshot from run `from` on to be identical.
func assertStable(actx *AssertionContext, from int) error {
	if from == 0 {
		from = 1
	}
	if from < 1 || from > len(actx.Snapshots) {
		return fmt.Errorf("run %d out of range 1..%d", from, len(actx.Snapshots))
	}
	base := actx.Snapshots[from-1]
	for i := from; i < len(actx.Snapshots); i++ {
		snap := actx.Snapshots[i]
		if maps.Equal(base, snap) {
			continue
		}
		return &AssertionError{
			Type:     AssertStable,
			Expected: fmt.Sprintf("tree after run %d identical to run %d", i+1, from),
			Actual:   "differs at " + firstDiff(base, snap),
		}
	}
	return nil
}

func firstDiff(a, b map[string]string) string {
	union := make(map[string]string, len(a)+len(b))
	maps.Copy(union, a)
	maps.Copy(union, b)
	for _, p := range testutil.Paths(union) {
		av, aok := a[p]
		bv, bok := b[p]
		if aok != bok || av != bv {
			return p
		}
	}
	return "?"
}
