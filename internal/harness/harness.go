package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/mdxprep/internal/config"
	"github.com/roach88/mdxprep/internal/engine"
	"github.com/roach88/mdxprep/internal/testutil"
)

// ErrNoPristine is returned when a scenario has no pristine tree to copy.
var ErrNoPristine = errors.New("scenario has no pristine tree")

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary project that is removed
// afterwards. Execution flow:
//  1. Copy the pristine libraries into .pio/libdeps/<env>/ for every env
//  2. Apply seed files
//  3. Run the orchestrator Runs times, snapshotting the tree after each
//  4. Evaluate assertions
//
// An error is returned only when the scenario cannot be executed; failed
// assertions are reported through Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if scenario.Pristine == "" {
		return nil, ErrNoPristine
	}

	cfg := config.Default()
	if scenario.Config != "" {
		var err error
		if cfg, err = config.Parse([]byte(scenario.Config)); err != nil {
			return nil, fmt.Errorf("scenario config: %w", err)
		}
	}

	project, err := os.MkdirTemp("", "mdxprep-harness-*")
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	defer os.RemoveAll(project)

	if err := seedProject(project, scenario); err != nil {
		return nil, err
	}

	clock := testutil.NewStepClock()
	eng := engine.New(cfg,
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithRunIDGenerator(engine.NewSequenceGenerator("run")),
		engine.WithClock(clock.Now),
	)

	result := NewResult()
	libdeps := filepath.Join(project, engine.LibDepsDir)
	snapshots := make([]map[string]string, 0, scenario.runs())
	for i := 0; i < scenario.runs(); i++ {
		report, err := eng.Run(ctx, project, scenario.trigger(i))
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		result.AddRun(i+1, report)

		snap, err := testutil.SnapshotDir(libdeps)
		if err != nil {
			return nil, fmt.Errorf("snapshot after run %d: %w", i+1, err)
		}
		snapshots = append(snapshots, snap)
	}

	actx := &AssertionContext{Envs: scenario.envs(), Snapshots: snapshots}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func seedProject(project string, scenario *Scenario) error {
	for _, env := range scenario.envs() {
		for _, lib := range scenario.Libraries {
			src := filepath.Join(scenario.Pristine, lib)
			if _, err := os.Stat(src); err != nil {
				return fmt.Errorf("pristine library %s: %w", lib, err)
			}
			if err := testutil.CopyDir(src, testutil.LibraryDir(project, env, lib)); err != nil {
				return fmt.Errorf("copy %s for %s: %w", lib, env, err)
			}
		}
	}

	for i, seed := range scenario.Seed {
		for _, env := range scenario.envs() {
			if seed.Env != "" && seed.Env != env {
				continue
			}
			target := filepath.Join(testutil.LibraryDir(project, env, seed.Library), filepath.FromSlash(seed.Path))
			if err := applySeed(target, seed); err != nil {
				return fmt.Errorf("seed[%d]: %w", i, err)
			}
		}
	}
	return nil
}

func applySeed(target string, seed SeedFile) error {
	if seed.Remove {
		return os.RemoveAll(target)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, []byte(seed.Content), 0o644)
}
