package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mdxprep/internal/config"
	"github.com/roach88/mdxprep/internal/ir"
	"github.com/roach88/mdxprep/internal/patches"
	"github.com/roach88/mdxprep/internal/testutil"
)

var envs = []string{"esp32dev", "native"}

type memRecorder struct {
	reports []ir.RunReport
	err     error
}

func (m *memRecorder) RecordRun(ctx context.Context, report ir.RunReport) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.reports = append(m.reports, report)
	return m.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(cfg *config.Config, opts ...Option) *Engine {
	clock := testutil.NewStepClock()
	base := []Option{
		WithLogger(quietLogger()),
		WithRunIDGenerator(NewSequenceGenerator("run")),
		WithClock(clock.Now),
	}
	return New(cfg, append(base, opts...)...)
}

func newProject(t *testing.T) string {
	return testutil.Project(t, envs, patches.LibMDXTools, patches.LibPortableMDX)
}

func TestRun_FirstRunAppliesEverything(t *testing.T) {
	project := newProject(t)
	e := newTestEngine(nil)

	report, err := e.Run(context.Background(), project, ir.TriggerRun)
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, ir.TriggerRun, report.Trigger)
	assert.Equal(t, testutil.Epoch, report.StartedAt)
	assert.True(t, report.FinishedAt.After(report.StartedAt))
	require.Len(t, report.Instances, 4)

	for _, inst := range report.Instances {
		assert.Zero(t, inst.Count(ir.StatusNotApplicable), "%s/%s", inst.Env, inst.Library)
		assert.Zero(t, inst.Count(ir.StatusIOError), "%s/%s", inst.Env, inst.Library)
		assert.Zero(t, inst.Count(ir.StatusMissing), "%s/%s", inst.Env, inst.Library)
	}

	mdx := report.Instances[0]
	assert.Equal(t, "esp32dev", mdx.Env)
	assert.Equal(t, patches.LibMDXTools, mdx.Library)
	// rename + 2 tables + catalogue
	assert.Equal(t, 1+2+len(patches.All(patches.LibMDXTools)), mdx.Count(ir.StatusApplied))

	root := testutil.LibraryDir(project, "native", patches.LibMDXTools)
	assert.FileExists(t, filepath.Join(root, "sinctbl3.h"))
	assert.FileExists(t, filepath.Join(root, "sinctbl4.h.key"))
	assert.FileExists(t, filepath.Join(root, "stream_mdxtools.h"))
	assert.NoFileExists(t, filepath.Join(root, "stream.h"))
	assert.NoFileExists(t, filepath.Join(testutil.LibraryDir(project, "native", patches.LibPortableMDX), "sinctbl3.h"))

	for _, step := range mdx.Steps {
		if step.Status == ir.StatusApplied && (step.Kind == ir.StepTable || step.Kind == ir.StepPatch) {
			assert.Len(t, step.Hash, 64, step.ID)
		}
	}
}

func TestRun_RepeatedRunsAreNoops(t *testing.T) {
	project := newProject(t)
	e := newTestEngine(nil)

	_, err := e.Run(context.Background(), project, ir.TriggerAfterInstall)
	require.NoError(t, err)
	once := testutil.Snapshot(t, project)

	triggers := []ir.Trigger{ir.TriggerBeforeBuild, ir.TriggerRun, ir.TriggerAfterInstall, ir.TriggerBeforeBuild}
	for _, trigger := range triggers {
		report, err := e.Run(context.Background(), project, trigger)
		require.NoError(t, err)
		assert.Zero(t, report.Count(ir.StatusApplied), trigger)
		assert.Zero(t, report.Count(ir.StatusNotApplicable), trigger)
		assert.Equal(t, once, testutil.Snapshot(t, project), trigger)
	}
}

func TestRun_PartiallyPatchedTree(t *testing.T) {
	project := newProject(t)

	cfg := config.Default()
	cfg.Patches = map[string][]string{patches.LibMDXTools: {string(patches.GroupKeyOn)}}
	_, err := newTestEngine(cfg).Run(context.Background(), project, ir.TriggerRun)
	require.NoError(t, err)

	report, err := newTestEngine(nil).Run(context.Background(), project, ir.TriggerRun)
	require.NoError(t, err)

	mdx := report.Instances[0]
	assert.Equal(t, len(patches.All(patches.LibMDXTools))-1, countKind(mdx, ir.StepPatch, ir.StatusApplied))
	assert.Equal(t, 1, countKind(mdx, ir.StepPatch, ir.StatusPresent))
}

func TestRun_PrunesConfiguredEntries(t *testing.T) {
	project := newProject(t)
	root := testutil.LibraryDir(project, "esp32dev", patches.LibMDXTools)
	testutil.WriteFile(t, root, "mdx2wav.c", "int main(void) { return 0; }\n")
	testutil.WriteFile(t, root, "tests/run.sh", "#!/bin/sh\n")
	testutil.WriteFile(t, root, "adpcm.o", "\x7fELF")

	_, err := newTestEngine(nil).Run(context.Background(), project, ir.TriggerRun)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(root, "mdx2wav.c"))
	assert.NoDirExists(t, filepath.Join(root, "tests"))
	assert.NoFileExists(t, filepath.Join(root, "adpcm.o"))
	assert.FileExists(t, filepath.Join(root, "pdx.c"))
}

func TestRun_NoLibDeps(t *testing.T) {
	_, err := newTestEngine(nil).Run(context.Background(), t.TempDir(), ir.TriggerBeforeBuild)
	assert.True(t, IsNoLibDeps(err))
}

func TestRun_EmptyLibDeps(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, ".pio", "libdeps", "esp32dev"), 0o755))

	report, err := newTestEngine(nil).Run(context.Background(), project, ir.TriggerRun)
	require.NoError(t, err)
	assert.Empty(t, report.Instances)
}

func TestRun_InvalidTrigger(t *testing.T) {
	_, err := newTestEngine(nil).Run(context.Background(), newProject(t), ir.Trigger("post-build"))
	assert.ErrorIs(t, err, ErrInvalidTrigger)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	project := newProject(t)
	before := testutil.Snapshot(t, project)
	rec := &memRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := newTestEngine(nil, WithRecorder(rec)).Run(ctx, project, ir.TriggerRun)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Instances)
	assert.Equal(t, before, testutil.Snapshot(t, project))
	require.Len(t, rec.reports, 1, "cancelled runs are still recorded")
}

func TestRun_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	report, err := newTestEngine(nil, WithRecorder(rec)).Run(context.Background(), newProject(t), ir.TriggerRun)

	require.NoError(t, err)
	require.Len(t, rec.reports, 1)
	assert.Equal(t, report.RunID, rec.reports[0].RunID)
}

func TestRun_ConfigSelectsLibraries(t *testing.T) {
	cfg := config.Default()
	cfg.Libraries = []string{patches.LibPortableMDX}

	report, err := newTestEngine(cfg).Run(context.Background(), newProject(t), ir.TriggerRun)
	require.NoError(t, err)
	require.Len(t, report.Instances, 2)
	for _, inst := range report.Instances {
		assert.Equal(t, patches.LibPortableMDX, inst.Library)
		assert.Equal(t, 1, inst.Count(ir.StatusApplied))
	}
}

func countKind(r ir.InstanceReport, kind ir.StepKind, status ir.Status) int {
	n := 0
	for _, s := range r.Steps {
		if s.Kind == kind && s.Status == status {
			n++
		}
	}
	return n
}
