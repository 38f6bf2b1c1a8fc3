package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/mdxprep/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// createTestReport creates a run with one mdxtools and one portable_mdx
// instance. minute offsets the timestamps so runs are distinguishable.
func createTestReport(id string, minute int) ir.RunReport {
	start := testEpoch.Add(time.Duration(minute) * time.Minute)
	return ir.RunReport{
		RunID:      id,
		Trigger:    ir.TriggerBeforeBuild,
		ProjectDir: "/work/synth",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Instances: []ir.InstanceReport{
			{
				Env:     "esp32dev",
				Library: "mdxtools",
				Root:    "/work/synth/.pio/libdeps/esp32dev/mdxtools",
				Steps: []ir.StepResult{
					{Kind: ir.StepRename, ID: "stream.h -> stream_mdxtools.h", Path: "stream_mdxtools.h", Status: ir.StatusApplied},
					{Kind: ir.StepTable, ID: "sinctbl3.h", Path: "sinctbl3.h", Status: ir.StatusPresent},
					{Kind: ir.StepPatch, ID: "mix-run", Path: "adpcm_pcm_mix_driver.c", Status: ir.StatusApplied, Hash: "ab12"},
					{Kind: ir.StepPatch, ID: "bank-lookup", Path: "mdx_driver.c", Status: ir.StatusNotApplicable, Detail: "anchor not found"},
				},
			},
			{
				Env:     "esp32dev",
				Library: "portable_mdx",
				Root:    "/work/synth/.pio/libdeps/esp32dev/portable_mdx",
				Steps: []ir.StepResult{
					{Kind: ir.StepPatch, ID: "psram-alloc", Path: "src/mxdrv/mxdrv_context.cpp", Status: ir.StatusMissing},
				},
			},
		},
	}
}
