// Package harness runs conformance scenarios against the orchestrator.
//
// A scenario seeds a throwaway project with pristine copies of the
// vendored libraries, optionally overwrites or removes files to model a
// partially patched or drifted tree, runs the orchestrator N times and
// asserts on the step outcomes and the resulting tree.
//
// # Scenario Format
//
//	name: rerun_is_noop
//	description: "A second run changes nothing"
//	pristine: ../../../patches/testdata/pristine
//	envs: [esp32dev, native]
//	libraries: [mdxtools, portable_mdx]
//	config: |
//	  patches:
//	    mdxtools: [keyon-staccato]
//	seed:
//	  - library: mdxtools
//	    path: mdx2wav.c
//	    content: "int main(void) { return 0; }"
//	runs: 2
//	triggers: [after-install, before-build]
//	assertions:
//	  - type: status_count
//	    run: 2
//	    status: applied
//	    count: 0
//	  - type: stable
//
// Paths in the pristine field are relative to the scenario file.
// Triggers are cycled across runs and default to "harness".
//
// # Assertion Types
//
//   - contains, not_contains: text in a library file
//   - count: exact number of occurrences of text in a library file
//   - exists, absent: a library file or directory
//   - status: every matching step has the given status
//   - status_count: number of steps with the given status in a run
//   - stable: the tree is byte-identical after every run from the given run on
//
// File assertions look at the tree after the given run (default: the
// last one) in every env unless env is set.
//
// # Deterministic Runs
//
// Runs use sequential run IDs ("run-1", "run-2", ...) and a stepping clock
// starting at testutil.Epoch, so traces compare stably against golden files.
package harness
