// Package engine is the mdxprep orchestrator.
//
// A run locates every installed copy of each configured library under
// <project>/.pio/libdeps/<env>/<library> and, per copy, prunes unneeded
// files, generates the sinc tables and applies the patch catalogue.
//
// Runs are synchronous and sequential. The same project may be run any
// number of times, from the CLI and from both build hooks; every step
// detects its own effect on disk, so only the first run changes anything.
//
// Failures inside a step are recorded as ir.Status values and never stop
// the remaining steps. Run returns an error only when there is nothing to
// process or the context is cancelled.
package engine
