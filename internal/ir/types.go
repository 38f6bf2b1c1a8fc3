package ir

import "time"

// Status is the outcome of a single step (prune, table, patch) on one target.
type Status string

const (
	// StatusApplied means the step changed the on-disk tree.
	StatusApplied Status = "applied"

	// StatusPresent means the step's effect was already on disk.
	StatusPresent Status = "present"

	// StatusNotApplicable means the target exists but an anchor, marker or
	// signature was not found (malformed target).
	StatusNotApplicable Status = "not-applicable"

	// StatusMissing means the target file or directory does not exist.
	StatusMissing Status = "missing"

	// StatusIOError means reading or writing the target failed.
	StatusIOError Status = "io-error"
)

// Changed reports whether the status denotes an on-disk mutation.
func (s Status) Changed() bool {
	return s == StatusApplied
}

// Failed reports whether the status is one of the non-fatal failure classes.
func (s Status) Failed() bool {
	switch s {
	case StatusNotApplicable, StatusMissing, StatusIOError:
		return true
	}
	return false
}

// StepKind names the component that produced a StepResult.
type StepKind string

const (
	StepPrune  StepKind = "prune"
	StepRename StepKind = "rename"
	StepTable  StepKind = "table"
	StepPatch  StepKind = "patch"
)

// StepResult records what one step did to one target.
type StepResult struct {
	Kind   StepKind `json:"kind"`
	ID     string   `json:"id"`   // patch ID, table name or pruned entry
	Path   string   `json:"path"` // path relative to the instance root
	Status Status   `json:"status"`
	Detail string   `json:"detail,omitempty"` // error text for io-error, anchor for not-applicable
	Hash   string   `json:"hash,omitempty"`   // ContentHash of what was written, when applied
}

// InstanceReport collects the results for one library instance.
type InstanceReport struct {
	Env     string       `json:"env"`
	Library string       `json:"library"`
	Root    string       `json:"root"`
	Steps   []StepResult `json:"steps"`
}

// Count returns how many steps ended with the given status.
func (r *InstanceReport) Count(s Status) int {
	n := 0
	for _, step := range r.Steps {
		if step.Status == s {
			n++
		}
	}
	return n
}

// Trigger names what invoked the orchestrator.
type Trigger string

const (
	TriggerRun          Trigger = "run"
	TriggerAfterInstall Trigger = "after-install"
	TriggerBeforeBuild  Trigger = "before-build"
	TriggerHarness      Trigger = "harness"
)

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerRun, TriggerAfterInstall, TriggerBeforeBuild, TriggerHarness:
		return true
	}
	return false
}

// RunReport is the result of one orchestrator invocation.
type RunReport struct {
	RunID      string           `json:"run_id"`
	Trigger    Trigger          `json:"trigger"`
	ProjectDir string           `json:"project_dir"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Instances  []InstanceReport `json:"instances"`
}

// Count returns how many steps across all instances ended with the given status.
func (r *RunReport) Count(s Status) int {
	n := 0
	for i := range r.Instances {
		n += r.Instances[i].Count(s)
	}
	return n
}
