package harness

import "github.com/roach88/mdxprep/internal/ir"

// TraceStep is one step outcome with the machine-specific root stripped.
type TraceStep struct {
	Env     string      `json:"env"`
	Library string      `json:"library"`
	Kind    ir.StepKind `json:"kind"`
	ID      string      `json:"id"`
	Path    string      `json:"path"`
	Status  ir.Status   `json:"status"`
}

// RunTrace records one orchestrator run of a scenario.
type RunTrace struct {
	Run     int         `json:"run"`
	RunID   string      `json:"run_id"`
	Trigger ir.Trigger  `json:"trigger"`
	Steps   []TraceStep `json:"steps"`
}

// Count returns how many steps ended with status s.
func (r RunTrace) Count(s ir.Status) int {
	n := 0
	for _, step := range r.Steps {
		if step.Status == s {
			n++
		}
	}
	return n
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Runs holds one trace per orchestrator run, in order.
	Runs []RunTrace `json:"runs"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Runs:   []RunTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRun appends the trace of report as run number n.
func (r *Result) AddRun(n int, report ir.RunReport) {
	trace := RunTrace{Run: n, RunID: report.RunID, Trigger: report.Trigger, Steps: []TraceStep{}}
	for _, inst := range report.Instances {
		for _, step := range inst.Steps {
			trace.Steps = append(trace.Steps, TraceStep{
				Env:     inst.Env,
				Library: inst.Library,
				Kind:    step.Kind,
				ID:      step.ID,
				Path:    step.Path,
				Status:  step.Status,
			})
		}
	}
	r.Runs = append(r.Runs, trace)
}
