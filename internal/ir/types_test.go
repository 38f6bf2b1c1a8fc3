package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusClasses(t *testing.T) {
	tests := []struct {
		status  Status
		changed bool
		failed  bool
	}{
		{StatusApplied, true, false},
		{StatusPresent, false, false},
		{StatusNotApplicable, false, true},
		{StatusMissing, false, true},
		{StatusIOError, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.changed, tt.status.Changed())
			assert.Equal(t, tt.failed, tt.status.Failed())
		})
	}
}

func TestRunReportCount(t *testing.T) {
	report := RunReport{
		Instances: []InstanceReport{
			{Steps: []StepResult{{Status: StatusApplied}, {Status: StatusPresent}}},
			{Steps: []StepResult{{Status: StatusApplied}, {Status: StatusMissing}}},
		},
	}

	assert.Equal(t, 2, report.Count(StatusApplied))
	assert.Equal(t, 1, report.Count(StatusPresent))
	assert.Equal(t, 1, report.Count(StatusMissing))
	assert.Equal(t, 0, report.Count(StatusIOError))
	assert.Equal(t, 1, report.Instances[0].Count(StatusApplied))
}

func TestTriggerValid(t *testing.T) {
	for _, tr := range []Trigger{TriggerRun, TriggerAfterInstall, TriggerBeforeBuild, TriggerHarness} {
		assert.True(t, tr.Valid(), tr)
	}
	assert.False(t, Trigger("post-build").Valid())
	assert.False(t, Trigger("").Valid())
}
