package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/mdxprep/internal/ir"
)

// RunSummary is one row of the history listing.
type RunSummary struct {
	Seq         int64      `json:"seq"`
	RunID       string     `json:"run_id"`
	Trigger     ir.Trigger `json:"trigger"`
	ProjectDir  string     `json:"project_dir"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
	ToolVersion string     `json:"tool_version"`
	Instances   int        `json:"instances"`
	Applied     int        `json:"applied"`
	Present     int        `json:"present"`
	Failed      int        `json:"failed"`
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means
// all runs.
//
// Returns an empty slice (not nil) when the history is empty.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.seq, r.id, r.trigger, r.project_dir, r.started_at, r.finished_at, r.tool_version,
			(SELECT COUNT(*) FROM instances i WHERE i.run_id = r.id),
			COALESCE(SUM(st.status = ?), 0),
			COALESCE(SUM(st.status = ?), 0),
			COALESCE(SUM(st.status IN (?, ?, ?)), 0)
		FROM runs r
		LEFT JOIN steps st ON st.run_id = r.id
		GROUP BY r.seq
		ORDER BY r.seq DESC
		LIMIT ?
	`,
		string(ir.StatusApplied),
		string(ir.StatusPresent),
		string(ir.StatusNotApplicable), string(ir.StatusMissing), string(ir.StatusIOError),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			sum               RunSummary
			trigger           string
			started, finished string
		)
		if err := rows.Scan(
			&sum.Seq, &sum.RunID, &trigger, &sum.ProjectDir, &started, &finished, &sum.ToolVersion,
			&sum.Instances, &sum.Applied, &sum.Present, &sum.Failed,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		sum.Trigger = ir.Trigger(trigger)
		if sum.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("run %s: started_at: %w", sum.RunID, err)
		}
		if sum.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("run %s: finished_at: %w", sum.RunID, err)
		}
		runs = append(runs, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun reconstructs the full report of one run. Returns ErrNotFound
// for an unknown ID.
func (s *Store) GetRun(ctx context.Context, runID string) (ir.RunReport, error) {
	var (
		report            ir.RunReport
		trigger           string
		started, finished string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, trigger, project_dir, started_at, finished_at
		FROM runs WHERE id = ?
	`, runID).Scan(&report.RunID, &trigger, &report.ProjectDir, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RunReport{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return ir.RunReport{}, fmt.Errorf("query run: %w", err)
	}
	report.Trigger = ir.Trigger(trigger)
	if report.StartedAt, err = parseTime(started); err != nil {
		return ir.RunReport{}, fmt.Errorf("run %s: started_at: %w", runID, err)
	}
	if report.FinishedAt, err = parseTime(finished); err != nil {
		return ir.RunReport{}, fmt.Errorf("run %s: finished_at: %w", runID, err)
	}

	if report.Instances, err = s.readInstances(ctx, runID); err != nil {
		return ir.RunReport{}, err
	}
	if err := s.readSteps(ctx, runID, report.Instances); err != nil {
		return ir.RunReport{}, err
	}
	return report, nil
}

func (s *Store) readInstances(ctx context.Context, runID string) ([]ir.InstanceReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT env, library, root FROM instances
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer rows.Close()

	var out []ir.InstanceReport
	for rows.Next() {
		var inst ir.InstanceReport
		if err := rows.Scan(&inst.Env, &inst.Library, &inst.Root); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instances: %w", err)
	}
	return out, nil
}

func (s *Store) readSteps(ctx context.Context, runID string, instances []ir.InstanceReport) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_idx, kind, step_id, path, status, detail, hash FROM steps
		WHERE run_id = ?
		ORDER BY instance_idx ASC, idx ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idx          int
			kind, status string
			step         ir.StepResult
		)
		if err := rows.Scan(&idx, &kind, &step.ID, &step.Path, &status, &step.Detail, &step.Hash); err != nil {
			return fmt.Errorf("scan step: %w", err)
		}
		if idx < 0 || idx >= len(instances) {
			return fmt.Errorf("step %s references instance %d of %d", step.ID, idx, len(instances))
		}
		step.Kind = ir.StepKind(kind)
		step.Status = ir.Status(status)
		instances[idx].Steps = append(instances[idx].Steps, step)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate steps: %w", err)
	}
	return nil
}
