package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/mdxprep/internal/ir"
)

// timeLayout is used for every timestamp column. Fixed width so the
// stored text sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordRun appends a finished run with all of its instances and steps in
// one transaction. A run ID that is already stored is silently ignored, so
// a retried record never duplicates steps.
//
// RecordRun implements engine.Recorder.
func (s *Store) RecordRun(ctx context.Context, report ir.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, trigger, project_dir, started_at, finished_at, tool_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		report.RunID,
		string(report.Trigger),
		report.ProjectDir,
		formatTime(report.StartedAt),
		formatTime(report.FinishedAt),
		ir.ToolVersion,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if n == 0 {
		return tx.Commit()
	}

	for i, inst := range report.Instances {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO instances (run_id, idx, env, library, root)
			VALUES (?, ?, ?, ?, ?)
		`, report.RunID, i, inst.Env, inst.Library, inst.Root); err != nil {
			return fmt.Errorf("record instance %s/%s: %w", inst.Env, inst.Library, err)
		}

		for j, step := range inst.Steps {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO steps (run_id, instance_idx, idx, kind, step_id, path, status, detail, hash)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				report.RunID, i, j,
				string(step.Kind),
				step.ID,
				step.Path,
				string(step.Status),
				step.Detail,
				step.Hash,
			); err != nil {
				return fmt.Errorf("record step %s: %w", step.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
