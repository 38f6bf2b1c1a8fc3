package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mdxprep/internal/ir"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"runs", "instances", "steps"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found after idempotent opens", table)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	assert.Error(t, err)
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	assert.NoError(t, s.Close())
}

func TestMigrateToV1_AddsHashColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	// A database from before step hashes were recorded.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			trigger TEXT NOT NULL,
			project_dir TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			tool_version TEXT NOT NULL
		);
		CREATE TABLE instances (
			run_id TEXT NOT NULL, idx INTEGER NOT NULL, env TEXT NOT NULL,
			library TEXT NOT NULL, root TEXT NOT NULL,
			PRIMARY KEY (run_id, idx)
		);
		CREATE TABLE steps (
			run_id TEXT NOT NULL, instance_idx INTEGER NOT NULL, idx INTEGER NOT NULL,
			kind TEXT NOT NULL, step_id TEXT NOT NULL, path TEXT NOT NULL,
			status TEXT NOT NULL, detail TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, instance_idx, idx)
		);
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	cols, err := columns(s.db, "steps")
	require.NoError(t, err)
	assert.True(t, cols["hash"])
	assert.NoError(t, s.verifyPragma("user_version", "1"))

	ctx := context.Background()
	require.NoError(t, s.RecordRun(ctx, createTestReport("run-1", 0)))
	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "ab12", got.Instances[0].Steps[2].Hash)
}

func TestRecordRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestReport("run-1", 0)

	require.NoError(t, s.RecordRun(ctx, want))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Trigger, got.Trigger)
	assert.Equal(t, want.ProjectDir, got.ProjectDir)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.True(t, want.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, want.Instances, got.Instances)
}

func TestRecordRun_DuplicateIsIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, createTestReport("run-1", 0)))
	require.NoError(t, s.RecordRun(ctx, createTestReport("run-1", 5)))

	var steps int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM steps").Scan(&steps))
	assert.Equal(t, 5, steps)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, testEpoch.Equal(runs[0].StartedAt), "first record wins")
}

func TestRecordRun_NoInstances(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	report := createTestReport("run-empty", 0)
	report.Instances = nil
	require.NoError(t, s.RecordRun(ctx, report))

	got, err := s.GetRun(ctx, "run-empty")
	require.NoError(t, err)
	assert.Empty(t, got.Instances)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Zero(t, runs[0].Instances)
	assert.Zero(t, runs[0].Applied)
}

func TestRecordRun_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.RecordRun(ctx, createTestReport("run-1", 0)))

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListRuns_NewestFirstWithCounts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// IDs deliberately sort opposite to insertion order.
	for i, id := range []string{"run-c", "run-b", "run-a"} {
		require.NoError(t, s.RecordRun(ctx, createTestReport(id, i)))
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"run-a", "run-b", "run-c"}, []string{runs[0].RunID, runs[1].RunID, runs[2].RunID})

	r := runs[0]
	assert.Equal(t, ir.TriggerBeforeBuild, r.Trigger)
	assert.Equal(t, ir.ToolVersion, r.ToolVersion)
	assert.Equal(t, 2, r.Instances)
	assert.Equal(t, 2, r.Applied)
	assert.Equal(t, 1, r.Present)
	assert.Equal(t, 2, r.Failed)

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestGetRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
