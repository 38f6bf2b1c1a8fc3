package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// PristineDir returns the directory holding unpatched copies of the vendored
// libraries, one subdirectory per library.
func PristineDir(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok, "cannot locate testutil source")
	return filepath.Join(filepath.Dir(file), "..", "patches", "testdata", "pristine")
}

// CopyTree copies the regular files under src into dst, creating dst.
func CopyTree(t testing.TB, src, dst string) {
	t.Helper()
	require.NoError(t, CopyDir(src, dst))
}

// CopyDir is CopyTree for callers without a testing.TB.
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}

// LibraryCopy copies one pristine library into a fresh temp dir and returns
// its root.
func LibraryCopy(t testing.TB, library string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), library)
	CopyTree(t, filepath.Join(PristineDir(t), library), root)
	return root
}

// Project builds a project directory whose .pio/libdeps/<env>/ holds the
// given pristine libraries for every env.
func Project(t testing.TB, envs []string, libraries ...string) string {
	t.Helper()
	project := t.TempDir()
	for _, env := range envs {
		for _, lib := range libraries {
			CopyTree(t, filepath.Join(PristineDir(t), lib), LibraryDir(project, env, lib))
		}
	}
	return project
}

// LibraryDir returns where a library for env lives inside project.
func LibraryDir(project, env, library string) string {
	return filepath.Join(project, ".pio", "libdeps", env, library)
}

// Snapshot reads every regular file under root into a map keyed by slash
// separated relative path.
func Snapshot(t testing.TB, root string) map[string]string {
	t.Helper()
	out, err := SnapshotDir(root)
	require.NoError(t, err)
	return out
}

// SnapshotDir is Snapshot for callers without a testing.TB.
func SnapshotDir(root string) (map[string]string, error) {
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	return out, err
}

// Paths returns the sorted keys of a Snapshot.
func Paths(snapshot map[string]string) []string {
	paths := make([]string, 0, len(snapshot))
	for p := range snapshot {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ReadFile reads a file relative to root and fails the test on error.
func ReadFile(t testing.TB, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// WriteFile writes a file relative to root, creating parent directories.
func WriteFile(t testing.TB, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
