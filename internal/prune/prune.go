// Package prune removes vendored files a firmware build does not need and
// performs best-effort header renames.
//
// Pruning is monotonic: it only ever deletes or moves, never creates, so
// re-running it on an already pruned tree is a no-op. Every failure is
// swallowed and logged; pruning must never abort the pipeline.
package prune

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/mdxprep/internal/ir"
)

// Rule describes what must not exist in a library instance after pruning.
// Entries carry no ordering or priority between them.
type Rule struct {
	// Files are exact paths relative to the library root.
	Files []string `yaml:"files" json:"files"`

	// Globs are filepath.Match patterns relative to the library root.
	Globs []string `yaml:"globs" json:"globs"`

	// Dirs are directories removed recursively.
	Dirs []string `yaml:"dirs" json:"dirs"`

	// Renames maps an old relative path to a new one. A rename happens only
	// when the old path exists and the new one does not.
	Renames map[string]string `yaml:"renames" json:"renames"`
}

// Empty reports whether the rule does nothing.
func (r Rule) Empty() bool {
	return len(r.Files) == 0 && len(r.Globs) == 0 && len(r.Dirs) == 0 && len(r.Renames) == 0
}

// Pruner applies Rules to library roots.
type Pruner struct {
	Logger *slog.Logger

	// removeAll and rename are overridable in tests to inject failures.
	removeAll func(path string) error
	rename    func(oldpath, newpath string) error
}

// New creates a Pruner that logs to logger (nil means slog.Default()).
func New(logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{Logger: logger, removeAll: os.RemoveAll, rename: os.Rename}
}

// Apply prunes root according to rule and returns one result per entry that
// existed. Entries that were already absent produce no result.
func (p *Pruner) Apply(root string, rule Rule) []ir.StepResult {
	var results []ir.StepResult

	for _, rel := range p.targets(root, rule) {
		results = append(results, p.remove(root, rel))
	}
	for _, old := range sortedKeys(rule.Renames) {
		if res, ok := p.renameEntry(root, old, rule.Renames[old]); ok {
			results = append(results, res)
		}
	}
	return results
}

// targets resolves files, globs and dirs to the existing relative paths to
// delete, deduplicated and sorted.
func (p *Pruner) targets(root string, rule Rule) []string {
	seen := make(map[string]bool)
	add := func(rel string) {
		rel = filepath.ToSlash(filepath.Clean(rel))
		if rel == "." || seen[rel] || escapes(rel) {
			return
		}
		if _, err := os.Lstat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			return
		}
		seen[rel] = true
	}

	for _, f := range rule.Files {
		add(f)
	}
	for _, d := range rule.Dirs {
		add(d)
	}
	for _, g := range rule.Globs {
		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(g)))
		if err != nil {
			p.logger().Debug("bad prune pattern", "pattern", g, "error", err)
			continue
		}
		for _, m := range matches {
			rel, err := filepath.Rel(root, m)
			if err != nil {
				continue
			}
			add(rel)
		}
	}

	out := make([]string, 0, len(seen))
	for rel := range seen {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

func (p *Pruner) remove(root, rel string) ir.StepResult {
	res := ir.StepResult{Kind: ir.StepPrune, ID: rel, Path: rel, Status: ir.StatusApplied}
	removeAll := p.removeAll
	if removeAll == nil {
		removeAll = os.RemoveAll
	}
	if err := removeAll(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
		res.Status = ir.StatusIOError
		res.Detail = err.Error()
		p.logger().Debug("prune failed", "path", rel, "error", err)
		return res
	}
	p.logger().Debug("pruned", "path", rel)
	return res
}

func (p *Pruner) renameEntry(root, oldRel, newRel string) (ir.StepResult, bool) {
	if escapes(path.Clean(oldRel)) || escapes(path.Clean(newRel)) {
		return ir.StepResult{}, false
	}
	oldPath := filepath.Join(root, filepath.FromSlash(oldRel))
	newPath := filepath.Join(root, filepath.FromSlash(newRel))
	res := ir.StepResult{Kind: ir.StepRename, ID: oldRel + " -> " + newRel, Path: newRel}

	if _, err := os.Lstat(oldPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			p.logger().Debug("rename source unreadable", "path", oldRel, "error", err)
		}
		return res, false
	}
	if _, err := os.Lstat(newPath); err == nil {
		// Both exist: someone restored the original. Leave both alone.
		res.Status = ir.StatusPresent
		return res, true
	}

	rename := p.rename
	if rename == nil {
		rename = os.Rename
	}
	if err := rename(oldPath, newPath); err != nil {
		res.Status = ir.StatusIOError
		res.Detail = err.Error()
		p.logger().Debug("rename failed", "from", oldRel, "to", newRel, "error", err)
		return res, true
	}
	res.Status = ir.StatusApplied
	p.logger().Debug("renamed", "from", oldRel, "to", newRel)
	return res, true
}

func (p *Pruner) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// escapes reports whether a cleaned relative path leaves the root.
func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
