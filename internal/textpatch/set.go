package textpatch

import (
	"fmt"
	"path/filepath"

	"github.com/roach88/mdxprep/internal/ir"
)

// Set is a group of patches that only compile together, typically a header
// field and the source that uses it. A Set is installed whole or not at all.
type Set struct {
	Name    string
	Patches []Patch
}

// target is one file touched by a Set, held in memory until commit.
type target struct {
	path     string
	original string
	current  string
	status   ir.Status // read failure class; empty when the file was read
	detail   string
}

// ApplySet rewrites every file of s in memory and writes them only when each
// member ends applied or present. Otherwise nothing is written, and members
// that would have applied are reported not-applicable, naming the member
// that blocked them. A write failure restores the files already written.
func (a *Applier) ApplySet(root string, s Set) []ir.StepResult {
	results := make([]ir.StepResult, len(s.Patches))
	targets := make(map[string]*target)
	var order []string
	blocker := -1

	for i, p := range s.Patches {
		res := ir.StepResult{Kind: ir.StepPatch, ID: p.ID, Path: p.Path}

		t, ok := targets[p.Path]
		if !ok {
			t = &target{path: filepath.Join(root, filepath.FromSlash(p.Path))}
			t.original, t.status, t.detail = readTarget(t.path)
			t.current = t.original
			targets[p.Path] = t
			order = append(order, p.Path)
		}

		if t.status != "" {
			res.Status, res.Detail = t.status, t.detail
		} else {
			out, status := p.Rewrite(t.current)
			res.Status = status
			if status == ir.StatusApplied {
				t.current = out
				res.Hash = ir.ContentHash([]byte(out))
			}
		}

		if res.Status.Failed() && blocker < 0 {
			blocker = i
		}
		results[i] = res
	}

	if blocker >= 0 {
		b := results[blocker]
		for i := range results {
			if results[i].Status == ir.StatusApplied {
				results[i].Status = ir.StatusNotApplicable
				results[i].Hash = ""
				results[i].Detail = fmt.Sprintf("%s not installed: %s is %s", s.Name, b.ID, b.Status)
			}
		}
		a.logger().Info("patch set not installed", "set", s.Name, "blocked_by", b.ID, "status", b.Status)
	} else if err := a.commit(targets, order); err != nil {
		for i := range results {
			if results[i].Status == ir.StatusApplied {
				results[i].Status = ir.StatusIOError
				results[i].Hash = ""
				results[i].Detail = err.Error()
			}
		}
	}

	for _, res := range results {
		a.log(res)
	}
	return results
}

// commit writes every changed target in order. On failure it puts back the
// original content of the targets it had already written.
func (a *Applier) commit(targets map[string]*target, order []string) error {
	var written []*target
	for _, rel := range order {
		t := targets[rel]
		if t.current == t.original {
			continue
		}
		if err := a.write(t.path, t.current); err != nil {
			for _, w := range written {
				if rerr := a.write(w.path, w.original); rerr != nil {
					a.logger().Error("failed to restore file", "path", w.path, "error", rerr)
				}
			}
			return fmt.Errorf("%s: %w", rel, err)
		}
		written = append(written, t)
	}
	return nil
}
