package textpatch

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/mdxprep/internal/ir"
)

// Patch is one idempotent transformation of one file.
type Patch struct {
	// ID uniquely identifies the patch in logs and run history.
	ID string

	// Path is the target file, slash separated, relative to the library root.
	Path string

	// Marker is the text whose presence means the patch is already applied.
	// Transforms should emit it as a comment inside the code they install.
	Marker string

	// Applied overrides the Marker check when set.
	Applied func(content string) bool

	// Transform produces the patched content.
	Transform Transform
}

// IsApplied reports whether content already carries the patch's effect.
func (p Patch) IsApplied(content string) bool {
	if p.Applied != nil {
		return p.Applied(content)
	}
	if p.Marker == "" {
		return false
	}
	return strings.Contains(content, p.Marker)
}

// Rewrite runs the detection guard and the transform on in-memory content.
// It returns the new content and the resulting status; no I/O happens.
func (p Patch) Rewrite(content string) (string, ir.Status) {
	if p.IsApplied(content) {
		return content, ir.StatusPresent
	}
	if p.Transform == nil {
		return content, ir.StatusNotApplicable
	}
	out, ok := p.Transform.Apply(content)
	if !ok {
		return content, ir.StatusNotApplicable
	}
	if out == content {
		return content, ir.StatusPresent
	}
	return out, ir.StatusApplied
}

// Applier applies patches to files under a library root.
type Applier struct {
	// Logger receives one record per patch. Defaults to slog.Default().
	Logger *slog.Logger

	// writeFile replaces a whole file. Overridable in tests to inject
	// write failures.
	writeFile func(path string, data []byte) error
}

// NewApplier creates an Applier that logs to logger (nil means slog.Default()).
func NewApplier(logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{Logger: logger, writeFile: WriteFileAtomic}
}

// ApplyAll applies patches in order. Order matters: later patches may anchor
// on text that earlier ones installed. A failing patch never stops the rest.
func (a *Applier) ApplyAll(root string, patches []Patch) []ir.StepResult {
	results := make([]ir.StepResult, 0, len(patches))
	for _, p := range patches {
		results = append(results, a.Apply(root, p))
	}
	return results
}

// Apply applies one patch to its target under root.
func (a *Applier) Apply(root string, p Patch) ir.StepResult {
	res := ir.StepResult{Kind: ir.StepPatch, ID: p.ID, Path: p.Path}
	path := filepath.Join(root, filepath.FromSlash(p.Path))

	content, status, detail := readTarget(path)
	if status != "" {
		res.Status, res.Detail = status, detail
		a.log(res)
		return res
	}

	out, status := p.Rewrite(content)
	res.Status = status
	if status == ir.StatusApplied {
		if err := a.write(path, out); err != nil {
			res.Status = ir.StatusIOError
			res.Detail = err.Error()
		} else {
			res.Hash = ir.ContentHash([]byte(out))
		}
	}
	a.log(res)
	return res
}

// readTarget reads a patch target. A non-empty status means the file could
// not be read and carries the failure class.
func readTarget(path string) (string, ir.Status, string) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", ir.StatusMissing, ""
	case err != nil:
		return "", ir.StatusIOError, err.Error()
	}
	return string(data), "", ""
}

func (a *Applier) write(path, content string) error {
	write := a.writeFile
	if write == nil {
		write = WriteFileAtomic
	}
	return write(path, []byte(content))
}

func (a *Applier) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func (a *Applier) log(res ir.StepResult) {
	logger := a.logger()
	attrs := []any{"patch", res.ID, "path", res.Path, "status", res.Status}
	switch res.Status {
	case ir.StatusApplied:
		logger.Info("patch applied", attrs...)
	case ir.StatusIOError:
		logger.Warn("patch skipped", append(attrs, "error", res.Detail)...)
	case ir.StatusNotApplicable:
		logger.Info("patch not applicable", attrs...)
	default:
		logger.Debug("patch skipped", attrs...)
	}
}

// VerifyIdempotent applies p to content twice and reports whether the
// second application was a no-op. Content the patch does not apply to is
// trivially idempotent.
func VerifyIdempotent(p Patch, content string) bool {
	once, status := p.Rewrite(content)
	if status != ir.StatusApplied {
		return true
	}
	if !p.IsApplied(once) {
		return false
	}
	twice, _ := p.Rewrite(once)
	return twice == once
}
