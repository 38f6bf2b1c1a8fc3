package sinctable

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/mdxprep/internal/ir"
	"github.com/roach88/mdxprep/internal/textpatch"
)

// KeySuffix is appended to an artifact's name to form its sidecar key file.
const KeySuffix = ".key"

// Spec names one artifact and the parameters that generate it.
type Spec struct {
	Name   string `yaml:"name" json:"name"`
	Params `yaml:",inline"`
}

// Key returns the content-addressed cache key for p.
func Key(p Params) (string, error) {
	return ir.TableKey(ir.TableParams{
		Denominator:   p.Denominator,
		ZeroCrossings: p.ZeroCrossings,
		Alpha:         p.Alpha,
		Layout:        ir.TableLayoutVersion,
	})
}

// Writer materializes table artifacts.
type Writer struct {
	Logger *slog.Logger

	writeFile func(path string, data []byte) error
}

// NewWriter creates a Writer that logs to logger (nil means slog.Default()).
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{Logger: logger, writeFile: textpatch.WriteFileAtomic}
}

// Ensure makes dir/spec.Name hold the table for spec.Params. The artifact is
// keyed by a hash of its parameters stored in a sidecar file, so it is
// regenerated whenever the parameters change rather than whenever the file
// happens to be missing. An existing artifact with a matching key is left
// alone.
func (w *Writer) Ensure(dir string, spec Spec) ir.StepResult {
	p := spec.Params.WithDefaults()
	res := ir.StepResult{Kind: ir.StepTable, ID: spec.Name, Path: spec.Name}
	logger := w.logger().With("table", spec.Name, "denominator", p.Denominator)

	key, err := Key(p)
	if err != nil {
		res.Status = ir.StatusNotApplicable
		res.Detail = err.Error()
		logger.Warn("table parameters rejected", "error", err)
		return res
	}

	path := filepath.Join(dir, spec.Name)
	keyPath := path + KeySuffix
	if w.current(path, keyPath, key) {
		res.Status = ir.StatusPresent
		logger.Debug("table up to date")
		return res
	}

	table, err := Generate(p)
	if err != nil {
		res.Status = ir.StatusNotApplicable
		res.Detail = err.Error()
		logger.Warn("table generation failed", "error", err)
		return res
	}

	write := w.writeFile
	if write == nil {
		write = textpatch.WriteFileAtomic
	}
	// Artifact before key: an interrupted run leaves a stale key and the
	// next run regenerates.
	data := table.Bytes()
	if err := write(path, data); err != nil {
		res.Status = ir.StatusIOError
		res.Detail = err.Error()
		logger.Warn("table write failed", "error", err)
		return res
	}
	if err := write(keyPath, []byte(key+"\n")); err != nil {
		res.Status = ir.StatusIOError
		res.Detail = err.Error()
		logger.Warn("table key write failed", "error", err)
		return res
	}

	res.Status = ir.StatusApplied
	res.Hash = ir.ContentHash(data)
	logger.Info("table generated", "entries", len(table.Coeffs))
	return res
}

// current reports whether the artifact exists and its sidecar holds key.
func (w *Writer) current(path, keyPath, key string) bool {
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger().Debug("table unreadable", "path", path, "error", err)
		}
		return false
	}
	stored, err := os.ReadFile(keyPath)
	if err != nil {
		return false
	}
	return bytes.Equal(bytes.TrimSpace(stored), []byte(strings.TrimSpace(key)))
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}
