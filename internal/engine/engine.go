package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/mdxprep/internal/config"
	"github.com/roach88/mdxprep/internal/ir"
	"github.com/roach88/mdxprep/internal/prune"
	"github.com/roach88/mdxprep/internal/sinctable"
	"github.com/roach88/mdxprep/internal/textpatch"
)

// Recorder persists finished runs. The history store implements it.
type Recorder interface {
	RecordRun(ctx context.Context, report ir.RunReport) error
}

// Engine runs the pruner, table generator and patch catalogue over every
// located library instance.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	pruner   *prune.Pruner
	tables   *sinctable.Writer
	applier  *textpatch.Applier
	recorder Recorder
	ids      RunIDGenerator
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine and its components.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRecorder stores every finished run. Recording failures are logged
// and never fail the run.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithRunIDGenerator replaces the UUIDv7 run ID generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine for cfg (nil means config.Default()).
func New(cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		cfg:    cfg,
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.pruner = prune.New(e.logger)
	e.tables = sinctable.NewWriter(e.logger)
	e.applier = textpatch.NewApplier(e.logger)
	return e
}

// Run processes every library instance in projectDir. The context is
// checked between instances and between steps, so a cancelled run stops
// after a whole-file write, never during one.
//
// The returned report covers the instances processed before any error.
func (e *Engine) Run(ctx context.Context, projectDir string, trigger ir.Trigger) (ir.RunReport, error) {
	report := ir.RunReport{
		RunID:      e.ids.Generate(),
		Trigger:    trigger,
		ProjectDir: projectDir,
		StartedAt:  e.now(),
	}
	if !trigger.Valid() {
		return report, fmt.Errorf("%w: %q", ErrInvalidTrigger, trigger)
	}
	logger := e.logger.With("run", report.RunID, "trigger", string(trigger))

	instances, err := Locate(projectDir, e.cfg.Libraries)
	if err != nil {
		logger.Info("nothing to prepare", "project", projectDir, "reason", err)
		return report, err
	}
	logger.Debug("located libraries", "count", len(instances))

	for _, inst := range instances {
		if err := ctx.Err(); err != nil {
			return e.finish(ctx, logger, report), err
		}
		rep, err := e.runInstance(ctx, inst)
		report.Instances = append(report.Instances, rep)
		if err != nil {
			return e.finish(ctx, logger, report), err
		}
	}
	return e.finish(ctx, logger, report), nil
}

func (e *Engine) runInstance(ctx context.Context, inst Instance) (ir.InstanceReport, error) {
	rep := ir.InstanceReport{Env: inst.Env, Library: inst.Library, Root: inst.Root}

	if rule, ok := e.cfg.Prune[inst.Library]; ok && !rule.Empty() {
		rep.Steps = append(rep.Steps, e.pruner.Apply(inst.Root, rule)...)
	}

	if inst.Library == e.cfg.TableLibrary {
		for _, spec := range e.cfg.Tables {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			rep.Steps = append(rep.Steps, e.tables.Ensure(inst.Root, spec))
		}
	}

	sets, err := e.cfg.PatchesFor(inst.Library)
	if err != nil {
		// only reachable with a config that skipped Validate
		e.logger.Warn("patch selection failed", "library", inst.Library, "error", err)
		return rep, nil
	}
	for _, set := range sets {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Steps = append(rep.Steps, e.applier.ApplySet(inst.Root, set)...)
	}
	return rep, nil
}

func (e *Engine) finish(ctx context.Context, logger *slog.Logger, report ir.RunReport) ir.RunReport {
	report.FinishedAt = e.now()
	logger.Info("run finished",
		"instances", len(report.Instances),
		"applied", report.Count(ir.StatusApplied),
		"present", report.Count(ir.StatusPresent),
		"not_applicable", report.Count(ir.StatusNotApplicable),
		"missing", report.Count(ir.StatusMissing),
		"io_errors", report.Count(ir.StatusIOError),
	)
	if e.recorder != nil {
		// recording must not be skipped because the run was cancelled
		if err := e.recorder.RecordRun(context.WithoutCancel(ctx), report); err != nil {
			logger.Warn("failed to record run", "error", err)
		}
	}
	return report
}
