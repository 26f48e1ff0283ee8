package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/drawio-builder/pkg/config"
	"github.com/matzehuels/drawio-builder/pkg/errors"
	"github.com/matzehuels/drawio-builder/pkg/freshness"
	"github.com/matzehuels/drawio-builder/pkg/manifest"
	"github.com/matzehuels/drawio-builder/pkg/observability"
	"github.com/matzehuels/drawio-builder/pkg/plan"
	"github.com/matzehuels/drawio-builder/pkg/render"
	"github.com/matzehuels/drawio-builder/pkg/source"
)

// Runner builds diagrams with one renderer and one override configuration.
//
// The Runner holds no per-run state: manifests and plans are rebuilt from
// the diagram files on every call, and results live in the returned Report.
// Multiple goroutines can safely use the same Runner.
type Runner struct {
	Renderer  render.Renderer
	Overrides *config.Overrides
	Logger    *log.Logger

	// Hooks receives build events. Nil means the globally registered hooks.
	Hooks observability.BuildHooks
}

// NewRunner creates a runner. Nil overrides means every diagram uses the
// default plan; a nil logger discards log output.
func NewRunner(r render.Renderer, overrides *config.Overrides, logger *log.Logger) *Runner {
	if overrides == nil {
		overrides = config.Empty()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Renderer:  r,
		Overrides: overrides,
		Logger:    logger,
	}
}

func (r *Runner) hooks() observability.BuildHooks {
	if r.Hooks != nil {
		return r.Hooks
	}
	return observability.Build()
}

// =============================================================================
// Prepare
// =============================================================================

// Job is a planned diagram: its manifest, plan and the freshness of every
// step's artifact.
type Job struct {
	Diagram    source.Diagram
	Manifest   *manifest.Manifest
	Plan       *plan.Plan
	SourceTime time.Time
	Steps      []PlannedStep
}

// PlannedStep is one step of a Job with its resolved artifact path.
type PlannedStep struct {
	Step      plan.Step
	Artifact  string
	Freshness freshness.Result
	Err       error // freshness could not be determined
}

// Stale returns the number of steps that will be rendered.
func (j *Job) Stale() int {
	n := 0
	for _, s := range j.Steps {
		if s.Err == nil && s.Freshness.Stale() {
			n++
		}
	}
	return n
}

// Prepare reads the diagram's manifest, builds its plan and evaluates the
// freshness of every step, without rendering anything. opts must already
// have defaults applied. Collisions with other diagrams' artifacts are only
// detected by [Runner.PrepareAll].
func (r *Runner) Prepare(d source.Diagram, opts Options) (*Job, error) {
	srcTime, err := freshness.SourceTime(d.Path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "%s", d.Key)
	}
	m, err := manifest.Read(d.Path)
	if err != nil {
		return nil, err
	}
	override, _ := r.Overrides.Lookup(d.Key)
	p, err := plan.Build(m, override)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", d.Key, err)
	}

	job := &Job{
		Diagram:    d,
		Manifest:   m,
		Plan:       p,
		SourceTime: srcTime,
		Steps:      make([]PlannedStep, len(p.Steps)),
	}
	for i, step := range p.Steps {
		ps := PlannedStep{
			Step:     step,
			Artifact: plan.ArtifactPath(opts.OutputDir, d.Key, step.Name, opts.Extension),
		}
		if opts.Force {
			ps.Freshness = freshness.Forced(srcTime, ps.Artifact)
		} else {
			ps.Freshness, ps.Err = freshness.Evaluate(srcTime, ps.Artifact)
		}
		job.Steps[i] = ps
	}
	return job, nil
}

// PrepareAll prepares every diagram, then rejects diagrams whose artifacts
// collide with those of another diagram. jobs[i] is nil exactly when errs[i]
// is set. opts must already have defaults applied.
func (r *Runner) PrepareAll(diagrams []source.Diagram, opts Options) ([]*Job, []error) {
	jobs := make([]*Job, len(diagrams))
	errs := make([]error, len(diagrams))

	var g errgroup.Group
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}
	for i, d := range diagrams {
		g.Go(func() error {
			jobs[i], errs[i] = r.Prepare(d, opts)
			return nil
		})
	}
	_ = g.Wait()

	rejectCollisions(jobs, errs)
	return jobs, errs
}

// rejectCollisions marks every diagram that shares an artifact path with
// another diagram as failed, naming the diagram it collides with. Both sides
// of a collision are rejected.
func rejectCollisions(jobs []*Job, errs []error) {
	owner := make(map[string]int)
	for i, job := range jobs {
		if job == nil {
			continue
		}
		for _, ps := range job.Steps {
			artifact := filepath.Clean(ps.Artifact)
			j, taken := owner[artifact]
			if !taken {
				owner[artifact] = i
				continue
			}
			a, b := jobs[j].Diagram.Key, job.Diagram.Key
			if errs[j] == nil {
				errs[j] = errors.New(errors.ErrCodeArtifactCollision,
					"%s: artifact %s is also written by %s", a, artifact, b)
			}
			if errs[i] == nil {
				errs[i] = errors.New(errors.ErrCodeArtifactCollision,
					"%s: artifact %s is also written by %s", b, artifact, a)
			}
		}
	}
	for i := range jobs {
		if errs[i] != nil {
			jobs[i] = nil
		}
	}
}

// =============================================================================
// Execute
// =============================================================================

// Execute builds every diagram and returns the aggregated report. The error
// is non-nil only for run-wide failures; per-diagram and per-step failures
// are recorded in the report.
//
// Every diagram is planned before the first step renders, so freshness is
// judged against the artifacts as they were when the run started.
func (r *Runner) Execute(ctx context.Context, diagrams []source.Diagram, opts Options) (*Report, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "create output directory %s", opts.OutputDir)
	}

	report := &Report{
		RunID:    uuid.New(),
		Started:  time.Now(),
		Diagrams: make([]DiagramResult, len(diagrams)),
	}
	r.Logger.Debug("starting build",
		"run", report.RunID,
		"diagrams", len(diagrams),
		"jobs", opts.Jobs,
		"force", opts.Force)

	jobs, errs := r.PrepareAll(diagrams, opts)

	var g errgroup.Group
	g.SetLimit(opts.Jobs)
	for i, d := range diagrams {
		g.Go(func() error {
			report.Diagrams[i] = r.build(ctx, d, jobs[i], errs[i])
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(report.Started)
	c := report.Counts()
	r.Logger.Info("build finished",
		"succeeded", c.Succeeded,
		"partial", c.Partial,
		"skipped", c.Skipped,
		"rendered", c.Rendered,
		"duration", report.Duration)
	return report, nil
}

func (r *Runner) build(ctx context.Context, d source.Diagram, job *Job, err error) DiagramResult {
	start := time.Now()
	hooks := r.hooks()
	res := DiagramResult{Diagram: d}

	if err != nil {
		r.Logger.Error("skipping diagram", "diagram", d.Key, "err", err)
		hooks.OnDiagramPlanned(ctx, d.Key, 0, 0, err)
		res.Outcome, res.Err = OutcomeSkipped, err
		res.Duration = time.Since(start)
		hooks.OnDiagramComplete(ctx, d.Key, string(res.Outcome), res.Duration)
		return res
	}

	stale := job.Stale()
	hooks.OnDiagramPlanned(ctx, d.Key, len(job.Steps), stale, nil)
	r.Logger.Debug("planned diagram",
		"diagram", d.Key,
		"mode", job.Plan.Mode,
		"steps", len(job.Steps),
		"stale", stale)

	res.Plan = job.Plan
	res.Steps = make([]StepResult, len(job.Steps))
	for i, ps := range job.Steps {
		res.Steps[i] = r.runStep(ctx, job, ps)
	}

	res.Outcome = OutcomeSucceeded
	for _, s := range res.Steps {
		if s.Err != nil {
			res.Outcome = OutcomePartial
			break
		}
	}
	res.Duration = time.Since(start)
	hooks.OnDiagramComplete(ctx, d.Key, string(res.Outcome), res.Duration)
	return res
}

func (r *Runner) runStep(ctx context.Context, job *Job, ps PlannedStep) StepResult {
	key := job.Diagram.Key
	res := StepResult{Step: ps.Step, Artifact: ps.Artifact, Freshness: ps.Freshness}

	if ps.Err != nil {
		res.Err = errors.Wrap(errors.ErrCodeRenderStep, ps.Err, "check %s", ps.Artifact)
		r.Logger.Error("step failed", "diagram", key, "step", ps.Step.Name, "err", res.Err)
		return res
	}
	if !ps.Freshness.Stale() {
		r.Logger.Debug("up to date", "diagram", key, "step", ps.Step.Name, "artifact", ps.Artifact)
		return res
	}

	hooks := r.hooks()
	hooks.OnStepStart(ctx, key, ps.Step.Name)
	start := time.Now()

	if err := ctx.Err(); err != nil {
		res.Err = errors.Wrap(errors.ErrCodeRenderStep, err, "step %s of %s not started", ps.Step.Name, key)
	} else {
		req := render.Request{Input: job.Diagram.Path, Output: ps.Artifact, Layers: ps.Step.Indexes()}
		if err := r.Renderer.Render(ctx, req); err != nil {
			res.Err = errors.Wrap(errors.ErrCodeRenderStep, err, "step %s of %s", ps.Step.Name, key)
		} else if err := verifyOutput(ps); err != nil {
			res.Err = err
		} else {
			res.Rendered = true
		}
	}
	res.Duration = time.Since(start)
	hooks.OnStepComplete(ctx, key, ps.Step.Name, res.Rendered, res.Duration, res.Err)

	if res.Err != nil {
		r.Logger.Error("step failed", "diagram", key, "step", ps.Step.Name, "err", res.Err)
	} else {
		r.Logger.Info("rendered",
			"diagram", key,
			"step", ps.Step.Name,
			"layers", ps.Step.Names(),
			"artifact", ps.Artifact,
			"duration", res.Duration)
	}
	return res
}

// verifyOutput checks that a renderer reporting success actually wrote the
// artifact: it must exist and, when it existed before, be newer than it was.
func verifyOutput(ps PlannedStep) error {
	info, err := os.Stat(ps.Artifact)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRenderStep, err, "output file %s was not created", ps.Artifact)
	}
	if ps.Freshness.Exists && !info.ModTime().After(ps.Freshness.ModTime) {
		return errors.New(errors.ErrCodeRenderStep, "output file %s was not updated", ps.Artifact)
	}
	return nil
}
