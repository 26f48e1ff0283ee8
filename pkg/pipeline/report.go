package pipeline

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/drawio-builder/pkg/buildinfo"
	"github.com/matzehuels/drawio-builder/pkg/errors"
	"github.com/matzehuels/drawio-builder/pkg/freshness"
	"github.com/matzehuels/drawio-builder/pkg/plan"
	"github.com/matzehuels/drawio-builder/pkg/render"
	"github.com/matzehuels/drawio-builder/pkg/source"
)

// Outcome summarizes how a diagram's build ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded" // every attempted step succeeded
	OutcomePartial   Outcome = "partial"   // at least one step failed
	OutcomeSkipped   Outcome = "skipped"   // manifest or plan could not be built
)

// StepResult is the outcome of one export step.
type StepResult struct {
	Step      plan.Step
	Artifact  string
	Freshness freshness.Result
	Rendered  bool
	Err       error
	Duration  time.Duration
}

// UpToDate reports whether the step was skipped because its artifact was fresh.
func (s StepResult) UpToDate() bool {
	return s.Err == nil && !s.Freshness.Stale()
}

// DiagramResult is the outcome of one diagram.
type DiagramResult struct {
	Diagram  source.Diagram
	Outcome  Outcome
	Err      error      // set when Outcome is OutcomeSkipped
	Plan     *plan.Plan // nil when Outcome is OutcomeSkipped
	Steps    []StepResult
	Duration time.Duration
}

// Rendered returns the number of steps rendered.
func (d DiagramResult) Rendered() int {
	n := 0
	for _, s := range d.Steps {
		if s.Rendered {
			n++
		}
	}
	return n
}

// FailedSteps returns the steps that failed.
func (d DiagramResult) FailedSteps() []StepResult {
	var out []StepResult
	for _, s := range d.Steps {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Report aggregates the results of one run, in diagram order.
type Report struct {
	RunID    uuid.UUID
	Started  time.Time
	Duration time.Duration
	Diagrams []DiagramResult
}

// Counts summarizes a report.
type Counts struct {
	Diagrams  int
	Succeeded int // diagrams whose attempted steps all succeeded
	Partial   int // diagrams with at least one failed step
	Skipped   int // diagrams that could not be planned
	UpToDate  int // succeeded diagrams that needed no rendering
	Rendered  int // steps rendered
	Failed    int // steps failed
}

// Counts returns the summary counts of the report.
func (r *Report) Counts() Counts {
	c := Counts{Diagrams: len(r.Diagrams)}
	for _, d := range r.Diagrams {
		switch d.Outcome {
		case OutcomeSucceeded:
			c.Succeeded++
			if d.Rendered() == 0 {
				c.UpToDate++
			}
		case OutcomePartial:
			c.Partial++
		case OutcomeSkipped:
			c.Skipped++
		}
		c.Rendered += d.Rendered()
		c.Failed += len(d.FailedSteps())
	}
	return c
}

// Failed reports whether any diagram was skipped or any step failed.
func (r *Report) Failed() bool {
	c := r.Counts()
	return c.Partial > 0 || c.Skipped > 0
}

// Err returns a BUILD_FAILED error summarizing the failures of the run, or
// nil. The codes of the individual failures stay on the diagram and step
// results.
func (r *Report) Err() error {
	if !r.Failed() {
		return nil
	}
	c := r.Counts()
	return errors.New(errors.ErrCodeBuildFailed,
		"%d of %d diagrams failed (%d partial, %d skipped)",
		c.Partial+c.Skipped, c.Diagrams, c.Partial, c.Skipped)
}

// WriteLog writes the error log of the run: every skipped diagram and every
// failed step, with the renderer's stdout and stderr when available.
func (r *Report) WriteLog(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "drawio-builder %s\n", buildinfo.String())
	fmt.Fprintf(&b, "run %s started %s\n", r.RunID, r.Started.Format(time.RFC3339))

	for _, d := range r.Diagrams {
		if d.Outcome == OutcomeSkipped {
			fmt.Fprintf(&b, "\n== %s: skipped\n%s\n", d.Diagram.Key, errors.UserMessage(d.Err))
			continue
		}
		for _, s := range d.FailedSteps() {
			fmt.Fprintf(&b, "\n== %s step %s: %s\n%s\n", d.Diagram.Key, s.Step.Name, s.Artifact, errors.UserMessage(s.Err))

			var rerr *render.Error
			if !stderrors.As(s.Err, &rerr) {
				continue
			}
			if len(rerr.Args) > 0 {
				fmt.Fprintf(&b, "-- command\n%s\n", strings.Join(rerr.Args, " "))
			}
			writeSection(&b, "stdout", rerr.Stdout)
			writeSection(&b, "stderr", rerr.Stderr)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSection(b *strings.Builder, name string, data []byte) {
	if len(data) == 0 {
		return
	}
	fmt.Fprintf(b, "-- %s\n%s", name, data)
	if data[len(data)-1] != '\n' {
		b.WriteByte('\n')
	}
}
