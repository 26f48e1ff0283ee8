package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/drawio-builder/pkg/errors"
	"github.com/matzehuels/drawio-builder/pkg/plan"
	"github.com/matzehuels/drawio-builder/pkg/render"
	"github.com/matzehuels/drawio-builder/pkg/source"
)

func failedReport() *Report {
	renderErr := &render.Error{
		Input:    "in/fig.drawio",
		Output:   "out/fig-1.png",
		Args:     []string{"-x", "-o", "out/fig-1.png", "--layers", "1,2", "in/fig.drawio"},
		ExitCode: 2,
		Stdout:   []byte("exporting page 1"),
		Stderr:   []byte("Error: cannot open display\n"),
	}
	return &Report{
		RunID:   uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Started: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Diagrams: []DiagramResult{
			{
				Diagram: source.Diagram{Key: "fig.drawio"},
				Outcome: OutcomePartial,
				Steps: []StepResult{
					{Step: plan.Step{Name: "0"}, Artifact: "out/fig-0.png", Rendered: true},
					{
						Step:     plan.Step{Name: "1"},
						Artifact: "out/fig-1.png",
						Err:      errors.Wrap(errors.ErrCodeRenderStep, renderErr, "step 1 of fig.drawio"),
					},
				},
			},
			{
				Diagram: source.Diagram{Key: "bad.drawio"},
				Outcome: OutcomeSkipped,
				Err:     errors.New(errors.ErrCodeManifestParse, "bad.drawio: diagram declares no layers"),
			},
			{
				Diagram: source.Diagram{Key: "ok.drawio"},
				Outcome: OutcomeSucceeded,
			},
		},
	}
}

func TestWriteLog(t *testing.T) {
	var b strings.Builder
	if err := failedReport().WriteLog(&b); err != nil {
		t.Fatalf("WriteLog: %v", err)
	}
	log := b.String()

	for _, want := range []string{
		"run 6ba7b810-9dad-11d1-80b4-00c04fd430c8 started 2026-01-02T03:04:05Z",
		"== fig.drawio step 1: out/fig-1.png",
		"drawio export of out/fig-1.png failed (exit code 2): Error: cannot open display",
		"-- command\n-x -o out/fig-1.png --layers 1,2 in/fig.drawio\n",
		"-- stdout\nexporting page 1\n",
		"-- stderr\nError: cannot open display\n",
		"== bad.drawio: skipped\nbad.drawio: diagram declares no layers",
	} {
		if !strings.Contains(log, want) {
			t.Errorf("log missing %q:\n%s", want, log)
		}
	}
	for _, unwanted := range []string{"ok.drawio", "fig-0.png", "RENDER_STEP_FAILED"} {
		if strings.Contains(log, unwanted) {
			t.Errorf("log contains %q:\n%s", unwanted, log)
		}
	}
}

func TestReportCounts(t *testing.T) {
	c := failedReport().Counts()
	want := Counts{Diagrams: 3, Succeeded: 1, Partial: 1, Skipped: 1, UpToDate: 1, Rendered: 1, Failed: 1}
	if c != want {
		t.Errorf("Counts() = %+v, want %+v", c, want)
	}
}

func TestReportErr(t *testing.T) {
	r := failedReport()
	if !r.Failed() {
		t.Fatal("Failed() = false")
	}
	if got := errors.UserMessage(r.Err()); got != "2 of 3 diagrams failed (1 partial, 1 skipped)" {
		t.Errorf("Err() = %q", got)
	}
	if code := errors.GetCode(r.Err()); code != errors.ErrCodeBuildFailed {
		t.Errorf("Err() code = %s, want %s", code, errors.ErrCodeBuildFailed)
	}

	r.Diagrams = r.Diagrams[2:]
	if r.Failed() || r.Err() != nil {
		t.Errorf("successful report failed: %v", r.Err())
	}
}
