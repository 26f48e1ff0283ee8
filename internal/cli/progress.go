package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/drawio-builder/pkg/observability"
)

// =============================================================================
// Messages
// =============================================================================

type diagramPlannedMsg struct {
	diagram string
	stale   int
	failed  bool
}

type stepStartMsg struct {
	diagram, step string
}

type stepDoneMsg struct {
	diagram, step string
	failed        bool
}

type diagramDoneMsg struct {
	diagram string
}

type progressTick time.Time

type progressStop struct{}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// =============================================================================
// progressModel - Live build status
// =============================================================================

// progressModel is the bubbletea model shown on stderr during a build.
type progressModel struct {
	diagrams int // total diagrams in the run
	planned  int // diagrams planned so far
	finished int // diagrams finished
	steps    int // stale steps announced so far
	done     int // steps finished
	failed   int // steps or diagrams failed
	current  string
	frame    int
	stopped  bool
}

func newProgressModel(diagrams int) progressModel {
	return progressModel{diagrams: diagrams}
}

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg { return progressTick(t) })
}

func (m progressModel) Init() tea.Cmd {
	return tick()
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case diagramPlannedMsg:
		m.planned++
		m.steps += msg.stale
		if msg.failed {
			m.failed++
		}
	case stepStartMsg:
		m.current = msg.diagram + " step " + msg.step
	case stepDoneMsg:
		m.done++
		if msg.failed {
			m.failed++
		}
	case diagramDoneMsg:
		m.finished++
	case progressTick:
		if m.stopped {
			return m, nil
		}
		m.frame++
		return m, tick()
	case progressStop:
		m.stopped = true
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.stopped {
		return ""
	}
	var b strings.Builder
	b.WriteString(styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)]))
	b.WriteString(" ")
	b.WriteString(StyleDim.Render(fmt.Sprintf("Rendering %d/%d steps", m.done, m.steps)))
	b.WriteString(StyleDim.Render(fmt.Sprintf(" · %d/%d diagrams", m.finished, m.diagrams)))
	if m.failed > 0 {
		b.WriteString(StyleDim.Render(" · "))
		b.WriteString(StyleError.Render(fmt.Sprintf("%d failed", m.failed)))
	}
	if m.current != "" && m.finished < m.diagrams {
		b.WriteString(StyleDim.Render(" · " + m.current))
	}
	return b.String()
}

// =============================================================================
// progressUI - Build hooks driving the model
// =============================================================================

// progressUI runs a progressModel and forwards build events to it.
type progressUI struct {
	program *tea.Program
	done    chan struct{}
}

// startProgress starts rendering progress for a build of n diagrams to w.
// Stop must be called when the build returns.
func startProgress(n int, w io.Writer) *progressUI {
	p := tea.NewProgram(newProgressModel(n),
		tea.WithOutput(w),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	ui := &progressUI{program: p, done: make(chan struct{})}
	go func() {
		defer close(ui.done)
		_, _ = p.Run()
	}()
	return ui
}

// Stop clears the progress line and waits for the program to exit.
func (u *progressUI) Stop() {
	u.program.Send(progressStop{})
	<-u.done
}

func (u *progressUI) OnDiagramPlanned(_ context.Context, diagram string, _, stale int, err error) {
	u.program.Send(diagramPlannedMsg{diagram: diagram, stale: stale, failed: err != nil})
}

func (u *progressUI) OnStepStart(_ context.Context, diagram, step string) {
	u.program.Send(stepStartMsg{diagram: diagram, step: step})
}

func (u *progressUI) OnStepComplete(_ context.Context, diagram, step string, _ bool, _ time.Duration, err error) {
	u.program.Send(stepDoneMsg{diagram: diagram, step: step, failed: err != nil})
}

func (u *progressUI) OnDiagramComplete(_ context.Context, diagram, _ string, _ time.Duration) {
	u.program.Send(diagramDoneMsg{diagram: diagram})
}

var _ observability.BuildHooks = (*progressUI)(nil)
