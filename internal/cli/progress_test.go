package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m progressModel, msgs ...tea.Msg) progressModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		pm, ok := next.(progressModel)
		if !ok {
			t.Fatalf("Update returned %T", next)
		}
		m = pm
	}
	return m
}

func TestProgressModelCounts(t *testing.T) {
	m := update(t, newProgressModel(3),
		diagramPlannedMsg{diagram: "a.drawio", stale: 2},
		diagramPlannedMsg{diagram: "b.drawio", failed: true},
		stepStartMsg{diagram: "a.drawio", step: "0"},
		stepDoneMsg{diagram: "a.drawio", step: "0"},
		stepStartMsg{diagram: "a.drawio", step: "1"},
		stepDoneMsg{diagram: "a.drawio", step: "1", failed: true},
		diagramDoneMsg{diagram: "b.drawio"},
	)

	if m.planned != 2 || m.steps != 2 || m.done != 2 || m.failed != 2 || m.finished != 1 {
		t.Errorf("model = %+v", m)
	}

	view := m.View()
	for _, want := range []string{"Rendering 2/2 steps", "1/3 diagrams", "2 failed", "a.drawio step 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() = %q, missing %q", view, want)
		}
	}
}

func TestProgressModelStop(t *testing.T) {
	m := newProgressModel(1)
	next, cmd := m.Update(progressStop{})
	if cmd == nil {
		t.Fatal("stop returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("stop did not quit the program")
	}
	stopped := next.(progressModel)
	if stopped.View() != "" {
		t.Errorf("View() after stop = %q, want empty", stopped.View())
	}
	if _, cmd := stopped.Update(progressTick{}); cmd != nil {
		t.Error("tick after stop scheduled another tick")
	}
}

func TestProgressModelTick(t *testing.T) {
	m := newProgressModel(1)
	next, cmd := m.Update(progressTick{})
	if cmd == nil {
		t.Error("tick did not schedule the next tick")
	}
	if next.(progressModel).frame != 1 {
		t.Error("tick did not advance the spinner")
	}
}
