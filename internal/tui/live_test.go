package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/hipert/internal/experiment"
	"github.com/san-kum/hipert/internal/pert"
)

func TestModelSamples(t *testing.T) {
	m := newModel("fluid", 10, 4, 2, nil)
	for i := 0; i <= historyLen+5; i++ {
		s := experiment.Sample{Index: 5, T: 1, G: pert.GScalar{Phi: float64(i), Psi: 2}}
		next, _ := m.Update(sampleMsg(s))
		m = next.(model)
	}
	if len(m.phi) != historyLen {
		t.Errorf("history length = %d, want %d", len(m.phi), historyLen)
	}
	if m.phi[len(m.phi)-1] != historyLen+5 {
		t.Errorf("last phi = %v", m.phi[len(m.phi)-1])
	}
	if m.progress() != 0.5 {
		t.Errorf("progress = %v, want 0.5", m.progress())
	}

	view := m.View()
	for _, want := range []string{"fluid", "4 variables", "50%", "integrating"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestModelDone(t *testing.T) {
	m := newModel("x", 10, 1, 1, nil)
	next, cmd := m.Update(doneMsg{result: &experiment.Result{}})
	m = next.(model)
	if !m.done || cmd == nil {
		t.Fatal("done message did not quit")
	}
	if !strings.Contains(m.View(), "done") {
		t.Error("view does not report completion")
	}

	m = newModel("x", 10, 1, 1, nil)
	next, _ = m.Update(doneMsg{err: errors.New("boom")})
	if !strings.Contains(next.(model).View(), "failed: boom") {
		t.Error("view does not report the error")
	}
}

func TestModelStopCancels(t *testing.T) {
	canceled := false
	m := newModel("x", 10, 1, 1, func() { canceled = true })
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !canceled {
		t.Error("q did not cancel the run")
	}
	if cmd != nil {
		t.Error("quit before the run finished")
	}
	if !strings.Contains(next.(model).View(), "stopping") {
		t.Error("view does not report stopping")
	}
}
