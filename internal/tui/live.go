// Package tui shows the progress of an integration run with Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/hipert/internal/experiment"
	"github.com/san-kum/hipert/internal/viz"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

const historyLen = 60

type sampleMsg experiment.Sample

type doneMsg struct {
	result *experiment.Result
	err    error
}

type model struct {
	title   string
	samples int
	tEnd    float64
	size    int

	last    experiment.Sample
	phi     []float64
	psi     []float64
	done    bool
	result  *experiment.Result
	err     error
	cancel  context.CancelFunc
	width   int
	stopped bool
}

func newModel(title string, samples, size int, tEnd float64, cancel context.CancelFunc) model {
	return model{
		title:   title,
		samples: samples,
		tEnd:    tEnd,
		size:    size,
		cancel:  cancel,
		width:   80,
		phi:     make([]float64, 0, historyLen),
		psi:     make([]float64, 0, historyLen),
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.stopped = true
			if m.cancel != nil {
				m.cancel()
			}
			if m.done {
				return m, tea.Quit
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case sampleMsg:
		m.last = experiment.Sample(msg)
		m.phi = push(m.phi, msg.G.Phi)
		m.psi = push(m.psi, msg.G.Psi)
	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func push(h []float64, v float64) []float64 {
	if len(h) == historyLen {
		h = h[1:]
	}
	return append(h, v)
}

func (m model) progress() float64 {
	if m.samples == 0 {
		return 0
	}
	return float64(m.last.Index) / float64(m.samples)
}

func (m model) View() string {
	var b strings.Builder
	barWidth := max(min(m.width-20, 50), 10)

	b.WriteString("\n")
	b.WriteString("  " + cyan.Render(m.title) + "  " + dim.Render(fmt.Sprintf("%d variables", m.size)) + "\n")
	b.WriteString(dimmer.Render("  "+strings.Repeat("─", barWidth+10)) + "\n\n")

	b.WriteString("  " + viz.ProgressBar(m.progress(), barWidth) + " " + white.Render(fmt.Sprintf("%3.0f%%", 100*m.progress())) + "\n\n")
	b.WriteString("  " + dim.Render(fmt.Sprintf("%-6s", "t")) + white.Render(fmt.Sprintf("%.4g / %.4g", m.last.T, m.tEnd)) + "\n")
	b.WriteString("  " + dim.Render(fmt.Sprintf("%-6s", "phi")) + white.Render(fmt.Sprintf("%+.4e", m.last.G.Phi)) + "  " + viz.SparklineChart(m.phi, 30) + "\n")
	b.WriteString("  " + dim.Render(fmt.Sprintf("%-6s", "psi")) + white.Render(fmt.Sprintf("%+.4e", m.last.G.Psi)) + "  " + viz.SparklineChart(m.psi, 30) + "\n")
	b.WriteString("  " + dim.Render(fmt.Sprintf("%-6s", "drho")) + white.Render(fmt.Sprintf("%+.4e", m.last.T00.DRho)) + "\n\n")

	switch {
	case m.err != nil:
		b.WriteString("  " + red.Render("failed: "+m.err.Error()) + "\n")
	case m.done:
		b.WriteString("  " + viz.StatusDone.Render("done") + "\n")
	case m.stopped:
		b.WriteString("  " + viz.StatusFailed.Render("stopping") + "\n")
	default:
		b.WriteString("  " + viz.StatusRunning.Render("integrating") + "  " + viz.KeyHint.Render("q stop") + "\n")
	}
	return b.String()
}

// Run integrates e, which must be set up, while showing a live view.
func Run(ctx context.Context, e *experiment.Experiment, title string, samples int, tEnd float64) (*experiment.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(title, samples, e.System().Len(), tEnd, cancel)
	p := tea.NewProgram(m)

	e.AddObserver(experiment.ObserverFunc(func(s experiment.Sample) {
		p.Send(sampleMsg(s))
	}))
	go func() {
		res, err := e.Run(ctx)
		p.Send(doneMsg{result: res, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	fm := final.(model)
	return fm.result, fm.err
}
