// Package tui shows the progress of a running evolution and renders run
// summaries.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/relhydro/internal/evolve"
)

const historyLen = 120

// StepMsg carries one observer update into the program.
type StepMsg evolve.StepInfo

// DoneMsg ends the program with the outcome of the run.
type DoneMsg struct {
	Result *evolve.Result
	Err    error
}

type Model struct {
	name    string
	cancel  context.CancelFunc
	last    evolve.StepInfo
	history []float64
	started time.Time
	done    bool
	result  *evolve.Result
	err     error
	width   int
}

func NewModel(name string, cancel context.CancelFunc) Model {
	return Model{
		name:    name,
		cancel:  cancel,
		history: make([]float64, 0, historyLen),
		started: time.Now(),
		width:   80,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			if m.done {
				return m, tea.Quit
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case StepMsg:
		m.last = evolve.StepInfo(msg)
		m.history = append(m.history, msg.MaxEpsilon)
		if len(m.history) > historyLen {
			m.history = m.history[1:]
		}
	case DoneMsg:
		m.done = true
		m.result, m.err = msg.Result, msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) fraction() float64 {
	if m.last.TauMax <= 0 {
		return 0
	}
	return m.last.Tau / m.last.TauMax
}

func (m Model) View() string {
	barWidth := min(max(m.width-30, 20), 60)

	var b strings.Builder
	status := StatusRunning.Render("running")
	switch {
	case m.err != nil:
		status = StatusFailed.Render("failed")
	case m.done:
		status = StatusStopped.Render("done")
	}
	b.WriteString(Title.Render("relhydro ") + Subtle.Render(m.name) + "  " + status + "\n\n")
	b.WriteString(ProgressBar(m.fraction(), barWidth) + fmt.Sprintf(" %5.1f%%\n\n", 100*m.fraction()))

	b.WriteString(row("tau [fm]", fmt.Sprintf("%.4f / %.2f", m.last.Tau, m.last.TauMax)) + "\n")
	b.WriteString(row("step", fmt.Sprintf("%d", m.last.Step)) + "\n")
	b.WriteString(row("max eps [GeV/fm3]", fmt.Sprintf("%.4g", m.last.MaxEpsilon)) + "\n")
	b.WriteString(row("surface elements", fmt.Sprintf("%d", m.last.Elements)) + "\n")
	b.WriteString(row("weird fraction", fmt.Sprintf("%.2e", m.last.Diagnostics.WeirdFraction())) + "\n")
	if e, ok := m.last.Metrics["total_energy"]; ok {
		b.WriteString(row("total energy", fmt.Sprintf("%.6g", e)) + "\n")
	}
	b.WriteString("\n" + Sparkline(m.history, barWidth) + "\n")
	b.WriteString(Separator(barWidth) + "\n")
	b.WriteString(KeyHint.Render(fmt.Sprintf("elapsed %s   q stop", time.Since(m.started).Round(time.Second))) + "\n")
	return Panel.Render(b.String())
}

// Observer forwards evolution steps to a program at most frameRate times
// per second.
type Observer struct {
	program   *tea.Program
	frameRate int
	lastFrame time.Time
}

func NewObserver(p *tea.Program, frameRate int) *Observer {
	if frameRate <= 0 {
		frameRate = 20
	}
	return &Observer{program: p, frameRate: frameRate}
}

func (o *Observer) OnStep(info evolve.StepInfo) {
	if time.Since(o.lastFrame) < time.Second/time.Duration(o.frameRate) {
		return
	}
	o.lastFrame = time.Now()
	o.program.Send(StepMsg(info))
}

// Run shows the progress view while fn evolves. fn receives the observer to
// register; cancel is invoked when the user quits early.
func Run(name string, cancel context.CancelFunc, fn func(obs evolve.Observer) (*evolve.Result, error)) (*evolve.Result, error) {
	p := tea.NewProgram(NewModel(name, cancel))
	obs := NewObserver(p, 20)

	type outcome struct {
		res *evolve.Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := fn(obs)
		ch <- outcome{res, err}
		p.Send(DoneMsg{Result: res, Err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-ch
		return nil, err
	}
	out := <-ch
	return out.res, out.err
}
