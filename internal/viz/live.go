// Package viz renders a live terminal view of a running propagation,
// paced by the engine's accepted steps.
package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/flightprop/internal/dynamo"
)

const historyCapacity = 600

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	eventStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Frame is one committed step as seen by the live view.
type Frame struct {
	T        float64
	Y        dynamo.State
	StepSize float64
	Event    bool
	Done     bool
	Err      error
}

// Feed is a StepHandler that forwards committed step endpoints to the live
// view, pacing the propagation at the configured frame rate. Run closes the
// done channel when the view exits, so a propagation feeding a quit view
// drains instead of blocking.
type Feed struct {
	ch    chan Frame
	done  chan struct{}
	delay time.Duration
}

func NewFeed(fps int) *Feed {
	if fps <= 0 {
		fps = 30
	}
	return &Feed{
		ch:    make(chan Frame),
		done:  make(chan struct{}),
		delay: time.Second / time.Duration(fps),
	}
}

func (f *Feed) HandleStep(step dynamo.DenseOutput, isLast bool) {
	lo, hi := step.Span()
	end := hi
	if step.T1() < step.T0() {
		end = lo
	}
	y, err := step.StateAt(end)
	if err != nil {
		return
	}
	// An event-truncated step has a valid span shorter than the full step.
	full := step.T1() - step.T0()
	if full < 0 {
		full = -full
	}
	truncated := hi-lo < full*(1-1e-9)
	select {
	case f.ch <- Frame{T: end, Y: y, StepSize: hi - lo, Event: truncated}:
	case <-f.done:
		return
	}
	time.Sleep(f.delay)
}

// Close signals the end of the propagation to the view.
func (f *Feed) Close(err error) {
	select {
	case f.ch <- Frame{Done: true, Err: err}:
	case <-f.done:
	}
	close(f.ch)
}

type model struct {
	feed    *Feed
	name    string
	frame   Frame
	history []float64
	steps   int
	events  int
	done    bool
	err     error
}

type frameMsg Frame

func waitForFrame(f *Feed) tea.Cmd {
	return func() tea.Msg {
		fr, ok := <-f.ch
		if !ok {
			return frameMsg(Frame{Done: true})
		}
		return frameMsg(fr)
	}
}

func (m model) Init() tea.Cmd {
	return waitForFrame(m.feed)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case frameMsg:
		if msg.Done {
			m.done = true
			m.err = msg.Err
			return m, nil
		}
		m.frame = Frame(msg)
		m.steps++
		if msg.Event {
			m.events++
		}
		m.history = append(m.history, firstComponent(msg.Y))
		if len(m.history) > historyCapacity {
			m.history = m.history[len(m.history)-historyCapacity:]
		}
		return m, waitForFrame(m.feed)
	}
	return m, nil
}

func firstComponent(y dynamo.State) float64 {
	if len(y) == 0 {
		return 0
	}
	return y[0]
}

func (m model) View() string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("flightprop live: " + m.name))
	sb.WriteString("\n")

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(valueStyle.Render(value))
		sb.WriteString("\n")
	}
	row("time", fmt.Sprintf("%.4f", m.frame.T))
	row("step size", fmt.Sprintf("%.3e", m.frame.StepSize))
	row("steps", fmt.Sprintf("%d", m.steps))
	for i, v := range m.frame.Y {
		row(fmt.Sprintf("y%d", i), fmt.Sprintf("%+.6f", v))
	}
	if m.events > 0 {
		sb.WriteString(eventStyle.Render(fmt.Sprintf("events fired: %d", m.events)))
		sb.WriteString("\n")
	}

	if len(m.history) > 1 {
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption("y0 vs step"),
		)
		sb.WriteString(graphStyle.Render(graph))
		sb.WriteString("\n")
	}

	if m.done {
		if m.err != nil {
			sb.WriteString(eventStyle.Render("aborted: " + m.err.Error()))
		} else {
			sb.WriteString(headerStyle.Render("propagation complete"))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(helpStyle.Render("q: quit"))
	return sb.String()
}

// Run displays frames from the feed until the propagation finishes and the
// user quits, then releases the feed so its producer can drain.
func Run(feed *Feed, name string) error {
	_, err := tea.NewProgram(model{feed: feed, name: name}).Run()
	close(feed.done)
	return err
}
