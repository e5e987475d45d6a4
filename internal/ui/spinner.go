// Package ui holds the terminal implementations of the auth flow's
// presentation collaborators.
package ui

import (
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type stopMsg struct{}

type labelMsg string

type spinnerModel struct {
	spinner spinner.Model
	label   string
	stopped bool
}

func (m spinnerModel) Init() tea.Cmd { return m.spinner.Tick }

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stopMsg:
		m.stopped = true
		return m, tea.Quit
	case labelMsg:
		m.label = string(msg)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.stopped {
		return ""
	}
	return m.spinner.View() + " " + m.label
}

// Spinner is an authflow.LoadingIndicator rendered with bubbletea. It never
// reads input, so prompts can run while it is suspended.
type Spinner struct {
	out io.Writer

	mu        sync.Mutex
	label     string
	prog      *tea.Program
	done      chan struct{}
	visible   bool
	suspended bool
}

func NewSpinner(out io.Writer, label string) *Spinner {
	return &Spinner{out: out, label: label}
}

func (s *Spinner) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = true
	if !s.suspended {
		s.startLocked()
	}
}

func (s *Spinner) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
	s.stopLocked()
}

// Suspend takes the spinner off screen without forgetting that it should be
// visible; Resume brings it back.
func (s *Spinner) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = true
	s.stopLocked()
}

func (s *Spinner) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
	if s.visible {
		s.startLocked()
	}
}

// SetLabel changes the text next to the spinner.
func (s *Spinner) SetLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
	if s.prog != nil {
		s.prog.Send(labelMsg(label))
	}
}

func (s *Spinner) startLocked() {
	if s.prog != nil {
		return
	}
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("12"))),
	)
	p := tea.NewProgram(spinnerModel{spinner: sp, label: s.label},
		tea.WithOutput(s.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := p.Run(); err != nil {
			slog.Debug("spinner stopped with error", "error", err)
		}
	}()
	s.prog, s.done = p, done
}

func (s *Spinner) stopLocked() {
	if s.prog == nil {
		return
	}
	s.prog.Send(stopMsg{})
	<-s.done
	s.prog, s.done = nil, nil
}
