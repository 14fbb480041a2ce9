package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

type spinModel struct {
	spinner  spinner.Model
	message  string
	quitting bool
}

type spinFinishMsg struct {
	success bool
	message string
}

func initialSpinModel(message string) spinModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	return spinModel{
		spinner: s,
		message: message,
	}
}

func (m spinModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case spinFinishMsg:
		m.quitting = true
		if msg.success {
			m.message = Success(IconCheck + " " + msg.message)
		} else {
			m.message = ErrorMsg(IconCross + " " + msg.message)
		}
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinModel) View() string {
	if m.quitting {
		if m.message == "" {
			return "\r\033[K"
		}
		return m.message + "\n"
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.message)
}

// Spinner shows an animated status line on a terminal and plain
// start/finish lines everywhere else.
type Spinner struct {
	out  io.Writer
	tty  bool
	prog *tea.Program
	done chan struct{}
}

func NewSpinner() *Spinner {
	return &Spinner{
		out: os.Stdout,
		tty: isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// newPlainSpinner writes plain status lines to w.
func newPlainSpinner(w io.Writer) *Spinner {
	return &Spinner{out: w}
}

func (s *Spinner) Start(message string) {
	if !s.tty {
		fmt.Fprintf(s.out, "%s...\n", message)
		return
	}

	s.prog = tea.NewProgram(initialSpinModel(message), tea.WithOutput(s.out), tea.WithInput(nil))
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.prog.Run()
	}()
}

func (s *Spinner) Stop(success bool, message string) {
	if s.prog == nil {
		icon := Success(IconCheck)
		if !success {
			icon = ErrorMsg(IconCross)
		}
		fmt.Fprintf(s.out, "%s %s\n", icon, message)
		return
	}
	s.prog.Send(spinFinishMsg{success: success, message: message})
	<-s.done
	s.prog = nil
}

// WithSpinner runs fn while a spinner shows message. On failure the spinner
// line shows the error text.
func WithSpinner(message string, fn func() error) error {
	return runWithSpinner(NewSpinner(), message, fn)
}

func runWithSpinner(s *Spinner, message string, fn func() error) error {
	s.Start(message)
	if err := fn(); err != nil {
		s.Stop(false, err.Error())
		return err
	}
	s.Stop(true, message)
	return nil
}
