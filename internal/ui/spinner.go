package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Task is a blocking operation run behind a spinner.
type Task func(ctx context.Context) error

type taskDoneMsg struct{ err error }

type spinnerModel struct {
	spinner    spinner.Model
	label      string
	start      time.Time
	run        func() error
	cancel     context.CancelFunc
	cancelling bool
	done       bool
	err        error
}

func newSpinnerModel(label string, run func() error, cancel context.CancelFunc) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return spinnerModel{
		spinner: s,
		label:   label,
		start:   time.Now(),
		run:     run,
		cancel:  cancel,
	}
}

// Init implements tea.Model
func (m spinnerModel) Init() tea.Cmd {
	run := m.run
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return taskDoneMsg{err: run()}
	})
}

// Update implements tea.Model
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		// The task owns the master until it returns, so ctrl+c only cancels
		// and the program keeps running until taskDoneMsg arrives.
		if msg.String() == "ctrl+c" && !m.cancelling {
			m.cancelling = true
			m.cancel()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	elapsed := time.Since(m.start).Truncate(time.Second)
	line := fmt.Sprintf("  %s %s %s", m.spinner.View(), SpinnerLabelStyle.Render(m.label),
		TroubleshootingItemStyle.Render("("+elapsed.String()+")"))
	if m.cancelling {
		line += " " + WarningTitleStyle.Render("cancelling...")
	}
	return line + "\n"
}

// RunWithSpinner runs task while showing label next to a spinner on w. When w
// is not a terminal it prints the label once and runs the task directly.
// Pressing ctrl+c cancels the context passed to task.
func RunWithSpinner(ctx context.Context, w io.Writer, label string, task Task) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !writerIsTerminal(w) {
		_, _ = fmt.Fprintf(w, "  %s...\n", label)
		return task(ctx)
	}

	model := newSpinnerModel(label, func() error { return task(ctx) }, cancel)
	final, err := tea.NewProgram(model, tea.WithOutput(w)).Run()
	if err != nil {
		// The renderer failed; the task may still be running.
		cancel()
		return fmt.Errorf("spinner: %w", err)
	}
	return final.(spinnerModel).err
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
