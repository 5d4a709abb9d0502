package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// StepFunc is the work shown by RunProgress. It reports each step it
// enters by index into the step labels. suspend runs fn with the terminal
// handed back to the process, for steps that talk to the user directly.
type StepFunc func(ctx context.Context, enter func(step int), suspend func(fn func() error) error) error

type stepMsg int

type doneMsg struct {
	err error
}

type progressModel struct {
	title      string
	steps      []string
	current    int
	spinner    spinner.Model
	cancel     context.CancelFunc
	cancelling bool
	done       bool
	err        error
}

func newProgressModel(title string, steps []string, cancel context.CancelFunc) progressModel {
	return progressModel{
		title:   title,
		steps:   steps,
		current: -1,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styleTitle)),
		cancel:  cancel,
	}
}

// RunProgress runs work on a goroutine while showing a step list with a
// spinner on the active step. Cancelling from the keyboard cancels the
// context passed to work; RunProgress always waits for work to return.
func RunProgress(ctx context.Context, title string, steps []string, work StepFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(title, steps, cancel))

	result := make(chan error, 1)
	go func() {
		err := work(ctx, func(step int) { p.Send(stepMsg(step)) }, func(fn func() error) error {
			return suspendProgram(p, fn)
		})
		result <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return fmt.Errorf("progress: %w", err)
	}
	return <-result
}

// suspendProgram releases the terminal for the length of fn and restores
// the view afterwards, keeping fn's error first.
func suspendProgram(p *tea.Program, fn func() error) error {
	if err := p.ReleaseTerminal(); err != nil {
		return fmt.Errorf("release terminal: %w", err)
	}
	err := fn()
	if rerr := p.RestoreTerminal(); rerr != nil && err == nil {
		err = fmt.Errorf("restore terminal: %w", rerr)
	}
	return err
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, cancelKey) && !m.cancelling && !m.done {
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case stepMsg:
		if int(msg) > m.current {
			m.current = int(msg)
		}
		return m, nil

	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(m.title))
	b.WriteString("\n")

	for i, label := range m.steps {
		var mark string
		switch {
		case i < m.current, m.done && m.err == nil && i == m.current:
			mark = styleOK.Render("✓")
		case i == m.current && m.done:
			mark = styleFail.Render("✗")
		case i == m.current:
			mark = m.spinner.View()
		default:
			mark = styleLabel.Render("·")
			label = styleLabel.Render(label)
		}
		fmt.Fprintf(&b, "  %s %s\n", mark, label)
	}

	switch {
	case m.done && m.err != nil:
		fmt.Fprintf(&b, "\n%s\n", styleFail.Render(m.err.Error()))
	case m.cancelling:
		b.WriteString(styleWarn.Render("\ncancelling, waiting for the current stage...\n"))
	case !m.done:
		b.WriteString(styleStatusBar.Render(helpLine(cancelKey)))
		b.WriteString("\n")
	}
	return b.String()
}
