package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/tasks"
)

const progressHistory = 6

// ProgressOpts configures [WatchProgress].
type ProgressOpts struct {
	Title   string
	Updates <-chan tasks.ProgressUpdate // closed by the producer when the operation ends
	Cancel  context.CancelFunc          // called when the operator presses esc or ctrl+c
	In      io.Reader
	Out     io.Writer
}

// WatchProgress renders updates until the channel is closed or the operator cancels.
func WatchProgress(ctx context.Context, opts ProgressOpts) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}

	program := tea.NewProgram(newProgressModel(opts.Title, opts.Updates, opts.Cancel),
		tea.WithContext(ctx), tea.WithInput(opts.In), tea.WithOutput(opts.Out))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to render progress: %w", err)
	}
	return nil
}

// progressModel renders a stream of [tasks.ProgressUpdate] values.
type progressModel struct {
	title   string
	updates <-chan tasks.ProgressUpdate
	cancel  context.CancelFunc
	spinner spinner.Model
	keys    keyMap
	current tasks.ProgressUpdate
	history []tasks.ProgressUpdate
	done    bool
}

func newProgressModel(title string, updates <-chan tasks.ProgressUpdate, cancel context.CancelFunc) *progressModel {
	return &progressModel{
		title:   title,
		updates: updates,
		cancel:  cancel,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.spinner)),
		keys:    newKeyMap(),
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.cancel) {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			if m.current.Message != "" {
				m.history = append(m.history, m.current)
				if len(m.history) > progressHistory {
					m.history = m.history[len(m.history)-progressHistory:]
				}
			}
			m.current = update
			return m, m.waitForProgress()
		case MsgProgressDone:
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *progressModel) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.updates == nil {
			return progressDoneMsg()
		}
		update, ok := <-m.updates
		if !ok {
			return progressDoneMsg()
		}
		return progressUpdateMsg(update)
	}
}

func (m *progressModel) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(m.title))
	b.WriteString("\n")

	for _, update := range m.history {
		b.WriteString(styles.help.Render(renderUpdate(update)))
		b.WriteString("\n")
	}

	switch {
	case m.done:
		b.WriteString(renderUpdate(m.current))
		b.WriteString("\n")
	case m.current.Message != "":
		b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), renderUpdate(m.current)))
	default:
		b.WriteString(fmt.Sprintf("%s Starting...\n", m.spinner.View()))
	}

	if !m.done {
		b.WriteString("\n")
		b.WriteString(styles.help.Render("esc to cancel"))
	}
	return b.String()
}

func renderUpdate(update tasks.ProgressUpdate) string {
	if style, ok := phaseStyle(update.Phase); ok {
		return style.Render(update.Message)
	}
	return update.Message
}
