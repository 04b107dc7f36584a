package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/services"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"golang.org/x/term"
)

// PrompterOpts contains configuration options for creating a [Prompter].
type PrompterOpts struct {
	In          io.Reader // defaults to os.Stdin
	Out         io.Writer // defaults to os.Stderr
	LoginURL    string
	OpenBrowser bool // open LoginURL in the system browser before prompting
	Logger      *log.Logger
}

// Prompter implements [services.TokenPrompter] with a masked terminal input.
//
// When In is not a terminal a single line is read instead, so tokens can be piped in.
type Prompter struct {
	in          io.Reader
	out         io.Writer
	loginURL    string
	openBrowser bool
	logger      *log.Logger

	// lines buffers piped input across prompts; pending holds a read left over from a cancelled prompt.
	lines   *bufio.Reader
	pending chan lineResult

	isTerminal func(io.Reader) bool
	openURL    func(string) error
}

var _ services.TokenPrompter = (*Prompter)(nil)

// NewPrompter creates a [Prompter].
func NewPrompter(opts PrompterOpts) *Prompter {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Prompter{
		in:          opts.In,
		out:         opts.Out,
		loginURL:    opts.LoginURL,
		openBrowser: opts.OpenBrowser,
		logger:      opts.Logger,
		lines:       bufio.NewReader(opts.In),
		isTerminal:  isTerminal,
		openURL:     shared.OpenBrowser,
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// PromptToken asks for a token or a pasted "Copy as cURL" command and returns the extracted token.
func (p *Prompter) PromptToken(ctx context.Context) (services.PromptResponse, error) {
	if p.openBrowser && p.loginURL != "" {
		if err := p.openURL(p.loginURL); err != nil {
			p.logger.Warn("failed to open browser", "url", p.loginURL, "err", err)
		}
	}

	var (
		raw string
		err error
	)
	if p.isTerminal(p.in) {
		raw, err = p.runInput(ctx)
	} else {
		raw, err = p.readLine(ctx)
	}
	if err != nil {
		return services.PromptResponse{}, err
	}

	token, err := shared.ExtractAuthToken(raw)
	if err != nil {
		return services.PromptResponse{}, err
	}
	return services.PromptResponse{Token: token}, nil
}

func (p *Prompter) runInput(ctx context.Context) (string, error) {
	program := tea.NewProgram(newTokenModel(p.loginURL),
		tea.WithContext(ctx), tea.WithInput(p.in), tea.WithOutput(p.out))

	final, err := program.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to run token prompt: %w", err)
	}

	m, ok := final.(*tokenModel)
	if !ok || m.cancelled {
		return "", shared.ErrPromptCancelled
	}
	return m.value, nil
}

type lineResult struct {
	line string
	err  error
}

func (p *Prompter) readLine(ctx context.Context) (string, error) {
	if p.loginURL != "" {
		fmt.Fprintf(p.out, "Sign in at %s and paste the auth token or cURL command:\n", p.loginURL)
	} else {
		fmt.Fprintln(p.out, "Paste the auth token or cURL command:")
	}

	if p.pending == nil {
		p.pending = make(chan lineResult, 1)
		go func(pending chan<- lineResult) {
			line, err := p.lines.ReadString('\n')
			pending <- lineResult{line, err}
		}(p.pending)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-p.pending:
		p.pending = nil
		switch {
		case strings.TrimSpace(r.line) != "":
			return r.line, nil
		case errors.Is(r.err, io.EOF):
			return "", shared.ErrPromptCancelled
		case r.err != nil:
			return "", fmt.Errorf("failed to read token: %w", r.err)
		}
		return r.line, nil
	}
}

// tokenModel is the bubbletea model of the masked token input.
type tokenModel struct {
	input     textinput.Model
	help      help.Model
	keys      keyMap
	loginURL  string
	value     string
	cancelled bool
	err       error
}

func newTokenModel(loginURL string) *tokenModel {
	input := textinput.New()
	input.Placeholder = "token or curl command"
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '•'
	input.Prompt = "> "
	input.Width = 60
	input.Focus()

	return &tokenModel{input: input, help: help.New(), keys: newKeyMap(), loginURL: loginURL}
}

func (m *tokenModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *tokenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.cancel):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.reveal):
			if m.input.EchoMode == textinput.EchoPassword {
				m.input.EchoMode = textinput.EchoNormal
			} else {
				m.input.EchoMode = textinput.EchoPassword
			}
			return m, nil
		case key.Matches(msg, m.keys.submit):
			value := strings.TrimSpace(m.input.Value())
			if _, err := shared.ExtractAuthToken(value); err != nil {
				m.err = err
				return m, nil
			}
			m.value = value
			return m, tea.Quit
		}
	}

	m.err = nil
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *tokenModel) View() string {
	if m.value != "" || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Texas DPS scheduler auth token"))
	b.WriteString("\n")
	if m.loginURL != "" {
		b.WriteString(styles.help.Render(fmt.Sprintf("Sign in at %s, then paste the token or a copied cURL request.", m.loginURL)))
		b.WriteString("\n\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
