package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AF87FF")).Bold(true)
	questionStyle = lipgloss.NewStyle().Bold(true)
)

// Prompter asks questions on a terminal.
type Prompter struct {
	opts []tea.ProgramOption
}

// NewPrompter reads keys from in and draws on out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{opts: []tea.ProgramOption{tea.WithInput(in), tea.WithOutput(out)}}
}

// Select shows options and returns the index picked.
func (p *Prompter) Select(ctx context.Context, title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("no options to select from")
	}
	final, err := p.run(ctx, newSelectModel(title, options))
	if err != nil {
		return 0, err
	}
	m := final.(selectModel)
	if m.interrupted {
		return 0, ErrInterrupted
	}
	return m.cursor, nil
}

// Input reads one line of free text.
func (p *Prompter) Input(ctx context.Context, prompt string) (string, error) {
	final, err := p.run(ctx, newInputModel(prompt))
	if err != nil {
		return "", err
	}
	m := final.(inputModel)
	if m.interrupted {
		return "", ErrInterrupted
	}
	return m.input.Value(), nil
}

func (p *Prompter) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, p.opts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		}
		return nil, err
	}
	return final, nil
}

type selectModel struct {
	title       string
	options     []string
	cursor      int
	chosen      bool
	interrupted bool
}

func newSelectModel(title string, options []string) selectModel {
	return selectModel{title: title, options: options}
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc":
		m.interrupted = true
		return m, tea.Quit
	case "up", "k", "shift+tab":
		m.cursor = (m.cursor - 1 + len(m.options)) % len(m.options)
	case "down", "j", "tab":
		m.cursor = (m.cursor + 1) % len(m.options)
	case "enter":
		m.chosen = true
		return m, tea.Quit
	default:
		if r := key.Runes; len(r) == 1 && r[0] >= '1' && int(r[0]-'0') <= len(m.options) {
			m.cursor = int(r[0] - '1')
			m.chosen = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m selectModel) View() string {
	var b strings.Builder
	b.WriteString(questionStyle.Render(m.title) + "\n")
	if m.chosen {
		b.WriteString("  " + cursorStyle.Render(m.options[m.cursor]) + "\n")
		return b.String()
	}
	if m.interrupted {
		return b.String()
	}
	for i, o := range m.options {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render(fmt.Sprintf("> %d. %s", i+1, o)) + "\n")
			continue
		}
		fmt.Fprintf(&b, "  %d. %s\n", i+1, o)
	}
	return b.String()
}

type inputModel struct {
	input       textinput.Model
	done        bool
	interrupted bool
}

func newInputModel(prompt string) inputModel {
	ti := textinput.New()
	ti.Prompt = questionStyle.Render(prompt) + " "
	ti.Focus()
	return inputModel{input: ti}
}

func (m inputModel) Init() tea.Cmd { return textinput.Blink }

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.interrupted = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.done || m.interrupted {
		return m.input.Prompt + m.input.Value() + "\n"
	}
	return m.input.View() + "\n"
}
