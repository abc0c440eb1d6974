// Package tui renders termax's interactive surfaces with bubbletea: the
// working indicator shown while a command is generated, the action menu and
// the revision prompt.
package tui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/felixgeelhaar/termax/internal/ui"
)

// ErrInterrupted is returned when the user presses Ctrl+C in a prompt.
var ErrInterrupted = ui.ErrInterrupted

// Interactive reports whether stdin and stdout are both terminals.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Indicator is a ui.UI backed by a bubbletea program running in its own
// goroutine. Done stops the program and waits for it.
type Indicator struct {
	program *tea.Program
	done    chan struct{}
	once    sync.Once
}

// Start launches the indicator. onInterrupt, if set, runs when the user
// presses Ctrl+C while it is visible.
func Start(title string, maxAttempts int, onInterrupt func(), opts ...tea.ProgramOption) *Indicator {
	m := NewModel(title, maxAttempts)
	m.OnInterrupt = onInterrupt
	ind := &Indicator{
		program: tea.NewProgram(m, opts...),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(ind.done)
		_, _ = ind.program.Run()
	}()
	return ind
}

func (i *Indicator) UpdateStatus(status string) {
	i.program.Send(StatusMsg(status))
}

func (i *Indicator) UpdateAttempt(attempt int) {
	i.program.Send(AttemptMsg(attempt))
}

func (i *Indicator) Log(msg string) {
	i.program.Send(LogMsg(msg))
}

func (i *Indicator) Done() {
	i.once.Do(func() {
		i.program.Quit()
		<-i.done
	})
}

// Working is a ui.UI that shows an Indicator while progress arrives and
// starts a fresh one for progress reported after Done.
type Working struct {
	mu          sync.Mutex
	title       string
	maxAttempts int
	onInterrupt func()
	opts        []tea.ProgramOption
	current     *Indicator
}

func NewWorking(title string, maxAttempts int, onInterrupt func(), opts ...tea.ProgramOption) *Working {
	return &Working{title: title, maxAttempts: maxAttempts, onInterrupt: onInterrupt, opts: opts}
}

func (w *Working) indicator() *Indicator {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		w.current = Start(w.title, w.maxAttempts, w.onInterrupt, w.opts...)
	}
	return w.current
}

func (w *Working) UpdateStatus(status string) { w.indicator().UpdateStatus(status) }
func (w *Working) UpdateAttempt(attempt int)  { w.indicator().UpdateAttempt(attempt) }
func (w *Working) Log(msg string)             { w.indicator().Log(msg) }

func (w *Working) Done() {
	w.mu.Lock()
	cur := w.current
	w.current = nil
	w.mu.Unlock()
	if cur != nil {
		cur.Done()
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))
)

// maxLogLines bounds the log tail shown under the spinner.
const maxLogLines = 3

type Model struct {
	Title       string
	Status      string
	Attempt     int
	MaxAttempts int
	Log         []string
	Spinner     spinner.Model
	Progress    progress.Model
	Quitting    bool
	OnInterrupt func()
}

type LogMsg string
type StatusMsg string
type AttemptMsg int

func NewModel(title string, maxAttempts int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#AF87FF"))
	return Model{
		Title:       title,
		Status:      "Generating your command...",
		MaxAttempts: maxAttempts,
		Spinner:     s,
		Progress:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(20)),
	}
}

func (m Model) Init() tea.Cmd {
	return m.Spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Quitting = true
			if m.OnInterrupt != nil {
				m.OnInterrupt()
			}
			return m, tea.Quit
		}

	case LogMsg:
		m.Log = append(m.Log, string(msg))
		if len(m.Log) > maxLogLines {
			m.Log = m.Log[len(m.Log)-maxLogLines:]
		}

	case StatusMsg:
		m.Status = string(msg)

	case AttemptMsg:
		m.Attempt = int(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", m.Spinner.View(), titleStyle.Render(m.Title), infoStyle.Render(m.Status))
	if m.Attempt > 1 && m.MaxAttempts > 0 {
		fmt.Fprintf(&b, "  %s %s",
			m.Progress.ViewAs(float64(m.Attempt)/float64(m.MaxAttempts)),
			dimStyle.Render(fmt.Sprintf("attempt %d/%d", m.Attempt, m.MaxAttempts)))
	}
	for _, l := range m.Log {
		b.WriteString("\n  " + dimStyle.Render(l))
	}
	b.WriteString("\n")
	return b.String()
}
