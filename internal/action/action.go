// Package action runs the interactive loop over a generated command: copy,
// explain, execute or revise it before anything is remembered.
package action

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/termax/internal/generate"
	"github.com/felixgeelhaar/termax/internal/memory"
	"github.com/felixgeelhaar/termax/internal/observe"
	"github.com/felixgeelhaar/termax/internal/shell"
	"github.com/felixgeelhaar/termax/internal/ui"
)

// RevisionMarker separates the original intent from user feedback.
const RevisionMarker = " Revised Command: "

// State is a node of the action loop.
type State string

const (
	StatePresented  State = "presented"
	StateCopied     State = "copied"
	StateExplained  State = "explained"
	StateExecuting  State = "executing"
	StateRevising   State = "revising"
	StateTerminated State = "terminated"
)

// Choice is a menu entry offered in StatePresented.
type Choice string

const (
	ChoiceCopy    Choice = "copy"
	ChoiceExplain Choice = "explain"
	ChoiceExecute Choice = "execute"
	ChoiceRevise  Choice = "revise"
	ChoiceAbort   Choice = "abort"
)

// Mode selects the flavor of the loop.
type Mode int

const (
	// ModeGenerate offers execute, explain, revise and abort. Explaining
	// ends the session.
	ModeGenerate Mode = iota
	// ModeGuess offers copy, explain, execute, revise and exit. Explaining
	// returns to the menu.
	ModeGuess
)

func (m Mode) choices() []Choice {
	if m == ModeGuess {
		return []Choice{ChoiceCopy, ChoiceExplain, ChoiceExecute, ChoiceRevise, ChoiceAbort}
	}
	return []Choice{ChoiceExecute, ChoiceExplain, ChoiceRevise, ChoiceAbort}
}

// Generator produces and explains candidates.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) (*generate.Candidate, error)
	Explain(ctx context.Context, command string) (string, error)
}

// Executor runs a command in the user's shell.
type Executor interface {
	Run(ctx context.Context, command string) (shell.Result, error)
}

// Clipboard receives copied commands.
type Clipboard interface {
	WriteAll(text string) error
}

// Menu asks the user for decisions. Implementations return ui.ErrInterrupted
// when the user presses Ctrl+C.
type Menu interface {
	Select(ctx context.Context, title string, choices []Choice) (Choice, error)
	Input(ctx context.Context, prompt string) (string, error)
}

// Recorder persists accepted commands.
type Recorder interface {
	Add(ctx context.Context, intent, command string) (*memory.Record, error)
}

type Options struct {
	// AutoExecute runs the first candidate without asking (generate mode).
	AutoExecute bool
	// ShowCommand prints the candidate before running it automatically.
	ShowCommand bool
}

// Outcome is the terminal result of a session.
type Outcome struct {
	Command     string
	Intent      string
	Last        Choice
	Copied      bool
	Explanation string
	Executed    bool
	Result      shell.Result
	Interrupted bool
	Record      *memory.Record
	// StoreErr is set when a successful command could not be remembered.
	StoreErr error
}

// Persisted reports whether the session wrote a record.
func (o *Outcome) Persisted() bool {
	return o.Record != nil
}

// Machine drives one session.
type Machine struct {
	gen  Generator
	exec Executor
	clip Clipboard
	menu Menu
	rec  Recorder
	obs  *observe.Observer
	out  io.Writer
	opts Options
}

func New(gen Generator, exec Executor, clip Clipboard, menu Menu, rec Recorder, obs *observe.Observer, out io.Writer, opts Options) *Machine {
	if obs == nil {
		obs = observe.Discard()
	}
	if out == nil {
		out = io.Discard
	}
	return &Machine{
		gen:  gen,
		exec: exec,
		clip: clip,
		menu: menu,
		rec:  rec,
		obs:  obs,
		out:  out,
		opts: opts,
	}
}

var (
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AF87FF")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

type session struct {
	mode      Mode
	req       generate.Request
	candidate *generate.Candidate
	outcome   *Outcome
}

// Run generates a candidate for req and lets the user act on it. Generation
// errors end the session in generate mode. In guess mode an empty
// suggestion sends the user straight to revising.
func (m *Machine) Run(ctx context.Context, mode Mode, req generate.Request) (*Outcome, error) {
	ctx, span := m.obs.StartSpan(ctx, "action.session", attribute.Int("mode", int(mode)))
	defer span.End()

	s := &session{mode: mode, req: req, outcome: &Outcome{Intent: req.Intent}}

	state := StatePresented
	if err := m.regenerate(ctx, s); err != nil {
		if ctx.Err() != nil {
			s.outcome.Interrupted = true
			return s.outcome, nil
		}
		if mode != ModeGuess || !errors.Is(err, generate.ErrGenerationFailed) {
			return s.outcome, err
		}
		fmt.Fprintln(m.out, warnStyle.Render("Suggestion not readily available. Please revise for better results."))
		state = StateRevising
	}

	if mode == ModeGenerate && m.opts.AutoExecute {
		if m.opts.ShowCommand {
			fmt.Fprintln(m.out, commandStyle.Render(s.candidate.Text))
		}
		state = StateExecuting
	}

	for state != StateTerminated {
		m.obs.Log().Debug().Str("state", string(state)).Msg("action transition")
		span.AddEvent(string(state))

		var err error
		switch state {
		case StatePresented:
			state, err = m.present(ctx, s)
		case StateCopied:
			state = m.copy(s)
		case StateExplained:
			state, err = m.explain(ctx, s)
		case StateExecuting:
			state, err = m.execute(ctx, s)
		case StateRevising:
			state, err = m.revise(ctx, s)
		}
		if err != nil {
			span.RecordError(err)
			return s.outcome, err
		}
	}
	return s.outcome, nil
}

func (m *Machine) regenerate(ctx context.Context, s *session) error {
	c, err := m.gen.Generate(ctx, s.req)
	if err != nil {
		s.candidate = nil
		s.outcome.Command = ""
		return err
	}
	s.candidate = c
	s.outcome.Command = c.Text
	s.outcome.Intent = c.SourceIntent
	if c.Warning != "" {
		fmt.Fprintln(m.out, warnStyle.Render("Warning: "+c.Warning))
	}
	return nil
}

func (m *Machine) present(ctx context.Context, s *session) (State, error) {
	title := "Command: " + commandStyle.Render(s.candidate.Text)
	choice, err := m.menu.Select(ctx, title, s.mode.choices())
	if err != nil {
		if errors.Is(err, ui.ErrInterrupted) || ctx.Err() != nil {
			s.outcome.Interrupted = true
			return StateTerminated, nil
		}
		return StateTerminated, err
	}
	s.outcome.Last = choice

	switch choice {
	case ChoiceCopy:
		return StateCopied, nil
	case ChoiceExplain:
		return StateExplained, nil
	case ChoiceExecute:
		return StateExecuting, nil
	case ChoiceRevise:
		return StateRevising, nil
	default:
		return StateTerminated, nil
	}
}

func (m *Machine) copy(s *session) State {
	if err := m.clip.WriteAll(s.candidate.Text); err != nil {
		m.obs.Log().Warn().Err(err).Msg("clipboard write failed")
		fmt.Fprintln(m.out, errorStyle.Render("Failed to copy the command."))
		return StateTerminated
	}
	s.outcome.Copied = true
	fmt.Fprintln(m.out, infoStyle.Render("Command copied to clipboard."))
	return StateTerminated
}

func (m *Machine) explain(ctx context.Context, s *session) (State, error) {
	desc, err := m.gen.Explain(ctx, s.candidate.Text)
	if err != nil {
		if ctx.Err() != nil {
			s.outcome.Interrupted = true
			return StateTerminated, nil
		}
		return StateTerminated, err
	}
	s.outcome.Explanation = desc
	fmt.Fprintln(m.out, desc)

	if s.mode == ModeGuess {
		return StatePresented, nil
	}
	return StateTerminated, nil
}

func (m *Machine) execute(ctx context.Context, s *session) (State, error) {
	ctx, span := m.obs.StartSpan(ctx, "action.execute", attribute.String("command", s.candidate.Text))
	defer span.End()

	s.outcome.Last = ChoiceExecute
	res, err := m.exec.Run(ctx, s.candidate.Text)
	if err != nil {
		span.RecordError(err)
		return StateTerminated, err
	}
	s.outcome.Executed = true
	s.outcome.Result = res

	// An interrupted command counts as approved by the user.
	success := res.Success() || res.Interrupted
	if res.Interrupted {
		s.outcome.Interrupted = true
	}
	if !success {
		m.obs.Log().Info().Int("exit_code", res.ExitCode).Msg("command failed")
		fmt.Fprintln(m.out, errorStyle.Render(fmt.Sprintf("Command exited with status %d.", res.ExitCode)))
		return StateTerminated, nil
	}

	m.persist(context.WithoutCancel(ctx), s)
	return StateTerminated, nil
}

func (m *Machine) persist(ctx context.Context, s *session) {
	if m.rec == nil || strings.TrimSpace(s.candidate.Text) == "" {
		return
	}
	rec, err := m.rec.Add(ctx, s.candidate.SourceIntent, s.candidate.Text)
	if err != nil {
		s.outcome.StoreErr = err
		m.obs.Log().Warn().Err(err).Msg("could not remember command")
		fmt.Fprintln(m.out, warnStyle.Render("Could not save the command to memory: "+err.Error()))
		return
	}
	s.outcome.Record = rec
}

func (m *Machine) revise(ctx context.Context, s *session) (State, error) {
	feedback, err := m.menu.Input(ctx, "Revise the command:")
	if err != nil {
		if errors.Is(err, ui.ErrInterrupted) || ctx.Err() != nil {
			s.outcome.Interrupted = true
			return StateTerminated, nil
		}
		return StateTerminated, err
	}

	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		if s.candidate != nil {
			return StatePresented, nil
		}
		return StateTerminated, nil
	}

	s.req.Intent += RevisionMarker + feedback
	s.outcome.Intent = s.req.Intent

	if err := m.regenerate(ctx, s); err != nil {
		if ctx.Err() != nil {
			s.outcome.Interrupted = true
			return StateTerminated, nil
		}
		if s.mode == ModeGuess && errors.Is(err, generate.ErrGenerationFailed) {
			fmt.Fprintln(m.out, warnStyle.Render("Suggestion not readily available. Please revise for better results."))
			return StateRevising, nil
		}
		return StateTerminated, err
	}
	return StatePresented, nil
}
