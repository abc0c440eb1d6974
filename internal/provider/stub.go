package provider

import (
	"context"
	"time"
)

// Call records one request made to a StubProvider.
type Call struct {
	Kind        string // "command" or "description"
	Instruction string
	Text        string
}

// StubProvider replays scripted replies. It is used by tests and by the
// "stub" platform for offline demos. The last scripted reply repeats once the
// script runs out.
type StubProvider struct {
	Commands     []string
	Descriptions []string
	Delay        time.Duration
	Calls        []Call
}

func NewStubProvider() *StubProvider {
	return &StubProvider{
		Commands:     []string{"Sure.\nCommands: ls -la"},
		Descriptions: []string{"Lists all files in the current directory, including hidden ones, in long format."},
	}
}

func (m *StubProvider) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.Delay):
		return nil
	}
}

func (m *StubProvider) ToCommand(ctx context.Context, instruction, text string) (string, error) {
	m.Calls = append(m.Calls, Call{Kind: "command", Instruction: instruction, Text: text})
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if len(m.Commands) == 0 {
		return "", nil
	}
	resp := m.Commands[0]
	if len(m.Commands) > 1 {
		m.Commands = m.Commands[1:]
	}
	return resp, nil
}

func (m *StubProvider) ToDescription(ctx context.Context, instruction, command string) (string, error) {
	m.Calls = append(m.Calls, Call{Kind: "description", Instruction: instruction, Text: command})
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if len(m.Descriptions) == 0 {
		return "", nil
	}
	resp := m.Descriptions[0]
	if len(m.Descriptions) > 1 {
		m.Descriptions = m.Descriptions[1:]
	}
	return resp, nil
}

func (m *StubProvider) Name() string {
	return "stub"
}
