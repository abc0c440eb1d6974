package provider

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CLIProvider pipes prompts through a local agent binary (claude, llm, ...).
type CLIProvider struct {
	binaryPath string
	args       []string
}

func NewCLIProvider(binaryPath string, args []string) (*CLIProvider, error) {
	if binaryPath == "" {
		return nil, fmt.Errorf("%w: binary path is required for CLI provider", ErrNotConfigured)
	}
	return &CLIProvider{
		binaryPath: binaryPath,
		args:       args,
	}, nil
}

// DetectCLIProvider picks the first known agent binary found on PATH.
func DetectCLIProvider() (*CLIProvider, error) {
	tools := []string{"claude", "codex", "gemini", "llm"}
	for _, t := range tools {
		if path, err := exec.LookPath(t); err == nil {
			return NewCLIProvider(path, []string{"-p"})
		}
	}
	return nil, fmt.Errorf("%w: no local CLI agents detected (tried %s)", ErrNotConfigured, strings.Join(tools, ", "))
}

func (p *CLIProvider) Name() string {
	return "cli-" + p.binaryPath
}

func (p *CLIProvider) ToCommand(ctx context.Context, instruction, text string) (string, error) {
	return p.run(ctx, instruction+"\n\n"+text)
}

func (p *CLIProvider) ToDescription(ctx context.Context, instruction, command string) (string, error) {
	return p.run(ctx, instruction+"\n\n"+command)
}

func (p *CLIProvider) run(ctx context.Context, prompt string) (string, error) {
	fullArgs := append(append([]string{}, p.args...), prompt)
	cmd := exec.CommandContext(ctx, p.binaryPath, fullArgs...)

	output, err := cmd.CombinedOutput()
	result := string(output)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("cli agent interrupted: %w", ctx.Err())
		}
		return "", fmt.Errorf("cli agent failed: %w\nOutput: %s", err, result)
	}
	return result, nil
}
