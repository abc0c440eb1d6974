package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeMaxTokens = 1024

type ClaudeProvider struct {
	client *anthropic.Client
	model  string
	tuning Tuning
}

func NewClaudeProvider(s Settings) (*ClaudeProvider, error) {
	if err := requireKey("claude", s.APIKey); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{option.WithAPIKey(s.APIKey)}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	model := s.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	return &ClaudeProvider{
		client: &client,
		model:  model,
		tuning: s.Tuning,
	}, nil
}

func (p *ClaudeProvider) Name() string {
	return "claude"
}

func (p *ClaudeProvider) ToCommand(ctx context.Context, instruction, text string) (string, error) {
	return p.message(ctx, instruction, text)
}

func (p *ClaudeProvider) ToDescription(ctx context.Context, instruction, command string) (string, error) {
	return p.message(ctx, instruction, command)
}

func (p *ClaudeProvider) params(system, user string) anthropic.MessageNewParams {
	maxTokens := int64(defaultClaudeMaxTokens)
	if p.tuning.MaxTokens > 0 {
		maxTokens = int64(p.tuning.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		StopSequences: p.tuning.StopSequences,
	}
	if p.tuning.Temperature != nil {
		params.Temperature = anthropic.Float(*p.tuning.Temperature)
	}
	if p.tuning.TopP != nil {
		params.TopP = anthropic.Float(*p.tuning.TopP)
	}
	if p.tuning.TopK > 0 {
		params.TopK = anthropic.Int(int64(p.tuning.TopK))
	}
	return params
}

func (p *ClaudeProvider) message(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.Messages.New(ctx, p.params(system, user))
	if err != nil {
		return "", fmt.Errorf("claude completion failed: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.AsText().Text)
		}
	}
	return content.String(), nil
}
