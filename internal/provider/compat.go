package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// CompatProvider talks to vendors exposing an OpenAI-compatible chat
// completions endpoint (Mistral, QianWen, QianFan).
type CompatProvider struct {
	name   string
	client *openai.Client
	model  string
	tuning Tuning
}

func NewCompatProvider(name, defaultBaseURL, defaultModel string, s Settings) (*CompatProvider, error) {
	if err := requireKey(name, s.APIKey); err != nil {
		return nil, err
	}

	baseURL := defaultBaseURL
	if s.BaseURL != "" {
		baseURL = s.BaseURL
	}
	client := openai.NewClient(
		option.WithAPIKey(s.APIKey),
		option.WithBaseURL(baseURL),
	)

	model := s.Model
	if model == "" {
		model = defaultModel
	}

	return &CompatProvider{
		name:   name,
		client: &client,
		model:  model,
		tuning: s.Tuning,
	}, nil
}

func (p *CompatProvider) Name() string {
	return p.name
}

func (p *CompatProvider) ToCommand(ctx context.Context, instruction, text string) (string, error) {
	return p.complete(ctx, instruction, text)
}

func (p *CompatProvider) ToDescription(ctx context.Context, instruction, command string) (string, error) {
	return p.complete(ctx, instruction, command)
}

func (p *CompatProvider) params(system, user string) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if p.tuning.Temperature != nil {
		params.Temperature = openai.Float(*p.tuning.Temperature)
	}
	if p.tuning.TopP != nil {
		params.TopP = openai.Float(*p.tuning.TopP)
	}
	if p.tuning.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.tuning.MaxTokens))
	}
	return params
}

func (p *CompatProvider) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.params(system, user))
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
