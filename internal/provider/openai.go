package provider

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client *openai.Client
	model  string
	tuning Tuning
}

func NewOpenAIProvider(s Settings) (*OpenAIProvider, error) {
	if err := requireKey("openai", s.APIKey); err != nil {
		return nil, err
	}

	config := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		config.BaseURL = s.BaseURL
	}

	model := s.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  model,
		tuning: s.Tuning,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) ToCommand(ctx context.Context, instruction, text string) (string, error) {
	return p.complete(ctx, instruction, text)
}

func (p *OpenAIProvider) ToDescription(ctx context.Context, instruction, command string) (string, error) {
	return p.complete(ctx, instruction, command)
}

func (p *OpenAIProvider) complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens: p.tuning.MaxTokens,
		Stop:      p.tuning.StopSequences,
	}
	if p.tuning.Temperature != nil {
		req.Temperature = float32(*p.tuning.Temperature)
	}
	if p.tuning.TopP != nil {
		req.TopP = float32(*p.tuning.TopP)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(
		ctx,
		openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.SmallEmbedding3,
		},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}
