package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiProvider struct {
	client *genai.Client
	model  string
	tuning Tuning
}

func NewGeminiProvider(s Settings) (*GeminiProvider, error) {
	if err := requireKey("gemini", s.APIKey); err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithAPIKey(s.APIKey)}
	if s.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(s.BaseURL))
	}

	client, err := genai.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := s.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	return &GeminiProvider{
		client: client,
		model:  model,
		tuning: s.Tuning,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) ToCommand(ctx context.Context, instruction, text string) (string, error) {
	return p.generate(ctx, instruction, text)
}

func (p *GeminiProvider) ToDescription(ctx context.Context, instruction, command string) (string, error) {
	return p.generate(ctx, instruction, command)
}

func (p *GeminiProvider) generativeModel(system string) *genai.GenerativeModel {
	m := p.client.GenerativeModel(p.model)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	if p.tuning.Temperature != nil {
		m.SetTemperature(float32(*p.tuning.Temperature))
	}
	if p.tuning.TopP != nil {
		m.SetTopP(float32(*p.tuning.TopP))
	}
	if p.tuning.TopK > 0 {
		m.SetTopK(int32(p.tuning.TopK))
	}
	if p.tuning.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(p.tuning.MaxTokens))
	}
	if len(p.tuning.StopSequences) > 0 {
		m.StopSequences = p.tuning.StopSequences
	}
	return m
}

func (p *GeminiProvider) generate(ctx context.Context, system, user string) (string, error) {
	resp, err := p.generativeModel(system).GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			content.WriteString(string(text))
		}
	}
	return content.String(), nil
}

func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	em := p.client.EmbeddingModel("text-embedding-004")
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return res.Embedding.Values, nil
}
