package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/ollama/ollama/api"
)

type OllamaProvider struct {
	client *api.Client
	model  string
	tuning Tuning
}

func NewOllamaProvider(s Settings) (*OllamaProvider, error) {
	model := s.Model
	if model == "" {
		model = "llama3.2"
	}

	baseURL := "http://localhost:11434"
	if envURL := os.Getenv("OLLAMA_HOST"); envURL != "" {
		baseURL = envURL
	}
	if s.BaseURL != "" {
		baseURL = s.BaseURL
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	uri, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", baseURL, err)
	}

	return &OllamaProvider{
		client: api.NewClient(uri, http.DefaultClient),
		model:  model,
		tuning: s.Tuning,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) ToCommand(ctx context.Context, instruction, text string) (string, error) {
	return p.chat(ctx, instruction, text)
}

func (p *OllamaProvider) ToDescription(ctx context.Context, instruction, command string) (string, error) {
	return p.chat(ctx, instruction, command)
}

func (p *OllamaProvider) options() map[string]any {
	opts := map[string]any{}
	if p.tuning.Temperature != nil {
		opts["temperature"] = *p.tuning.Temperature
	}
	if p.tuning.TopP != nil {
		opts["top_p"] = *p.tuning.TopP
	}
	if p.tuning.TopK > 0 {
		opts["top_k"] = p.tuning.TopK
	}
	if p.tuning.MaxTokens > 0 {
		opts["num_predict"] = p.tuning.MaxTokens
	}
	if len(p.tuning.StopSequences) > 0 {
		opts["stop"] = p.tuning.StopSequences
	}
	return opts
}

func (p *OllamaProvider) chat(ctx context.Context, system, user string) (string, error) {
	req := &api.ChatRequest{
		Model: p.model,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  new(bool), // false
		Options: p.options(),
	}

	var content strings.Builder
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	return content.String(), nil
}

func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := &api.EmbeddingRequest{
		Model:  p.model,
		Prompt: text,
	}
	resp, err := p.client.Embeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
