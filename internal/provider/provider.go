package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrNotConfigured is returned when a backend lacks the settings it needs,
// typically an API key.
var ErrNotConfigured = errors.New("provider not configured")

// Provider is the model gateway: an opaque function from an instruction and
// a user text to free-form text.
type Provider interface {
	// ToCommand asks for a command answering text. The reply may be empty.
	ToCommand(ctx context.Context, instruction, text string) (string, error)

	// ToDescription asks for a human-readable description of command.
	ToDescription(ctx context.Context, instruction, command string) (string, error)

	// Name returns the provider identifier (e.g., "stub", "openai").
	Name() string
}

// Settings carries backend configuration. Zero values mean "backend default".
type Settings struct {
	APIKey    string
	SecretKey string
	Model     string
	BaseURL   string
	Binary    string
	Args      []string
	Tuning    Tuning
}

// Tuning holds sampling knobs. Nil pointers and zero ints are left unset.
type Tuning struct {
	Temperature   *float64
	TopP          *float64
	TopK          int
	MaxTokens     int
	StopSequences []string
}

type factory func(Settings) (Provider, error)

var factories = map[string]factory{
	"openai": func(s Settings) (Provider, error) { return NewOpenAIProvider(s) },
	"ollama": func(s Settings) (Provider, error) { return NewOllamaProvider(s) },
	"gemini": func(s Settings) (Provider, error) { return NewGeminiProvider(s) },
	"claude": func(s Settings) (Provider, error) { return NewClaudeProvider(s) },
	"mistral": func(s Settings) (Provider, error) {
		return NewCompatProvider("mistral", "https://api.mistral.ai/v1", "mistral-small-latest", s)
	},
	"qianwen": func(s Settings) (Provider, error) {
		return NewCompatProvider("qianwen", "https://dashscope.aliyuncs.com/compatible-mode/v1", "qwen-plus", s)
	},
	"qianfan": func(s Settings) (Provider, error) {
		return NewCompatProvider("qianfan", "https://qianfan.baidubce.com/v2", "ernie-4.0-8k", s)
	},
	"cli": func(s Settings) (Provider, error) {
		if s.Binary == "" {
			return DetectCLIProvider()
		}
		return NewCLIProvider(s.Binary, s.Args)
	},
	"stub": func(Settings) (Provider, error) { return NewStubProvider(), nil },
}

// Platforms lists the backend names accepted by New.
func Platforms() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the provider registered under platform.
func New(platform string, s Settings) (Provider, error) {
	f, ok := factories[platform]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", platform)
	}
	return f(s)
}

func requireKey(name, key string) error {
	if key == "" {
		return fmt.Errorf("%w: %s API key is required", ErrNotConfigured, name)
	}
	return nil
}
