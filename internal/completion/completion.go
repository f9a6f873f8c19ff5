package completion

import (
	"context"
	"fmt"
	"strings"
)

// Provider constants for completion provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Fixed request shape. These are not exposed as per-request options.
const (
	temperature = 0.1
	maxTokens   = 2048
)

// Completer turns a prompt into a single generated continuation.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds completion client configuration.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string
	BaseURL  string // Optional: custom API endpoint
	Model    string
}

// New creates a Completer for cfg.Provider. Defaults to OpenAI.
func New(cfg Config) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	switch cfg.Provider {
	case "", ProviderOpenAI:
		return newOpenAICompleter(cfg), nil
	case ProviderAnthropic:
		return newAnthropicCompleter(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Provider)
	}
}

func clean(text string) string {
	return strings.TrimSpace(text)
}
