package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Backend constants for secret store selection.
const (
	BackendEnv = "env"
	BackendAWS = "aws"
)

// providerAnthropic selects the Anthropic key; any other provider uses OpenAI.
const providerAnthropic = "anthropic"

var ErrIncomplete = errors.New("secrets incomplete")

// Secrets are the credentials a delivery needs before any collaborator is built.
type Secrets struct {
	LineChannelAccessToken string `json:"LINE_CHANNEL_ACCESS_TOKEN"`
	LineChannelSecret      string `json:"LINE_CHANNEL_SECRET"`
	OpenAIAPIKey           string `json:"OPENAI_API_KEY"`
	AnthropicAPIKey        string `json:"ANTHROPIC_API_KEY,omitempty"`
}

// Store fetches the current credentials.
type Store interface {
	Fetch(ctx context.Context) (Secrets, error)
}

// Validate reports which credentials a delivery using the named completion
// provider is missing.
func (s Secrets) Validate(provider string) error {
	missing := s.missingLine()
	if s.CompletionAPIKey(provider) == "" {
		missing = append(missing, completionKeyName(provider))
	}
	return incomplete(missing)
}

// validateLine checks the credentials every delivery needs regardless of provider.
func (s Secrets) validateLine() error {
	return incomplete(s.missingLine())
}

func (s Secrets) missingLine() []string {
	var missing []string
	if s.LineChannelAccessToken == "" {
		missing = append(missing, "LINE_CHANNEL_ACCESS_TOKEN")
	}
	if s.LineChannelSecret == "" {
		missing = append(missing, "LINE_CHANNEL_SECRET")
	}
	return missing
}

func incomplete(missing []string) error {
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrIncomplete, missing)
	}
	return nil
}

// CompletionAPIKey returns the key for the named completion provider.
func (s Secrets) CompletionAPIKey(provider string) string {
	if provider == providerAnthropic {
		return s.AnthropicAPIKey
	}
	return s.OpenAIAPIKey
}

func completionKeyName(provider string) string {
	if provider == providerAnthropic {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// decode parses a JSON secret document with SCREAMING_SNAKE_CASE keys.
func decode(data string) (Secrets, error) {
	var s Secrets
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return Secrets{}, fmt.Errorf("parsing secret string: %w", err)
	}
	if err := s.validateLine(); err != nil {
		return Secrets{}, err
	}
	return s, nil
}

// Config selects and configures a secret store backend.
type Config struct {
	Backend    string
	SecretName string
	Region     string
}

// New builds the configured secret store.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendEnv:
		return NewEnvStore(), nil
	case BackendAWS:
		store, err := NewAWSStore(ctx, cfg.SecretName, cfg.Region)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported secrets backend: %s", cfg.Backend)
	}
}
