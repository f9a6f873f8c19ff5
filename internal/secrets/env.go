package secrets

import (
	"context"
	"os"
)

// EnvStore reads credentials from the process environment. In development
// the environment is populated from .env by the config loader.
type EnvStore struct {
	lookup func(string) (string, bool)
}

func NewEnvStore() *EnvStore {
	return &EnvStore{lookup: os.LookupEnv}
}

// NewEnvStoreFrom reads credentials through lookup instead of the environment.
func NewEnvStoreFrom(lookup func(string) (string, bool)) *EnvStore {
	return &EnvStore{lookup: lookup}
}

func (s *EnvStore) Fetch(ctx context.Context) (Secrets, error) {
	secrets := Secrets{
		LineChannelAccessToken: s.get("LINE_CHANNEL_ACCESS_TOKEN"),
		LineChannelSecret:      s.get("LINE_CHANNEL_SECRET"),
		OpenAIAPIKey:           s.get("OPENAI_API_KEY"),
		AnthropicAPIKey:        s.get("ANTHROPIC_API_KEY"),
	}
	if err := secrets.validateLine(); err != nil {
		return Secrets{}, err
	}
	return secrets, nil
}

func (s *EnvStore) get(key string) string {
	v, _ := s.lookup(key)
	return v
}
