package prompt

import (
	"fmt"

	"github.com/weaviate/tiktoken-go"

	"github.com/YushiOMOTE/buddy/internal/model"
)

// WindowPolicy chooses which turns of a log are rendered into the prompt.
// Implementations must return a suffix of turns in their original order.
type WindowPolicy interface {
	Select(turns []model.Turn) []model.Turn
}

// Unbounded keeps the entire history.
type Unbounded struct{}

func (Unbounded) Select(turns []model.Turn) []model.Turn {
	return turns
}

// LastTurns keeps only the newest K turns. K <= 0 keeps everything.
type LastTurns struct {
	K int
}

func (w LastTurns) Select(turns []model.Turn) []model.Turn {
	if w.K <= 0 || len(turns) <= w.K {
		return turns
	}
	return turns[len(turns)-w.K:]
}

// TokenCounter counts tokens in a piece of text.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter returns a counter for the named encoding, e.g. "cl100k_base".
func NewTiktokenCounter(encoding string) (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", encoding, err)
	}
	return &tiktokenCounter{enc: enc}, nil
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// TokenBudget keeps the newest turns whose rendered size fits in MaxTokens.
// The newest turn is always kept so the completion sees the message it answers.
type TokenBudget struct {
	MaxTokens int
	Counter   TokenCounter
}

func (w TokenBudget) Select(turns []model.Turn) []model.Turn {
	if w.MaxTokens <= 0 || w.Counter == nil || len(turns) == 0 {
		return turns
	}

	used := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		cost := w.Counter.Count(RenderTurn(turns[i]))
		if start < len(turns) && used+cost > w.MaxTokens {
			break
		}
		used += cost
		start = i
	}
	return turns[start:]
}

// NewWindowPolicy builds a policy from its configured name.
// Supported names are "unbounded", "last_turns" and "token_budget".
func NewWindowPolicy(name string, limit int) (WindowPolicy, error) {
	switch name {
	case "", "unbounded":
		return Unbounded{}, nil
	case "last_turns":
		return LastTurns{K: limit}, nil
	case "token_budget":
		counter, err := NewTiktokenCounter("cl100k_base")
		if err != nil {
			return nil, err
		}
		return TokenBudget{MaxTokens: limit, Counter: counter}, nil
	default:
		return nil, fmt.Errorf("unknown window policy: %s", name)
	}
}
