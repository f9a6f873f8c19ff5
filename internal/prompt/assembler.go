package prompt

import (
	"fmt"
	"strings"

	"github.com/YushiOMOTE/buddy/core/config"
	"github.com/YushiOMOTE/buddy/internal/model"
)

// DefaultPersona is the preamble used when none is configured.
const DefaultPersona = `
The following is a chat conversation with an AI friend and some people.
The AI friend is very friendly.`

const (
	assistantLabel  = "AI"
	userLabelPrefix = "User"
	turnSeparator   = "\n\n"
)

// Assembler renders a conversation into a single completion prompt.
// It is safe for concurrent use; its persona never changes after construction.
type Assembler struct {
	persona string
	window  WindowPolicy
}

// NewAssembler creates an assembler for persona. A nil window keeps the
// whole history.
func NewAssembler(persona string, window WindowPolicy) *Assembler {
	if window == nil {
		window = Unbounded{}
	}
	return &Assembler{persona: persona, window: window}
}

// FromConfig builds the assembler described by cfg. An empty persona selects DefaultPersona.
func FromConfig(cfg config.PromptConfig) (*Assembler, error) {
	window, err := NewWindowPolicy(cfg.WindowPolicy, cfg.WindowLimit)
	if err != nil {
		return nil, fmt.Errorf("building window policy: %w", err)
	}
	persona := cfg.Persona
	if persona == "" {
		persona = DefaultPersona
	}
	return NewAssembler(persona, window), nil
}

func (a *Assembler) Persona() string {
	return a.persona
}

// Assemble renders turns as
//
//	<persona>\n\n<label>: <text>\n\n...\n\nAI:
//
// after applying the window policy. The result always ends with the
// assistant cue.
func (a *Assembler) Assemble(turns []model.Turn) string {
	return Render(a.persona, a.window.Select(turns))
}

// Render formats turns without windowing.
func Render(persona string, turns []model.Turn) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString(turnSeparator)
	for i, t := range turns {
		if i > 0 {
			b.WriteString(turnSeparator)
		}
		b.WriteString(RenderTurn(t))
	}
	b.WriteString(turnSeparator)
	b.WriteString(assistantLabel)
	b.WriteString(": ")
	return b.String()
}

// RenderTurn formats a single turn as "<label>: <text>".
func RenderTurn(t model.Turn) string {
	return Label(t.Speaker) + ": " + t.Text
}

// Label is "AI" for the assistant and "User<id>" for a participant.
func Label(s model.Speaker) string {
	id, human := s.ParticipantID()
	if !human {
		return assistantLabel
	}
	return userLabelPrefix + id
}
