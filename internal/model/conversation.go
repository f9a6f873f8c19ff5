package model

import (
	"encoding/json"
	"fmt"
)

// Speaker identifies who produced a turn: a human participant or the assistant.
// The zero value is the assistant.
type Speaker struct {
	participantID string
	human         bool
}

// Assistant is the speaker of every generated turn.
var Assistant = Speaker{}

// Participant returns the speaker for a human participant id.
func Participant(id string) Speaker {
	return Speaker{participantID: id, human: true}
}

func (s Speaker) IsAssistant() bool {
	return !s.human
}

// ParticipantID returns the human participant id and whether the speaker is human.
func (s Speaker) ParticipantID() (string, bool) {
	return s.participantID, s.human
}

func (s Speaker) String() string {
	if !s.human {
		return "assistant"
	}
	return s.participantID
}

// Turn is one attributed utterance. Turns are values and are never mutated
// after being appended to a log.
type Turn struct {
	Speaker Speaker
	Text    string
}

func UserTurn(participantID, text string) Turn {
	return Turn{Speaker: Participant(participantID), Text: text}
}

func AssistantTurn(text string) Turn {
	return Turn{Speaker: Assistant, Text: text}
}

// storedTurn is the durable shape of a turn: a nil user means the assistant.
type storedTurn struct {
	User *string `json:"user"`
	Msg  string  `json:"msg"`
}

func (t Turn) MarshalJSON() ([]byte, error) {
	st := storedTurn{Msg: t.Text}
	if id, ok := t.Speaker.ParticipantID(); ok {
		st.User = &id
	}
	return json.Marshal(st)
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	var st storedTurn
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	t.Text = st.Msg
	if st.User != nil {
		t.Speaker = Participant(*st.User)
	} else {
		t.Speaker = Assistant
	}
	return nil
}

// ConversationLog is the durable transcript of one conversation.
// Turns are in chronological order and only ever appended to.
type ConversationLog struct {
	ID    string `json:"id"`
	Turns []Turn `json:"events"`

	// Version is owned by the conversation store and used for conditional
	// writes. Zero means the log has never been persisted.
	Version int64 `json:"version"`
}

// NewConversationLog returns the empty log for id.
func NewConversationLog(id string) *ConversationLog {
	return &ConversationLog{ID: id, Turns: []Turn{}}
}

// DecodeConversationLog deserializes a log document as written by EncodeConversationLog.
func DecodeConversationLog(data []byte) (*ConversationLog, error) {
	var log ConversationLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decode conversation log: %w", err)
	}
	if log.Turns == nil {
		log.Turns = []Turn{}
	}
	return &log, nil
}

func EncodeConversationLog(log *ConversationLog) ([]byte, error) {
	data, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("encode conversation log: %w", err)
	}
	return data, nil
}

// Append adds turn to the end of the log.
func (l *ConversationLog) Append(turn Turn) {
	l.Turns = append(l.Turns, turn)
}

func (l *ConversationLog) Len() int {
	return len(l.Turns)
}

// Since returns a copy of the turns appended after the first n.
func (l *ConversationLog) Since(n int) []Turn {
	if n < 0 {
		n = 0
	}
	if n >= len(l.Turns) {
		return nil
	}
	out := make([]Turn, len(l.Turns)-n)
	copy(out, l.Turns[n:])
	return out
}

// Snapshot returns a copy of the turns that later appends cannot affect.
func (l *ConversationLog) Snapshot() []Turn {
	return l.Since(0)
}

// SameConversation reports whether both logs describe the same conversation.
func (l *ConversationLog) SameConversation(other *ConversationLog) bool {
	if l == nil || other == nil {
		return false
	}
	return l.ID == other.ID
}
