package model

import (
	"strings"
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Well-known message ids. Question prompts are "q-<index>".
const (
	QuestionIDPrefix = "q-"
	CompletionID     = "done"
)

// Message is a single entry in a session's history.
type Message struct {
	ID      string `json:"id,omitempty"`
	Text    string `json:"text,omitempty"`
	Sender  Sender `json:"sender"`
	Loading bool   `json:"loading,omitempty"` // Placeholder awaiting a reply.
}

// IsScripted reports whether the message is a question prompt or the completion notice.
func (m Message) IsScripted() bool {
	return strings.HasPrefix(m.ID, QuestionIDPrefix) || m.ID == CompletionID
}

// ConversationState tracks progress through the question sequence.
// Cursor is only meaningful while InTestingMode is true.
type ConversationState struct {
	Cursor        int  `json:"cursor"`
	InTestingMode bool `json:"in_testing_mode"`
	Completed     bool `json:"completed"`
}

// Phase is the controller state derived from ConversationState.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseAsking    Phase = "asking"
	PhaseCompleted Phase = "completed"
)

// Phase derives the controller state. A restarted test reports asking even
// though Completed stays set from the earlier run.
func (s ConversationState) Phase() Phase {
	switch {
	case s.InTestingMode:
		return PhaseAsking
	case s.Completed:
		return PhaseCompleted
	default:
		return PhaseIdle
	}
}

// Session is one conversation: its append-only history plus controller state.
type Session struct {
	ID        string            `json:"id"`
	Messages  []Message         `json:"messages"`
	State     ConversationState `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Clone returns a copy whose message slice does not alias the original.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	return &c
}

// ResolveMessage replaces the loading placeholder with the given id by its final
// text. It reports whether a placeholder was found.
func (s *Session) ResolveMessage(id, text string) bool {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			s.Messages[i].Text = text
			s.Messages[i].Loading = false
			return true
		}
	}
	return false
}
