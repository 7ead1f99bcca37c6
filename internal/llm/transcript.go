package llm

import (
	"fmt"
)

// Role tags a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is a phase-owned conversation. The first message is always the
// phase's system prompt; user and assistant messages strictly alternate
// after it, starting with the user.
type Transcript struct {
	system   string
	messages []Message
}

// NewTranscript starts a transcript with the given system prompt.
func NewTranscript(systemPrompt string) *Transcript {
	return &Transcript{system: systemPrompt}
}

// System returns the transcript's system prompt.
func (t *Transcript) System() string {
	return t.system
}

// Turns returns the user/assistant messages that follow the system prompt.
func (t *Transcript) Turns() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Messages returns the full transcript including the system message.
func (t *Transcript) Messages() []Message {
	out := make([]Message, 0, len(t.messages)+1)
	out = append(out, Message{Role: RoleSystem, Content: t.system})
	return append(out, t.messages...)
}

// Len returns the number of messages including the system prompt.
func (t *Transcript) Len() int {
	return len(t.messages) + 1
}

// AppendUser adds a user message. It fails if the last message was also
// from the user.
func (t *Transcript) AppendUser(content string) error {
	return t.append(RoleUser, content)
}

// AppendAssistant adds an assistant message. It fails unless the last
// message was from the user.
func (t *Transcript) AppendAssistant(content string) error {
	return t.append(RoleAssistant, content)
}

// Expecting returns the role that must come next.
func (t *Transcript) Expecting() Role {
	if len(t.messages) == 0 || t.messages[len(t.messages)-1].Role == RoleAssistant {
		return RoleUser
	}
	return RoleAssistant
}

func (t *Transcript) append(role Role, content string) error {
	if want := t.Expecting(); role != want {
		return fmt.Errorf("transcript out of turn: got %s message, expecting %s", role, want)
	}
	t.messages = append(t.messages, Message{Role: role, Content: content})
	return nil
}
