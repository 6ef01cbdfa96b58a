package types

import "time"

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a conversation message. Messages are value types and
// are treated as immutable once appended to a session history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content,omitempty"`
	Name      string    `json:"name,omitempty"` // authoring agent, e.g. "supervisor"
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NewMessage creates a new message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// WithName marks the message with the authoring agent identifier.
func (m Message) WithName(name string) Message {
	m.Name = name
	return m
}

// AppendMessages concatenates two message sequences into a fresh slice.
// This is the only reducer applied to session history: new messages are
// appended to the end, never reordered or deleted.
func AppendMessages(current, update []Message) []Message {
	result := make([]Message, 0, len(current)+len(update))
	result = append(result, current...)
	result = append(result, update...)
	return result
}
