// Package session holds per-user conversation state for the chat assistant.
// Sessions live in memory only; a restart drops all of them, which is fine
// because chat history is best-effort and the browser keeps its own copy.
package session

import "time"

const (
	// RoleUser marks a message sent by the visitor.
	RoleUser = "user"
	// RoleAssistant marks a message produced by the assistant.
	RoleAssistant = "assistant"

	// MaxHistoryLength caps the number of retained messages per session.
	// Oldest entries are dropped first.
	MaxHistoryLength = 20

	// Timeout is the inactivity window after which a session is evicted.
	Timeout = time.Hour
)

// Message is one turn of a conversation. Immutable once appended.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// UserMessage builds a user message stamped with the current time.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now().UnixMilli()}
}

// AssistantMessage builds an assistant message stamped with the current time.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now().UnixMilli()}
}

// Session is the conversation state for one user identifier.
// It is owned exclusively by the Store; callers get copies of Messages.
type Session struct {
	UserID       string
	Messages     []Message
	LastActivity time.Time
}

// Stats is a read-only aggregate over the store, for observability.
type Stats struct {
	ActiveSessions int `json:"activeSessions"`
	TotalMessages  int `json:"totalMessages"`
}
