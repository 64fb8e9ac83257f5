package types

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is the client-side shape of a chat message. ID is a local display key only.
type Message struct {
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// RemoteMessage is a record from GET /sessions/{id}/messages
type RemoteMessage struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type GetMessagesResponse struct {
	Success  bool            `json:"success"`
	Messages []RemoteMessage `json:"messages"`
}

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	Success   bool   `json:"success"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
}
