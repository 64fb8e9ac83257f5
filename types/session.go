package types

import "time"

// Session as returned by the sessions endpoints (backed by the session_stats view)
type Session struct {
	ID                 string     `json:"id,omitempty" yaml:"id,omitempty"` // <-- omitempty is critical
	UserID             string     `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Title              string     `json:"title" yaml:"title"`
	Description        *string    `json:"description,omitempty" yaml:"description,omitempty"`
	IsActive           bool       `json:"is_active" yaml:"is_active"`
	CreatedAt          *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty" yaml:"last_message_at,omitempty"`
	MessageCount       int        `json:"message_count" yaml:"message_count"`
	LastMessagePreview string     `json:"last_message_preview,omitempty" yaml:"last_message_preview,omitempty"`
}

// CreateSessionRequest is the body of POST /sessions
type CreateSessionRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// SessionPatch is the body of PATCH /sessions/{id}. Nil fields are left untouched.
type SessionPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SessionPatch) Empty() bool {
	return p.Title == nil && p.Description == nil
}

type GetSessionsResponse struct {
	Success  bool      `json:"success"`
	Sessions []Session `json:"sessions"`
}

type SessionResponse struct {
	Success bool    `json:"success"`
	Session Session `json:"session"`
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
