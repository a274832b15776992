package models

import "encoding/json"

// ChatSession is one entry of GET /chat/sessions.
type ChatSession struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ChatSessions is the body of GET /chat/sessions.
type ChatSessions struct {
	Success  bool          `json:"success"`
	Sessions []ChatSession `json:"sessions"`
	Total    int           `json:"total"`
}

// CreatedChat is the outcome of POST /chat/create. Raw keeps the full body,
// whose remaining fields are owned by the code-generation backend.
type CreatedChat struct {
	ChatID string
	Raw    json.RawMessage
}

// ChatStatus is the subset of GET /chat/:id/status the client interprets.
type ChatStatus struct {
	Success bool            `json:"success"`
	Status  string          `json:"status"`
	Raw     json.RawMessage `json:"-"`
}

// Terminal reports whether the generation run has stopped changing.
func (s *ChatStatus) Terminal() bool {
	switch s.Status {
	case "completed", "complete", "done", "failed", "error":
		return true
	default:
		return false
	}
}
