// Package chat holds the client-side conversation model: sessions,
// messages, and the reconciler that folds an incremental assistant
// stream into a message while routing embedded sub-protocol blocks to
// per-message side stores.
package chat

import (
	"strconv"
	"time"

	"lumina-cli/internal/stream"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Preview is the last-message summary shown on a session row.
type Preview struct {
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// Session is one conversation. Ordering is by most-recent activity:
// the last message time, falling back to creation time.
type Session struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CreateTime  time.Time `json:"create_time"`
	LastMessage *Preview  `json:"last_message,omitempty"`
}

// ActivityTime is the instant used to order sessions.
func (s Session) ActivityTime() time.Time {
	if s.LastMessage != nil && !s.LastMessage.Time.IsZero() {
		return s.LastMessage.Time
	}
	return s.CreateTime
}

// Message is one turn. A user message is created complete and never
// touched again; an assistant message is mutated in place by the
// Reconciler until its stream finalizes.
type Message struct {
	ID          string              `json:"id"`
	Role        string              `json:"role"`
	SessionID   string              `json:"session_id"`
	UserID      string              `json:"user_id"`
	Content     string              `json:"content"`
	Reasoning   string              `json:"reasoning,omitempty"`
	CreateTime  time.Time           `json:"create_time"`
	Files       []stream.ParsedFile `json:"files,omitempty"`
	ModelName   string              `json:"model_name,omitempty"`
	TotalTokens int                 `json:"total_tokens,omitempty"`
}

// AgentStep is one reported milestone of a backend agent workflow.
// Ephemeral: keyed by message id, never written to the message cache.
type AgentStep struct {
	Stage     string `json:"stage,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// NewTurnIDs returns locally generated ids for one user/assistant
// exchange. Identity is the creation timestamp in milliseconds, with
// the assistant id offset by 1 ms so the pair stays ordered and
// distinct. Server-assigned ids replace these only after persistence.
func NewTurnIDs(now time.Time) (userID, assistantID string) {
	ms := now.UnixMilli()
	return strconv.FormatInt(ms, 10), strconv.FormatInt(ms+1, 10)
}
