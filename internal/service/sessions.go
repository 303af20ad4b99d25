// Package service holds the pure transforms between the API layer and
// the TUI: session ordering, preview shaping, stale-selection checks,
// and MCP config assembly. Everything here is side-effect free and
// directly testable.
package service

import (
	"sort"
	"strings"
	"time"

	"lumina-cli/internal/chat"
)

// SessionDisplay holds display-ready session info.
type SessionDisplay struct {
	ID      string
	Title   string
	When    string
	Preview string
}

// OrderSessions sorts by most-recent activity, newest first. The sort
// is stable so backend order breaks ties.
func OrderSessions(sessions []chat.Session) []chat.Session {
	out := make([]chat.Session, len(sessions))
	copy(out, sessions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ActivityTime().After(out[j].ActivityTime())
	})
	return out
}

// TruncatePreview shortens s to at most max runes, appending an
// ellipsis when it cut anything. Newlines collapse to spaces first.
func TruncatePreview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

// FormatSessionRow maps a session to a display-ready struct.
func FormatSessionRow(s chat.Session) SessionDisplay {
	title := s.Title
	if title == "" {
		title = "(untitled)"
	}

	var preview string
	if s.LastMessage != nil {
		preview = TruncatePreview(s.LastMessage.Content, 60)
	}

	return SessionDisplay{
		ID:      s.ID,
		Title:   TruncatePreview(title, 48),
		When:    s.ActivityTime().Format(time.DateTime),
		Preview: preview,
	}
}

// UpdatePreview refreshes a session's last-message preview in place
// within the list and returns the reordered result.
func UpdatePreview(sessions []chat.Session, sessionID, content string, at time.Time) []chat.Session {
	for i := range sessions {
		if sessions[i].ID == sessionID {
			sessions[i].LastMessage = &chat.Preview{Content: content, Time: at}
			break
		}
	}
	return OrderSessions(sessions)
}
