package service

import (
	"lumina-cli/internal/api"
	"lumina-cli/internal/chat"
)

// historyWindow caps how many prior turns accompany a prompt.
const historyWindow = 20

// ContextMessages builds the messages array for a chat request: the
// most recent turns followed by the new prompt. Stored raw content is
// sent as-is; the backend strips its own protocol blocks.
func ContextMessages(history []chat.Message, prompt string) []api.ChatMessage {
	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}

	out := make([]api.ChatMessage, 0, len(history)-start+1)
	for _, m := range history[start:] {
		if m.Content == "" {
			continue
		}
		out = append(out, api.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return append(out, api.ChatMessage{Role: chat.RoleUser, Content: prompt})
}
