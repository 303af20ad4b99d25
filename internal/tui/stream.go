package tui

import (
	"lumina-cli/internal/api"

	tea "github.com/charmbracelet/bubbletea"
)

// ─── Messages sent from the stream goroutine to Bubble Tea ──────────────────

type sessionCreatedMsg struct {
	sessionID string
	err       error
}

type streamChunkMsg struct {
	event api.StreamEvent
}

type streamDoneMsg struct{}

type streamErrMsg struct {
	err error
}

// ─── Stream command ─────────────────────────────────────────────────────────
//
// The stream goroutine pushes every decoded event into one channel; the
// model's Update reads a single message per waitForStream and re-arms.
// That single ordered channel is what guarantees deltas reach the
// reconciler in stream order.

var activeStreamCh chan tea.Msg

// createSession registers a session for the first prompt of a new
// conversation, then hands control back so Update can begin the stream.
func createSession(client api.LuminaAPI, prompt string) tea.Cmd {
	return func() tea.Msg {
		id, err := client.CreateSession(prompt)
		return sessionCreatedMsg{sessionID: id, err: err}
	}
}

func beginStream(client api.LuminaAPI, req api.ChatRequest) tea.Cmd {
	ch := make(chan tea.Msg, 64)
	activeStreamCh = ch

	go func() {
		defer close(ch)

		err := client.SendMessageStream(req, func(ev api.StreamEvent) {
			ch <- streamChunkMsg{event: ev}
		})
		if err != nil {
			ch <- streamErrMsg{err: err}
		}
	}()

	return waitForStream(ch)
}

// waitForStream reads the next message from the channel.
func waitForStream(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return streamDoneMsg{}
		}
		return msg
	}
}

// drainStream consumes the rest of a cancelled stream's channel so the
// producer goroutine can finish and release the response body. The
// drained events belong to a turn nobody is watching anymore.
func drainStream(ch <-chan tea.Msg) {
	go func() {
		for range ch {
		}
	}()
}
