package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"lumina-cli/internal/chat"
)

// ChatMessage is one turn of context sent with a prompt.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries one streamed completion request.
type ChatRequest struct {
	Messages        []ChatMessage   `json:"messages"`
	SessionID       string          `json:"sessionId"`
	UserID          string          `json:"userId"`
	Stream          bool            `json:"stream"`
	Model           string          `json:"model,omitempty"`
	KnowledgeBaseID string          `json:"knowledgeBaseId,omitempty"`
	MCPConfig       json.RawMessage `json:"mcpConfig,omitempty"`
	DeepResearch    bool            `json:"deepResearch,omitempty"`
	AgentID         string          `json:"agentId,omitempty"`
	InternetSearch  bool            `json:"internetSearch,omitempty"`
}

// StreamEventKind tags one decoded stream line.
type StreamEventKind int

const (
	EventContentDelta StreamEventKind = iota
	EventReasoningDelta
	EventAgentStep
	EventUnknown
)

// StreamEvent is the decoded form of one line of the response stream.
// Exactly one payload field is meaningful per kind.
type StreamEvent struct {
	Kind      StreamEventKind
	Delta     string
	AgentStep chat.AgentStep
	Raw       string
}

// StreamCallback receives decoded events in stream order.
type StreamCallback func(ev StreamEvent)

// SendMessageStream posts a chat request and decodes the line-delimited
// response stream, invoking cb for each event. A transport error mid
// stream returns after whatever events already fired; the caller keeps
// the partial content.
func (c *Client) SendMessageStream(req ChatRequest, cb StreamCallback) error {
	req.UserID = c.userID
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequest("POST", c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(errBody))
	}

	scanner := bufio.NewScanner(resp.Body)
	// Single deltas can carry whole tool-execution blocks.
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		for _, ev := range decodeStreamLine(line) {
			cb(ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

// completionLine covers both wire shapes the backend emits: an
// OpenAI-style choices/delta object and a flat agent_step object.
type completionLine struct {
	Type      string `json:"type"`
	Stage     string `json:"stage"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Choices   []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
	} `json:"choices"`
}

// decodeStreamLine classifies one response line. A choices entry can
// carry content and reasoning in the same delta, so one line may yield
// more than one event.
func decodeStreamLine(line string) []StreamEvent {
	payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if payload == "" || payload == "[DONE]" {
		return nil
	}

	var cl completionLine
	if err := json.Unmarshal([]byte(payload), &cl); err != nil {
		// gRPC-gateway style result envelope.
		var envelope struct {
			Result json.RawMessage `json:"result"`
		}
		if err2 := json.Unmarshal([]byte(payload), &envelope); err2 == nil && envelope.Result != nil {
			return decodeStreamLine(string(envelope.Result))
		}
		return []StreamEvent{{Kind: EventUnknown, Raw: line}}
	}

	if cl.Type == "agent_step" {
		return []StreamEvent{{
			Kind: EventAgentStep,
			AgentStep: chat.AgentStep{
				Stage:     cl.Stage,
				Status:    cl.Status,
				Message:   cl.Message,
				Timestamp: cl.Timestamp,
			},
			Raw: line,
		}}
	}

	var events []StreamEvent
	for _, choice := range cl.Choices {
		if choice.Delta.ReasoningContent != "" {
			events = append(events, StreamEvent{
				Kind:  EventReasoningDelta,
				Delta: choice.Delta.ReasoningContent,
				Raw:   line,
			})
		}
		if choice.Delta.Content != "" {
			events = append(events, StreamEvent{
				Kind:  EventContentDelta,
				Delta: choice.Delta.Content,
				Raw:   line,
			})
		}
	}
	if events == nil {
		return []StreamEvent{{Kind: EventUnknown, Raw: line}}
	}
	return events
}
