// Package stream implements the ingestion side of the chat pipeline:
// a cumulative token buffer, an incremental scanner that withholds
// partially-streamed structured blocks from display, and the pure
// extractors for the sub-protocols the backend embeds in assistant
// text (tool-call step events, tool-execution blocks, web-search
// payloads, tag blocks, reference-citation maps).
package stream

import "fmt"

// ToolCallStep is one reported tool-invocation lifecycle event,
// carried inline as data:{"type":"tool_call",...}.
type ToolCallStep struct {
	Stage     string `json:"stage"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Tool      string `json:"tool"`
	Timestamp int64  `json:"timestamp"`
}

// Key identifies a step for de-duplication. Two events with the same
// (timestamp, stage, tool) triple collapse into one; the backend is
// trusted not to emit distinct events under the same triple.
func (s ToolCallStep) Key() string {
	return fmt.Sprintf("%d|%s|%s", s.Timestamp, s.Stage, s.Tool)
}

// ToolExecution is a parsed ToolExecution{...} serialization.
type ToolExecution struct {
	ID         string
	Name       string
	Arguments  string
	IsError    bool
	Result     string
	ResultText string
}

// WebSearchItem is one entry of a web-search result payload.
type WebSearchItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// WebSearchPayload is a data:{...} object whose name is "webSearch".
// Raw keeps the matched JSON object; Items holds the nested result
// when it parses (nil when it does not — the span is excised either
// way).
type WebSearchPayload struct {
	Raw   string
	Items []WebSearchItem
}

// ParsedFile is a file reference derived from a <files> tag block.
type ParsedFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size,omitempty"`
}

// EventKind tags scanner events.
type EventKind int

const (
	KindToolCall EventKind = iota
	KindToolExecution
	KindWebSearch
	// KindSkipped marks a structurally recognized block whose interior
	// failed to parse. The span is excised from visible text; the raw
	// span is kept so the caller can log it.
	KindSkipped
)

// Event is one structured block extracted by the Scanner.
type Event struct {
	Kind      EventKind
	ToolCall  *ToolCallStep
	ToolExec  *ToolExecution
	WebSearch *WebSearchPayload
	Raw       string
}
