package stream

import (
	"encoding/json"
	"strings"
)

const toolExecMarker = "ToolExecution{"
const dataMarker = "data:"

// braceEnd returns the index just past the brace-balanced object
// opening at text[open] (which must be '{'), or -1 if the buffer ends
// before the object closes.
func braceEnd(text string, open int) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// Result is the outcome of feeding one chunk to the Scanner: the text
// that became safe to display, plus any structured blocks completed by
// that chunk.
type Result struct {
	Visible string
	Events  []Event
}

// Scanner consumes the incremental stream and splits it into visible
// text and embedded structured blocks. It keeps a cursor into the
// cumulative buffer so each byte is classified exactly once; a
// recognized marker whose brace span has not closed yet withholds the
// entire trailing region until a later chunk completes it. A partially
// streamed structured block is never part of Visible.
type Scanner struct {
	buf    Buffer
	cursor int
}

func NewScanner() *Scanner {
	return &Scanner{}
}

// Raw returns the full accumulated text, including regions excised
// from display. This is the authoritative content at finalization.
func (s *Scanner) Raw() string {
	return s.buf.String()
}

// Push appends one chunk and returns the newly display-safe delta.
func (s *Scanner) Push(chunk string) Result {
	s.buf.Append(chunk)
	return s.scan(false)
}

// Finalize flushes withheld text after the stream completes. A tail
// that was only a potential marker prefix becomes visible; a
// recognized block that never closed is dropped and reported as
// skipped.
func (s *Scanner) Finalize() Result {
	return s.scan(true)
}

func (s *Scanner) scan(final bool) Result {
	var res Result
	var visible strings.Builder
	text := s.buf.String()

	for s.cursor < len(text) {
		p, open, confirmed := nextMarker(text, s.cursor)
		if p < 0 {
			hold := s.cursor + holdStart(text[s.cursor:])
			if final {
				hold = len(text)
			}
			visible.WriteString(text[s.cursor:hold])
			s.cursor = hold
			break
		}

		visible.WriteString(text[s.cursor:p])
		s.cursor = p

		if !confirmed {
			// "data:" with no '{' yet; may still become a block.
			if final {
				visible.WriteString(text[p:])
				s.cursor = len(text)
			}
			break
		}

		end := braceEnd(text, open)
		if end < 0 {
			if final {
				res.Events = append(res.Events, Event{Kind: KindSkipped, Raw: text[p:]})
				s.cursor = len(text)
			}
			break
		}

		res.Events = append(res.Events, classify(text[p:end], text[open:end]))
		s.cursor = end
	}

	res.Visible = visible.String()
	return res
}

// nextMarker locates the earliest structured-block marker at or after
// from. open is the index of the object's '{'; confirmed is false when
// the buffer ends in "data:" plus whitespace and the brace has not
// arrived.
func nextMarker(text string, from int) (p, open int, confirmed bool) {
	p = -1
	if i := strings.Index(text[from:], toolExecMarker); i >= 0 {
		p = from + i
		open = p + len(toolExecMarker) - 1
		confirmed = true
	}

	j := from
	for {
		k := strings.Index(text[j:], dataMarker)
		if k < 0 {
			break
		}
		start := j + k
		if p >= 0 && start > p {
			break
		}
		q := start + len(dataMarker)
		for q < len(text) && (text[q] == ' ' || text[q] == '\t') {
			q++
		}
		if q == len(text) {
			return start, -1, false
		}
		if text[q] == '{' {
			return start, q, true
		}
		// "data:" followed by ordinary text; keep looking.
		j = start + len(dataMarker)
	}

	return p, open, confirmed
}

// holdStart returns the offset within s of a trailing region that is a
// proper prefix of a marker and must be withheld until the next chunk
// resolves it, or len(s) when the whole tail is safe.
func holdStart(s string) int {
	n := len(s)
	for k := len(dataMarker) - 1; k >= 1; k-- {
		if n >= k && s[n-k:] == dataMarker[:k] {
			return n - k
		}
	}
	for k := len(toolExecMarker) - 1; k >= 1; k-- {
		if n >= k && s[n-k:] == toolExecMarker[:k] {
			return n - k
		}
	}
	return n
}

// classify parses a completed block. span is the full matched region
// including the marker; obj is the brace-balanced object. A block that
// resists parsing is excised anyway and surfaces as KindSkipped.
func classify(span, obj string) Event {
	if strings.HasPrefix(span, "ToolExecution") {
		if te, ok := parseToolExecution(obj); ok {
			return Event{Kind: KindToolExecution, ToolExec: te, Raw: span}
		}
		return Event{Kind: KindSkipped, Raw: span}
	}

	var probe struct {
		Type      string `json:"type"`
		Name      string `json:"name"`
		Stage     string `json:"stage"`
		Message   string `json:"message"`
		Tool      string `json:"tool"`
		Timestamp int64  `json:"timestamp"`
		Result    string `json:"result"`
	}
	if err := json.Unmarshal([]byte(obj), &probe); err == nil {
		switch {
		case probe.Type == "tool_call":
			return Event{
				Kind: KindToolCall,
				ToolCall: &ToolCallStep{
					Stage:     probe.Stage,
					Type:      probe.Type,
					Message:   probe.Message,
					Tool:      probe.Tool,
					Timestamp: probe.Timestamp,
				},
				Raw: span,
			}
		case probe.Name == "webSearch":
			return Event{
				Kind:      KindWebSearch,
				WebSearch: &WebSearchPayload{Raw: obj, Items: parseWebSearchItems(probe.Result)},
				Raw:       span,
			}
		}
	}
	return Event{Kind: KindSkipped, Raw: span}
}
