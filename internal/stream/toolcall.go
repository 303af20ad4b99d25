package stream

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Tool-call step events are single-level objects, never nested.
var toolCallRe = regexp.MustCompile(`data:\s*\{[^{}]*"type"\s*:\s*"tool_call"[^{}]*\}`)

// ExtractToolCallSteps excises data:{"type":"tool_call",...} events
// from text and returns the parsed steps, de-duplicated by
// (timestamp, stage, tool).
func ExtractToolCallSteps(text string) (string, []ToolCallStep) {
	var steps []ToolCallStep
	seen := make(map[string]bool)

	clean := toolCallRe.ReplaceAllStringFunc(text, func(m string) string {
		objStart := strings.IndexByte(m, '{')
		var s ToolCallStep
		if err := json.Unmarshal([]byte(m[objStart:]), &s); err == nil {
			if !seen[s.Key()] {
				seen[s.Key()] = true
				steps = append(steps, s)
			}
		}
		// Excised even when the interior fails to parse.
		return ""
	})

	return clean, steps
}
