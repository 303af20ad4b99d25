package stream

import (
	"encoding/json"
	"strings"
)

// ExtractWebSearch excises data:{...} spans carrying a web-search
// payload (name == "webSearch"). A brace-balanced span whose JSON does
// not parse at all is excised without a record — leaking raw protocol
// syntax is worse than showing nothing. Spans that parse to some other
// object are left for their own extractor.
func ExtractWebSearch(text string) (string, []WebSearchPayload) {
	var out []WebSearchPayload
	var clean strings.Builder

	i := 0
	for i < len(text) {
		j := strings.Index(text[i:], dataMarker)
		if j < 0 {
			clean.WriteString(text[i:])
			break
		}
		p := i + j
		q := p + len(dataMarker)
		for q < len(text) && (text[q] == ' ' || text[q] == '\t') {
			q++
		}
		if q >= len(text) || text[q] != '{' {
			clean.WriteString(text[i:q])
			i = q
			continue
		}
		end := braceEnd(text, q)
		if end < 0 {
			clean.WriteString(text[i:])
			break
		}

		obj := text[q:end]
		var probe struct {
			Name   string `json:"name"`
			Result string `json:"result"`
		}
		if err := json.Unmarshal([]byte(obj), &probe); err != nil {
			clean.WriteString(text[i:p])
			i = end
			continue
		}
		if probe.Name != "webSearch" {
			clean.WriteString(text[i:end])
			i = end
			continue
		}

		clean.WriteString(text[i:p])
		out = append(out, WebSearchPayload{Raw: obj, Items: parseWebSearchItems(probe.Result)})
		i = end
	}

	return clean.String(), out
}

// StripDataObjects excises every remaining brace-balanced data:{...}
// span, whatever its interior. The live scanner skips unrecognized
// data objects instead of displaying them; this applies the same
// fallback to finalized or server-loaded content, after the dedicated
// extractors have taken their spans. An unclosed span is dropped to
// the end of the text, matching scanner finalization.
func StripDataObjects(text string) string {
	var clean strings.Builder

	i := 0
	for i < len(text) {
		j := strings.Index(text[i:], dataMarker)
		if j < 0 {
			clean.WriteString(text[i:])
			break
		}
		p := i + j
		q := p + len(dataMarker)
		for q < len(text) && (text[q] == ' ' || text[q] == '\t') {
			q++
		}
		if q >= len(text) || text[q] != '{' {
			clean.WriteString(text[i:q])
			i = q
			continue
		}
		end := braceEnd(text, q)
		if end < 0 {
			clean.WriteString(text[i:p])
			return clean.String()
		}
		clean.WriteString(text[i:p])
		i = end
	}

	return clean.String()
}

// parseWebSearchItems decodes the nested result string. The backend
// emits either a bare array or an object wrapping one; a result that
// parses as neither yields nil (the span is stripped regardless).
func parseWebSearchItems(result string) []WebSearchItem {
	if result == "" {
		return nil
	}
	var items []WebSearchItem
	if err := json.Unmarshal([]byte(result), &items); err == nil {
		return items
	}
	var wrapped struct {
		Results []WebSearchItem `json:"results"`
	}
	if err := json.Unmarshal([]byte(result), &wrapped); err == nil {
		return wrapped.Results
	}
	return nil
}
