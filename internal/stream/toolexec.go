package stream

import "strings"

// ExtractToolExecutions excises every balanced ToolExecution{...}
// block from text. Blocks are removed whether or not their interior
// parses; only blocks yielding at least a request or result record are
// returned. An unbalanced trailing block is left in place (it is not a
// complete serialization yet).
func ExtractToolExecutions(text string) (string, []ToolExecution) {
	var out []ToolExecution
	var clean strings.Builder

	i := 0
	for i < len(text) {
		j := strings.Index(text[i:], toolExecMarker)
		if j < 0 {
			clean.WriteString(text[i:])
			break
		}
		p := i + j
		open := p + len(toolExecMarker) - 1
		end := braceEnd(text, open)
		if end < 0 {
			clean.WriteString(text[i:])
			break
		}
		clean.WriteString(text[i:p])
		if te, ok := parseToolExecution(text[open:end]); ok {
			out = append(out, *te)
		}
		i = end
	}

	return clean.String(), out
}

// parseToolExecution decodes the java-toString-style serialization
// inside a ToolExecution block:
//
//	{request=ToolExecutionRequest{id="1",name="calc",arguments="2+2"}
//	 result=ToolExecutionResult{isError=false,result=4,resultText='4'}}
func parseToolExecution(body string) (*ToolExecution, bool) {
	inner := body
	if strings.HasPrefix(inner, "{") && strings.HasSuffix(inner, "}") {
		inner = inner[1 : len(inner)-1]
	}

	te := &ToolExecution{}
	found := false

	if f, ok := subBlock(inner, "ToolExecutionRequest{"); ok {
		m := parseFields(f)
		te.ID = m["id"]
		te.Name = m["name"]
		te.Arguments = m["arguments"]
		found = true
	}
	if f, ok := subBlock(inner, "ToolExecutionResult{"); ok {
		m := parseFields(f)
		te.IsError = m["isError"] == "true"
		te.Result = m["result"]
		te.ResultText = m["resultText"]
		found = true
	}

	return te, found
}

// subBlock returns the interior of the first marker{...} occurrence.
func subBlock(s, marker string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	open := i + len(marker) - 1
	end := braceEnd(s, open)
	if end < 0 {
		return "", false
	}
	return s[open+1 : end-1], true
}

// parseFields splits comma-separated key=value pairs, honoring single
// and double quotes and nested braces.
func parseFields(s string) map[string]string {
	fields := make(map[string]string)

	flush := func(part string) {
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			return
		}
		key := strings.TrimSpace(part[:eq])
		val := trimQuotes(strings.TrimSpace(part[eq+1:]))
		if key != "" {
			fields[key] = val
		}
	}

	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			depth--
		case c == ',' && depth == 0:
			flush(s[start:i])
			start = i + 1
		}
	}
	flush(s[start:])

	return fields
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
