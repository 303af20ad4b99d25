package stream

import (
	"strings"
	"testing"
)

func TestExtractToolCallSteps(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		clean, steps := ExtractToolCallSteps("Hello " + toolCallChunk + "world")
		if clean != "Hello world" {
			t.Errorf("clean = %q, want %q", clean, "Hello world")
		}
		if len(steps) != 1 {
			t.Fatalf("got %d steps, want 1", len(steps))
		}
		if steps[0].Tool != "webSearch" || steps[0].Stage != "start" || steps[0].Message != "searching" {
			t.Errorf("step = %+v", steps[0])
		}
	})

	t.Run("duplicate triple collapses", func(t *testing.T) {
		clean, steps := ExtractToolCallSteps(toolCallChunk + " " + toolCallChunk)
		if len(steps) != 1 {
			t.Errorf("got %d steps, want 1 after de-duplication", len(steps))
		}
		if strings.Contains(clean, "tool_call") {
			t.Errorf("clean leaks protocol: %q", clean)
		}
	})

	t.Run("distinct stages kept", func(t *testing.T) {
		a := `data:{"type":"tool_call","stage":"start","tool":"calc","timestamp":5}`
		b := `data:{"type":"tool_call","stage":"end","tool":"calc","timestamp":5}`
		_, steps := ExtractToolCallSteps(a + b)
		if len(steps) != 2 {
			t.Errorf("got %d steps, want 2", len(steps))
		}
	})

	t.Run("no match leaves text alone", func(t *testing.T) {
		in := "nothing structured here"
		clean, steps := ExtractToolCallSteps(in)
		if clean != in || len(steps) != 0 {
			t.Errorf("clean = %q, steps = %v", clean, steps)
		}
	})
}

func TestExtractToolExecutions(t *testing.T) {
	block := `ToolExecution{request=ToolExecutionRequest{id="1",name="calc",arguments="2+2"} result=ToolExecutionResult{isError=false,result=4,resultText='4'}}`

	t.Run("full block", func(t *testing.T) {
		clean, execs := ExtractToolExecutions("before " + block + " after")
		if clean != "before  after" {
			t.Errorf("clean = %q", clean)
		}
		if len(execs) != 1 {
			t.Fatalf("got %d executions, want 1", len(execs))
		}
		te := execs[0]
		if te.ID != "1" || te.Name != "calc" || te.Arguments != "2+2" {
			t.Errorf("request = %+v", te)
		}
		if te.IsError || te.Result != "4" || te.ResultText != "4" {
			t.Errorf("result = %+v", te)
		}
	})

	t.Run("error result", func(t *testing.T) {
		in := `ToolExecution{result=ToolExecutionResult{isError=true,result=,resultText='boom'}}`
		_, execs := ExtractToolExecutions(in)
		if len(execs) != 1 || !execs[0].IsError || execs[0].ResultText != "boom" {
			t.Errorf("execs = %+v", execs)
		}
	})

	t.Run("malformed interior still excised", func(t *testing.T) {
		clean, execs := ExtractToolExecutions("a ToolExecution{garbage} b")
		if clean != "a  b" {
			t.Errorf("clean = %q, want block stripped", clean)
		}
		if len(execs) != 0 {
			t.Errorf("execs = %+v, want none", execs)
		}
	})

	t.Run("unbalanced block left in place", func(t *testing.T) {
		in := "a ToolExecution{never closes"
		clean, execs := ExtractToolExecutions(in)
		if clean != in || len(execs) != 0 {
			t.Errorf("clean = %q, execs = %v", clean, execs)
		}
	})
}

func TestExtractWebSearch(t *testing.T) {
	t.Run("parsed items", func(t *testing.T) {
		in := `x data:{"name":"webSearch","result":"[{\"title\":\"Go\",\"url\":\"https://go.dev\"}]"} y`
		clean, payloads := ExtractWebSearch(in)
		if clean != "x  y" {
			t.Errorf("clean = %q", clean)
		}
		if len(payloads) != 1 {
			t.Fatalf("got %d payloads, want 1", len(payloads))
		}
		items := payloads[0].Items
		if len(items) != 1 || items[0].URL != "https://go.dev" {
			t.Errorf("items = %+v", items)
		}
	})

	t.Run("nested parse failure still strips span", func(t *testing.T) {
		in := `x data:{"name":"webSearch","result":"not json"} y`
		clean, payloads := ExtractWebSearch(in)
		if clean != "x  y" {
			t.Errorf("clean = %q, want span stripped despite bad nested result", clean)
		}
		if len(payloads) != 1 || payloads[0].Items != nil {
			t.Errorf("payloads = %+v", payloads)
		}
	})

	t.Run("other data objects untouched", func(t *testing.T) {
		in := `x ` + toolCallChunk + ` y`
		clean, payloads := ExtractWebSearch(in)
		if clean != in {
			t.Errorf("clean = %q, tool_call span is not webSearch's to strip", clean)
		}
		if len(payloads) != 0 {
			t.Errorf("payloads = %+v", payloads)
		}
	})

	t.Run("unparseable object stripped silently", func(t *testing.T) {
		clean, payloads := ExtractWebSearch(`x data:{broken} y`)
		if clean != "x  y" || len(payloads) != 0 {
			t.Errorf("clean = %q, payloads = %v", clean, payloads)
		}
	})
}

func TestStripDataObjects(t *testing.T) {
	t.Run("unrecognized object excised", func(t *testing.T) {
		got := StripDataObjects(`Hello data:{"name":"other","value":1} world`)
		if got != "Hello  world" {
			t.Errorf("got %q, want object stripped", got)
		}
	})

	t.Run("nested braces excised whole", func(t *testing.T) {
		got := StripDataObjects(`a data:{"outer":{"inner":1}} b`)
		if got != "a  b" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("plain data prefix kept", func(t *testing.T) {
		in := "the data: looks fine"
		if got := StripDataObjects(in); got != in {
			t.Errorf("got %q, want text untouched", got)
		}
	})

	t.Run("unclosed span dropped to end", func(t *testing.T) {
		got := StripDataObjects(`before data:{"never":"closes`)
		if got != "before " {
			t.Errorf("got %q, want unclosed span dropped", got)
		}
	})

	t.Run("no marker unchanged", func(t *testing.T) {
		in := "nothing structured here"
		if got := StripDataObjects(in); got != in {
			t.Errorf("got %q", got)
		}
	})
}

func TestExtractThink(t *testing.T) {
	clean, think := ExtractThink("<think>reasoning</think>Actual answer")
	if clean != "Actual answer" {
		t.Errorf("clean = %q, want %q", clean, "Actual answer")
	}
	if think != "reasoning" {
		t.Errorf("think = %q, want %q", think, "reasoning")
	}

	clean, think = ExtractThink("no tags at all")
	if clean != "no tags at all" || think != "" {
		t.Errorf("clean = %q, think = %q", clean, think)
	}

	_, think = ExtractThink("<think>a</think>mid<think>b</think>")
	if think != "a\nb" {
		t.Errorf("think = %q, want joined blocks", think)
	}
}

func TestExtractImages(t *testing.T) {
	clean, urls := ExtractImages("pic: <images>http://a.png, http://b.png</images> done")
	if clean != "pic:  done" {
		t.Errorf("clean = %q", clean)
	}
	if len(urls) != 2 || urls[0] != "http://a.png" || urls[1] != "http://b.png" {
		t.Errorf("urls = %v", urls)
	}
}

func TestExtractFiles(t *testing.T) {
	t.Run("json form", func(t *testing.T) {
		in := `<files>[{"name":"report.pdf","url":"http://x/report.pdf","size":1024}]</files>`
		clean, files := ExtractFiles(in)
		if clean != "" {
			t.Errorf("clean = %q", clean)
		}
		if len(files) != 1 || files[0].Name != "report.pdf" || files[0].Size != 1024 {
			t.Errorf("files = %+v", files)
		}
	})

	t.Run("url list form", func(t *testing.T) {
		_, files := ExtractFiles("<files>http://x/a.txt, http://x/b.txt</files>")
		if len(files) != 2 || files[0].Name != "a.txt" || files[1].URL != "http://x/b.txt" {
			t.Errorf("files = %+v", files)
		}
	})
}

func TestExtractReferenceURLs(t *testing.T) {
	text := strings.Join([]string{
		"**[1]** Go homepage (https://go.dev)",
		"[2]: https://pkg.go.dev/strings",
		"3. https://go.dev/blog",
		"not a ref: https://example.com",
	}, "\n")

	refs := ExtractReferenceURLs(text)
	if len(refs) != 3 {
		t.Fatalf("got %d refs, want 3: %v", len(refs), refs)
	}
	if refs[1] != "https://go.dev" {
		t.Errorf("refs[1] = %q", refs[1])
	}
	if refs[2] != "https://pkg.go.dev/strings" {
		t.Errorf("refs[2] = %q", refs[2])
	}
	if refs[3] != "https://go.dev/blog" {
		t.Errorf("refs[3] = %q", refs[3])
	}
}
