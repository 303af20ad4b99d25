package stream

import (
	"strings"
	"testing"
)

const toolCallChunk = `data:{"type":"tool_call","stage":"start","message":"searching","tool":"webSearch","timestamp":1}`

// runAll feeds chunks through a fresh scanner and collects the full
// visible text and all events, including the finalize flush.
func runAll(chunks []string) (string, []Event) {
	sc := NewScanner()
	var visible strings.Builder
	var events []Event
	for _, c := range chunks {
		res := sc.Push(c)
		visible.WriteString(res.Visible)
		events = append(events, res.Events...)
	}
	res := sc.Finalize()
	visible.WriteString(res.Visible)
	events = append(events, res.Events...)
	return visible.String(), events
}

func TestScannerToolCallStep(t *testing.T) {
	visible, events := runAll([]string{"Hello ", toolCallChunk, "world"})

	if visible != "Hello world" {
		t.Errorf("visible = %q, want %q", visible, "Hello world")
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Kind != KindToolCall {
		t.Fatalf("event kind = %v, want KindToolCall", ev.Kind)
	}
	if ev.ToolCall.Tool != "webSearch" {
		t.Errorf("tool = %q, want %q", ev.ToolCall.Tool, "webSearch")
	}
	if ev.ToolCall.Stage != "start" || ev.ToolCall.Timestamp != 1 {
		t.Errorf("step = %+v, want stage=start timestamp=1", ev.ToolCall)
	}
}

func TestScannerChunkSplitInvariance(t *testing.T) {
	fixtures := []struct {
		name string
		text string
	}{
		{"tool call mid-text", "Hello " + toolCallChunk + "world"},
		{
			"tool execution",
			`before ToolExecution{request=ToolExecutionRequest{id="1",name="calc",arguments="2+2"} result=ToolExecutionResult{isError=false,result=4,resultText='4'}} after`,
		},
		{
			"web search",
			`see data:{"name":"webSearch","result":"[{\"title\":\"t\",\"url\":\"http://a\"}]"} done`,
		},
		{"plain text with colon", "the data: 42 is plain"},
		{"trailing word data", "collected some data"},
		{"two blocks", toolCallChunk + " and " + toolCallChunk},
	}

	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			wantVisible, wantEvents := runAll([]string{fx.text})

			for cut := 1; cut < len(fx.text); cut++ {
				visible, events := runAll([]string{fx.text[:cut], fx.text[cut:]})
				if visible != wantVisible {
					t.Fatalf("split at %d: visible = %q, want %q", cut, visible, wantVisible)
				}
				if len(events) != len(wantEvents) {
					t.Fatalf("split at %d: %d events, want %d", cut, len(events), len(wantEvents))
				}
				for i := range events {
					if events[i].Kind != wantEvents[i].Kind || events[i].Raw != wantEvents[i].Raw {
						t.Fatalf("split at %d: event %d = %+v, want %+v", cut, i, events[i], wantEvents[i])
					}
				}
			}
		})
	}
}

func TestScannerWithholdsPartialBlock(t *testing.T) {
	sc := NewScanner()

	res := sc.Push(`Hello data:{"type":"tool_ca`)
	if res.Visible != "Hello " {
		t.Errorf("visible = %q, want %q (partial block must be withheld)", res.Visible, "Hello ")
	}
	if len(res.Events) != 0 {
		t.Errorf("got %d events before block closed", len(res.Events))
	}

	res = sc.Push(`ll","stage":"end","tool":"calc","timestamp":2}done`)
	if res.Visible != "done" {
		t.Errorf("visible = %q, want %q", res.Visible, "done")
	}
	if len(res.Events) != 1 || res.Events[0].Kind != KindToolCall {
		t.Fatalf("events = %+v, want one tool call", res.Events)
	}
}

func TestScannerUnclosedBlockDroppedOnFinalize(t *testing.T) {
	sc := NewScanner()
	sc.Push("text ")
	sc.Push(`ToolExecution{request=ToolExecutionRequest{id="9"`)

	res := sc.Finalize()
	if res.Visible != "" {
		t.Errorf("finalize visible = %q, want empty (unclosed block never shown)", res.Visible)
	}
	if len(res.Events) != 1 || res.Events[0].Kind != KindSkipped {
		t.Fatalf("events = %+v, want one skipped", res.Events)
	}
}

func TestScannerPotentialMarkerFlushedOnFinalize(t *testing.T) {
	sc := NewScanner()
	res := sc.Push("the raw data")
	// "data" could still become "data:{...}", so it is withheld.
	if res.Visible != "the raw " {
		t.Errorf("visible = %q, want %q", res.Visible, "the raw ")
	}
	res = sc.Finalize()
	if res.Visible != "data" {
		t.Errorf("finalize visible = %q, want %q", res.Visible, "data")
	}
}

func TestScannerNoLeakage(t *testing.T) {
	text := "a " + toolCallChunk +
		` b ToolExecution{request=ToolExecutionRequest{id="1",name="n",arguments=""}} c ` +
		`data:{"name":"webSearch","result":"not-json"} d ` +
		`data:{"malformed} e`

	// The malformed block above is brace-balanced garbage; the scanner
	// must still excise it.
	visible, _ := runAll([]string{text})
	for _, needle := range []string{"ToolExecution{", `data:{"`, `"type":"tool_call"`} {
		if strings.Contains(visible, needle) {
			t.Errorf("visible %q leaks %q", visible, needle)
		}
	}
}

func TestScannerSkippedMalformedData(t *testing.T) {
	_, events := runAll([]string{`x data:{"not closed quote} y`})
	if len(events) != 1 || events[0].Kind != KindSkipped {
		t.Fatalf("events = %+v, want one skipped", events)
	}
}

func TestScannerRawKeepsEverything(t *testing.T) {
	sc := NewScanner()
	sc.Push("Hello ")
	sc.Push(toolCallChunk)
	sc.Finalize()
	want := "Hello " + toolCallChunk
	if sc.Raw() != want {
		t.Errorf("Raw() = %q, want %q", sc.Raw(), want)
	}
}

func TestBraceEnd(t *testing.T) {
	tests := []struct {
		name string
		text string
		open int
		want int
	}{
		{"flat object", `{"a":1}`, 0, 7},
		{"nested", `{a{b{c}}}`, 0, 9},
		{"unclosed", `{a{b}`, 0, -1},
		{"offset", `xx{}`, 2, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := braceEnd(tt.text, tt.open); got != tt.want {
				t.Errorf("braceEnd(%q, %d) = %d, want %d", tt.text, tt.open, got, tt.want)
			}
		})
	}
}
