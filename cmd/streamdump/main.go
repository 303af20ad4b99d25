// streamdump replays a captured assistant stream through the scanner
// pipeline. Feed it a raw dump (file argument or stdin) and it prints
// the reconciled visible text, every extracted block, and the final
// projection. Useful when a backend emits a block shape the scanner
// mishandles: capture the body, replay, inspect.
//
//	streamdump [-chunk n] [dump.txt]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"lumina-cli/internal/chat"
	"lumina-cli/internal/logging"
	"lumina-cli/internal/view"
)

func main() {
	chunkSize := flag.Int("chunk", 16, "bytes per simulated stream chunk")
	flag.Parse()

	var data []byte
	var err error
	if flag.NArg() > 0 {
		data, err = os.ReadFile(flag.Arg(0))
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamdump: %v\n", err)
		os.Exit(1)
	}

	msg := &chat.Message{
		ID:         "dump",
		Role:       chat.RoleAssistant,
		CreateTime: time.Now(),
	}
	rec := chat.NewReconciler(msg, logging.Nop())

	body := string(data)
	for i := 0; i < len(body); i += *chunkSize {
		end := i + *chunkSize
		if end > len(body) {
			end = len(body)
		}
		rec.ApplyContent(body[i:end])
	}
	rec.Finalize()

	fmt.Println("── tool call steps ──")
	for _, s := range rec.ToolCallSteps() {
		fmt.Printf("  %s %s (%s) t=%d\n", s.Tool, s.Stage, s.Message, s.Timestamp)
	}

	fmt.Println("── tool executions ──")
	for _, e := range rec.ToolExecutions() {
		fmt.Printf("  %s args=%s err=%v\n", e.Name, e.Arguments, e.IsError)
	}

	fmt.Println("── web searches ──")
	for _, w := range rec.WebSearches() {
		fmt.Printf("  %d items\n", len(w.Items))
	}

	proj := view.Project(*msg)

	if proj.ThinkText != "" {
		fmt.Println("── think ──")
		fmt.Println(proj.ThinkText)
	}
	if len(proj.ReferenceURLs) > 0 {
		fmt.Println("── references ──")
		for n, url := range proj.ReferenceURLs {
			fmt.Printf("  [%d] %s\n", n, url)
		}
	}
	for _, url := range proj.ImageURLs {
		fmt.Printf("── image ── %s\n", url)
	}
	for _, f := range proj.Files {
		fmt.Printf("── file ── %s %s\n", f.Name, f.URL)
	}

	fmt.Println("── visible ──")
	fmt.Println(proj.VisibleText)
}
