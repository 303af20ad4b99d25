package stream

import "strings"

// Buffer accumulates raw incremental chunks from the transport. It
// does no parsing of its own; the Scanner decides which regions of
// the accumulated text are safe to display.
type Buffer struct {
	b strings.Builder
}

// Append adds one chunk.
func (b *Buffer) Append(chunk string) {
	b.b.WriteString(chunk)
}

// String returns the full accumulated text.
func (b *Buffer) String() string {
	return b.b.String()
}

// Len returns the accumulated length in bytes.
func (b *Buffer) Len() int {
	return b.b.Len()
}
