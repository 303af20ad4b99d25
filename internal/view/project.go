// Package view turns raw message content into display-ready parts.
// Projection is pure: the same message always yields the same result,
// which is what makes the memo in this package safe.
package view

import (
	"strings"

	"lumina-cli/internal/chat"
	"lumina-cli/internal/stream"
)

// Projection is everything the renderer needs for one message.
type Projection struct {
	VisibleText   string
	ThinkText     string
	ImageURLs     []string
	ReferenceURLs map[int]string
	Files         []stream.ParsedFile
}

// Project derives the display form of a message from its raw content.
// Structured blocks are stripped in the same order the live scanner
// recognizes them, then any leftover data object is excised the way
// the scanner skips unrecognized blocks, so projecting finalized raw
// content agrees with what streaming showed.
func Project(msg chat.Message) Projection {
	text := msg.Content
	text, _ = stream.ExtractToolCallSteps(text)
	text, _ = stream.ExtractToolExecutions(text)
	text, _ = stream.ExtractWebSearch(text)
	text = stream.StripDataObjects(text)

	text, think := stream.ExtractThink(text)
	text, images := stream.ExtractImages(text)
	text, files := stream.ExtractFiles(text)

	refs := stream.ExtractReferenceURLs(text)

	if msg.Reasoning != "" {
		if think == "" {
			think = msg.Reasoning
		} else {
			think = msg.Reasoning + "\n" + think
		}
	}

	if len(msg.Files) > 0 {
		files = append(append([]stream.ParsedFile{}, msg.Files...), files...)
	}

	return Projection{
		VisibleText:   strings.TrimSpace(text),
		ThinkText:     strings.TrimSpace(think),
		ImageURLs:     images,
		ReferenceURLs: refs,
		Files:         files,
	}
}
