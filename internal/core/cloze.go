package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/julien-sobczak/anksidian/internal/anki"
	"github.com/julien-sobczak/anksidian/internal/markdown"
)

// LineBreak separates lines inside a note and the note from its breadcrumb.
const LineBreak = "<br>"

// PendingNote is a note extracted from a file, not yet reconciled with Anki.
type PendingNote struct {
	// Text field of the note including the breadcrumb
	Contents string
	// ID found in the comment following the cloze lines
	PriorID *anki.NoteID
	// Offset in the source where the identifier comment must be inserted
	SourceOffset int
	Pictures     []anki.Picture
}

// CollectClozeLines converts a cloze-line block to a note.
// Cloze numbering restarts at 1 for every block.
func CollectClozeLines(
	ctx context.Context,
	block *markdown.ClozeLines,
	sourceLength int,
	renderer *Renderer,
	headings HeadingStack,
	relativePath string) (*PendingNote, error) {

	note := &PendingNote{
		SourceOffset: sourceLength - block.Remaining,
	}
	var sb strings.Builder
	var previous string

	render := func(element markdown.Element) error {
		// Newlines are only found inside clozes and must be kept visible
		if char, ok := element.(markdown.Char); ok && (char == "\n" || char == "\r") {
			if !(char == "\n" && previous == "\r") {
				sb.WriteString(LineBreak)
			}
			previous = string(char)
			return nil
		}
		previous = ""
		result, err := renderer.Render(ctx, element, &note.Pictures)
		if err != nil {
			return err
		}
		sb.WriteString(result)
		return nil
	}

	for _, element := range block.Prefix {
		if err := render(element); err != nil {
			return nil, err
		}
	}

	counter := 0
	for _, inline := range block.Body {
		switch e := inline.(type) {
		case *markdown.Cloze:
			counter++
			fmt.Fprintf(&sb, "{{c%d::", counter)
			for _, element := range e.Elements {
				if err := render(element); err != nil {
					return nil, err
				}
			}
			sb.WriteString("}}")
			previous = ""
		case markdown.Element:
			if err := render(e); err != nil {
				return nil, err
			}
		}
	}

	if block.NoteID != nil {
		id := anki.NoteID(block.NoteID.ID())
		note.PriorID = &id
	}

	sb.WriteString(LineBreak)
	sb.WriteString(Breadcrumb(relativePath, headings))
	note.Contents = sb.String()
	return note, nil
}
