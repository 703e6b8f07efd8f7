package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/julien-sobczak/anksidian/internal/anki"
	"github.com/julien-sobczak/anksidian/internal/markdown"
	"github.com/julien-sobczak/anksidian/pkg/text"
)

// CollectedFile contains the notes found in a file.
type CollectedFile struct {
	RelativePath string
	Source       string
	// Tags of the whole file, shared by all notes
	Tags  []string
	Notes []*PendingNote
	// Identifiers of notes that could not be rendered.
	// They are kept in files and must not be considered as deleted.
	Unrendered []anki.NoteID
	// Rendering failures
	Errors []error
}

// Collect walks the document to extract the notes, the tags, and the breadcrumbs.
func Collect(ctx context.Context, doc *markdown.Document, relativePath string, renderer *Renderer) *CollectedFile {
	result := &CollectedFile{
		RelativePath: relativePath,
		Source:       doc.Source,
	}

	var headings HeadingStack
	for _, element := range doc.Elements {
		switch e := element.(type) {
		case *markdown.Heading:
			headings.Apply(e.Level, renderer.RenderHeading(ctx, e))
		case *markdown.Tag:
			if !slices.Contains(result.Tags, e.Name) {
				result.Tags = append(result.Tags, e.Name)
			}
		case *markdown.ClozeLines:
			note, err := CollectClozeLines(ctx, e, len(doc.Source), renderer, headings, relativePath)
			if err != nil {
				CurrentLogger().Warnw("Note skipped",
					"file", relativePath,
					"offset", e.Start,
					"note", text.Excerpt(doc.Source[e.Start:e.End], 40),
					"err", err)
				result.Errors = append(result.Errors, fmt.Errorf("%s at byte %d: %w", relativePath, e.Start, err))
				if e.NoteID != nil {
					result.Unrendered = append(result.Unrendered, anki.NoteID(e.NoteID.ID()))
				}
				continue
			}
			result.Notes = append(result.Notes, note)
		}
		// Code, math, links, and characters outside cloze lines are ignored
	}
	return result
}
