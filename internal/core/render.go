package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julien-sobczak/anksidian/internal/anki"
	"github.com/julien-sobczak/anksidian/internal/markdown"
	"github.com/julien-sobczak/anksidian/internal/medias"
)

// MathConverter converts formulas to the LaTeX syntax understood by Anki.
type MathConverter interface {
	Convert(ctx context.Context, raw string, display bool) (string, error)
}

// Renderer converts inline elements to the text of a note.
type Renderer struct {
	// Absolute path of the vault
	RootDirectory string
	// Absolute path of the directory containing the note
	NoteDirectory string

	Maths  MathConverter
	Images medias.Converter
	// Directory where converted pictures are written
	TempDir string
}

// Render returns the text of an element. Embedded pictures are appended to pictures and rendered as "".
// Only formulas can fail.
func (r *Renderer) Render(ctx context.Context, element markdown.Element, pictures *[]anki.Picture) (string, error) {
	switch e := element.(type) {
	case markdown.Char:
		return string(e), nil
	case *markdown.Code:
		return e.Source(), nil
	case *markdown.Math:
		return r.Maths.Convert(ctx, e.Raw, e.Display)
	case *markdown.Link:
		if e.Embed {
			if picture, ok := r.picture(e.Target); ok {
				*pictures = append(*pictures, picture)
				return "", nil
			}
		}
		return e.Text(), nil
	}
	return "", fmt.Errorf("unsupported element %T", element)
}

// RenderHeading returns the text of a heading as displayed in breadcrumbs.
// Pictures are discarded. A formula that cannot be converted is kept as written.
// Spaces are preserved so that breadcrumbs match notes created by previous syncs.
func (r *Renderer) RenderHeading(ctx context.Context, heading *markdown.Heading) string {
	var sb strings.Builder
	var discarded []anki.Picture
	for _, element := range heading.Elements {
		rendered, err := r.Render(ctx, element, &discarded)
		if err != nil {
			CurrentLogger().Warnw("Heading formula kept as written", "heading", element.Source(), "err", err)
			rendered = element.Source()
		}
		sb.WriteString(rendered)
	}
	return sb.String()
}

// Resolve searches the file targeted by a link, first relative to the note, then relative to the vault.
func (r *Renderer) Resolve(target string) (string, bool) {
	candidates := []string{
		filepath.Join(r.NoteDirectory, target),
		filepath.Join(r.RootDirectory, target),
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

func (r *Renderer) picture(target string) (anki.Picture, bool) {
	path, ok := r.Resolve(target)
	if !ok || !medias.IsImage(path) {
		return anki.Picture{}, false
	}

	relativePath, err := filepath.Rel(r.RootDirectory, path)
	if err != nil {
		relativePath = filepath.Base(path)
	}
	filename := medias.MediaFilename(relativePath)

	if medias.NeedsConversion(path) {
		dest := filepath.Join(r.TempDir, filename)
		if _, err := os.Stat(dest); err != nil { // Already converted during this run otherwise
			if err := r.Images.ToJPEG(path, dest); err != nil {
				CurrentLogger().Warnw("Picture ignored", "path", relativePath, "err", err)
				return anki.Picture{}, false
			}
		}
		path = dest
	}

	return anki.NewPicture(path, filename), true
}
