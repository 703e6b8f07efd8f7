package core

import (
	"path/filepath"
	"strings"

	"github.com/julien-sobczak/anksidian/pkg/text"
	"golang.org/x/text/unicode/norm"
)

// BreadcrumbSeparator separates the path components and the headings of a breadcrumb.
const BreadcrumbSeparator = " > "

// HeadingStack contains the text of the current headings, indexed by level-1.
// Skipped levels contain an empty string.
type HeadingStack []string

// Apply registers a new heading.
func (s *HeadingStack) Apply(level int, text string) {
	if level < 1 {
		return
	}
	stack := *s
	switch {
	case level < len(stack):
		stack = stack[:len(stack)-1]
		stack = stack[:level]
		stack[level-1] = text
	case level == len(stack):
		stack[level-1] = text
	default:
		for len(stack) < level-1 {
			stack = append(stack, "")
		}
		stack = append(stack, text)
	}
	*s = stack
}

// Clone returns a copy safe to keep after new headings are applied.
func (s HeadingStack) Clone() HeadingStack {
	return append(HeadingStack(nil), s...)
}

// Breadcrumb returns the non-empty headings separated by " > ".
func (s HeadingStack) Breadcrumb() string {
	var parts []string
	for _, heading := range s {
		if heading != "" {
			parts = append(parts, heading)
		}
	}
	return strings.Join(parts, BreadcrumbSeparator)
}

// Breadcrumb returns the path of a note inside the vault followed by the current headings.
//
// Ex: "languages/go.md" + ["Basics", "", "Types"] => "languages > go > Basics > Types"
func Breadcrumb(relativePath string, headings HeadingStack) string {
	relativePath = text.TrimExtension(filepath.ToSlash(relativePath))
	var sb strings.Builder
	for i, component := range strings.Split(relativePath, "/") {
		if i > 0 {
			sb.WriteString(BreadcrumbSeparator)
		}
		// macOS may return decomposed file names
		sb.WriteString(norm.NFC.String(component))
	}
	for _, heading := range headings {
		if heading != "" {
			sb.WriteString(BreadcrumbSeparator)
			sb.WriteString(heading)
		}
	}
	return sb.String()
}
