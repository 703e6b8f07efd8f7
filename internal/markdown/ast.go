package markdown

import (
	"strconv"
	"strings"
)

// FileElement is a top-level unit of a Document.
// Implementations: *ClozeLines, *Heading, *Tag, *Code, *Math, *Link, Char.
type FileElement interface {
	fileElement()
}

// Inline is a unit inside a cloze-line block: either an Element or a *Cloze.
type Inline interface {
	inline()
}

// Element is an inline unit composing headings, clozes and cloze-line blocks.
// Implementations: *Code, *Math, *Link, Char.
type Element interface {
	Inline
	element()
	// Source returns the exact text the element was parsed from.
	Source() string
}

// Document is the ordered list of elements found in a Markdown file.
type Document struct {
	Source   string
	Elements []FileElement
}

// Char is a single character (or a single byte when the source is not valid UTF-8).
type Char string

func (Char) fileElement() {}
func (Char) inline()      {}
func (Char) element()     {}

func (c Char) Source() string {
	return string(c)
}

// Code is a code span. Its content is never interpreted.
type Code struct {
	Multiline bool
	Raw       string // Text between the delimiters
}

func (*Code) fileElement() {}
func (*Code) inline()      {}
func (*Code) element()     {}

// Delimiter returns the backticks surrounding the code.
func (c *Code) Delimiter() string {
	if c.Multiline {
		return "```"
	}
	return "`"
}

func (c *Code) Source() string {
	return c.Delimiter() + c.Raw + c.Delimiter()
}

// Math is an inline ($...$) or display ($$...$$) formula.
type Math struct {
	Display bool
	Raw     string // Text between the delimiters
}

func (*Math) fileElement() {}
func (*Math) inline()      {}
func (*Math) element()     {}

func (m *Math) Source() string {
	if m.Display {
		return "$$" + m.Raw + "$$"
	}
	return "$" + m.Raw + "$"
}

// Link is a wikilink like [[target]], [[target|rename]], or ![[image.png]].
type Link struct {
	Embed     bool // Leading "!"
	Target    string
	Rename    string
	HasRename bool
}

func (*Link) fileElement() {}
func (*Link) inline()      {}
func (*Link) element()     {}

// Text returns the text displayed for the link.
func (l *Link) Text() string {
	if l.HasRename {
		return l.Rename
	}
	return l.Target
}

func (l *Link) Source() string {
	var sb strings.Builder
	if l.Embed {
		sb.WriteString("!")
	}
	sb.WriteString("[[")
	sb.WriteString(l.Target)
	if l.HasRename {
		sb.WriteString("|")
		sb.WriteString(l.Rename)
	}
	sb.WriteString("]]")
	return sb.String()
}

// Heading is a line starting with one or more '#' followed by a space.
type Heading struct {
	Level    int
	Elements []Element

	// Byte offsets of the line in the source (including the newline)
	Start int
	End   int
}

func (*Heading) fileElement() {}

// Tag is a #tag. Name excludes the leading '#'.
type Tag struct {
	Name string
}

func (*Tag) fileElement() {}

// Cloze is a ==highlighted== span.
type Cloze struct {
	Elements []Element
}

func (*Cloze) inline() {}

// NoteIDComment is the <!--NoteID:...--> marker following a cloze-line block.
type NoteIDComment struct {
	Digits string
}

// ID decodes the digits.
func (c *NoteIDComment) ID() uint64 {
	var id uint64
	for i := 0; i < len(c.Digits); i++ {
		id = id*10 + uint64(c.Digits[i]-'0')
	}
	return id
}

// ClozeLines is a run of text containing at least one cloze.
type ClozeLines struct {
	// Elements before the first cloze
	Prefix []Element
	// The first cloze followed by other clozes and elements on the same line
	Body []Inline
	// Optional identifier of the matching note
	NoteID *NoteIDComment

	// Byte offsets of the block in the source (including the identifier comment if any)
	Start int
	End   int
	// Number of bytes after the block until the end of the file
	Remaining int
}

func (*ClozeLines) fileElement() {}

// Clozes returns all clozes in order.
func (c *ClozeLines) Clozes() []*Cloze {
	var result []*Cloze
	for _, inline := range c.Body {
		if cloze, ok := inline.(*Cloze); ok {
			result = append(result, cloze)
		}
	}
	return result
}

const (
	NoteIDCommentStart = "<!--NoteID:"
	NoteIDCommentEnd   = "-->"
)

// FormatNoteIDComment returns the identifier comment for the given note ID.
func FormatNoteIDComment(id uint64) string {
	return NoteIDCommentStart + strconv.FormatUint(id, 10) + NoteIDCommentEnd
}
