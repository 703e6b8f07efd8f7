package markdown

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/julien-sobczak/anksidian/pkg/text"
)

// ErrCorruptSource is returned when a file cannot be fully parsed.
// The grammar ends with a single character alternative so this must never happen.
var ErrCorruptSource = errors.New("corrupt source")

// Number of digits accepted inside <!--NoteID:...--> (Unix timestamps in milliseconds).
const (
	MinNoteIDDigits = 10
	MaxNoteIDDigits = 13
)

/*
 * The grammar is evaluated as an ordered choice: at each position,
 * the first production that matches wins and no other is tried.
 *
 *   FileElement   := ClozeLines | Heading | Tag | Code | Math | Link | Char
 *   Element       := Code | Math | Link | Char
 *   Newline       := "\r\n" | "\n" | "\r"
 *   Heading       := (line start) "#"+ " " (!Newline Element)* (Newline | EOF)
 *   Tag           := "#" (!("#" | " " | Newline) char)+
 *   Cloze         := "==" (!"==" Element)+ "=="
 *   ClozeLines    := (!(Cloze | Newline) Element)* Cloze (Cloze | !Newline Element)* NoteIDComment?
 *   NoteIDComment := Newline "<!--NoteID:" [0-9]{10,13} "-->" Newline?
 *   Code          := "```" (!"```" char)+ "```" | "`" (!"`" char)+ "`"
 *   Math          := "$$" (!"$$" char)+ "$$" | "$" (!"$" char)+ "$"
 *   Link          := "!"? "[[" (!("]]" | Newline | "|") char)+ ("|" (!("]]" | Newline) char)+)? "]]"
 *   Char          := any character
 *
 * Repetitions are greedy and never backtrack.
 */

// ParseFile reads and parses a Markdown file.
func ParseFile(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse converts a text into a Document. All bytes of the input are covered by the returned elements.
func Parse(src string) (*Document, error) {
	p := newParser(src)
	doc := &Document{
		Source: src,
	}
	pos := 0
	for pos < len(src) {
		element, next := p.fileElement(pos)
		if next <= pos {
			return nil, fmt.Errorf("%w: no progress at byte %d", ErrCorruptSource, pos)
		}
		doc.Elements = append(doc.Elements, element)
		pos = next
	}
	return doc, nil
}

type parser struct {
	src string

	// Cached lookups used to reject cloze-line blocks quickly.
	// Only valid for increasing positions (= top-level elements).
	nextClozeMark *lookahead
	nextNewline   *lookahead
	nextSpan      *lookahead
}

func newParser(src string) *parser {
	return &parser{
		src: src,
		nextClozeMark: newLookahead(src, func(s string) int {
			return strings.Index(s, "==")
		}),
		nextNewline: newLookahead(src, func(s string) int {
			return strings.IndexAny(s, "\r\n")
		}),
		nextSpan: newLookahead(src, func(s string) int {
			return strings.IndexAny(s, "`$")
		}),
	}
}

func (p *parser) fileElement(pos int) (FileElement, int) {
	if block, next, ok := p.clozeLines(pos); ok {
		return block, next
	}
	if heading, next, ok := p.heading(pos); ok {
		return heading, next
	}
	if tag, next, ok := p.tag(pos); ok {
		return tag, next
	}
	if code, next, ok := p.code(pos); ok {
		return code, next
	}
	if math, next, ok := p.math(pos); ok {
		return math, next
	}
	if link, next, ok := p.link(pos); ok {
		return link, next
	}
	return p.char(pos)
}

// element parses an inline element. pos must be before the end of the input.
func (p *parser) element(pos int) (Element, int) {
	if code, next, ok := p.code(pos); ok {
		return code, next
	}
	if math, next, ok := p.math(pos); ok {
		return math, next
	}
	if link, next, ok := p.link(pos); ok {
		return link, next
	}
	return p.char(pos)
}

func (p *parser) char(pos int) (Char, int) {
	_, size := utf8.DecodeRuneInString(p.src[pos:])
	return Char(p.src[pos : pos+size]), pos + size
}

// newline returns the length of the newline at pos, 0 if none.
func (p *parser) newline(pos int) int {
	if strings.HasPrefix(p.src[pos:], "\r\n") {
		return 2
	}
	if pos < len(p.src) && (p.src[pos] == '\n' || p.src[pos] == '\r') {
		return 1
	}
	return 0
}

func (p *parser) atLineStart(pos int) bool {
	return pos == 0 || p.src[pos-1] == '\n' || p.src[pos-1] == '\r'
}

func (p *parser) heading(pos int) (*Heading, int, bool) {
	if !p.atLineStart(pos) {
		return nil, pos, false
	}
	level := text.CountLeading(p.src[pos:], '#')
	if level == 0 {
		return nil, pos, false
	}
	i := pos + level
	if i >= len(p.src) || p.src[i] != ' ' {
		return nil, pos, false
	}
	i++

	heading := &Heading{
		Level: level,
		Start: pos,
	}
	for i < len(p.src) && p.newline(i) == 0 {
		var element Element
		element, i = p.element(i)
		heading.Elements = append(heading.Elements, element)
	}
	i += p.newline(i)
	heading.End = i
	return heading, i, true
}

func (p *parser) tag(pos int) (*Tag, int, bool) {
	if p.src[pos] != '#' {
		return nil, pos, false
	}
	i := pos + 1
	for i < len(p.src) && p.src[i] != '#' && p.src[i] != ' ' && p.newline(i) == 0 {
		i++
	}
	if i == pos+1 {
		return nil, pos, false
	}
	return &Tag{Name: p.src[pos+1 : i]}, i, true
}

func (p *parser) code(pos int) (*Code, int, bool) {
	if raw, next, ok := p.delimited(pos, "```"); ok {
		return &Code{Multiline: true, Raw: raw}, next, true
	}
	if raw, next, ok := p.delimited(pos, "`"); ok {
		return &Code{Raw: raw}, next, true
	}
	return nil, pos, false
}

func (p *parser) math(pos int) (*Math, int, bool) {
	if raw, next, ok := p.delimited(pos, "$$"); ok {
		return &Math{Display: true, Raw: raw}, next, true
	}
	if raw, next, ok := p.delimited(pos, "$"); ok {
		return &Math{Raw: raw}, next, true
	}
	return nil, pos, false
}

// delimited matches a non-empty text surrounded by the given delimiter.
// The text stops at the first occurrence of the delimiter.
func (p *parser) delimited(pos int, delimiter string) (string, int, bool) {
	if !strings.HasPrefix(p.src[pos:], delimiter) {
		return "", pos, false
	}
	start := pos + len(delimiter)
	length := strings.Index(p.src[start:], delimiter)
	if length <= 0 {
		return "", pos, false
	}
	return p.src[start : start+length], start + length + len(delimiter), true
}

func (p *parser) link(pos int) (*Link, int, bool) {
	link := &Link{}
	i := pos
	if p.src[i] == '!' {
		link.Embed = true
		i++
	}
	if !strings.HasPrefix(p.src[i:], "[[") {
		return nil, pos, false
	}
	i += 2

	start := i
	for i < len(p.src) && !strings.HasPrefix(p.src[i:], "]]") && p.newline(i) == 0 && p.src[i] != '|' {
		i++
	}
	if i == start {
		return nil, pos, false
	}
	link.Target = p.src[start:i]

	if i < len(p.src) && p.src[i] == '|' {
		start := i + 1
		j := start
		for j < len(p.src) && !strings.HasPrefix(p.src[j:], "]]") && p.newline(j) == 0 {
			j++
		}
		if j > start {
			link.Rename = p.src[start:j]
			link.HasRename = true
			i = j
		}
	}

	if !strings.HasPrefix(p.src[i:], "]]") {
		return nil, pos, false
	}
	return link, i + 2, true
}

func (p *parser) cloze(pos int) (*Cloze, int, bool) {
	if !strings.HasPrefix(p.src[pos:], "==") {
		return nil, pos, false
	}
	cloze := &Cloze{}
	i := pos + 2
	for i < len(p.src) && !strings.HasPrefix(p.src[i:], "==") {
		var element Element
		element, i = p.element(i)
		cloze.Elements = append(cloze.Elements, element)
	}
	if len(cloze.Elements) == 0 || !strings.HasPrefix(p.src[i:], "==") {
		return nil, pos, false
	}
	return cloze, i + 2, true
}

func (p *parser) clozeLines(pos int) (*ClozeLines, int, bool) {
	if !p.mayStartClozeLines(pos) {
		return nil, pos, false
	}

	block := &ClozeLines{
		Start: pos,
	}
	i := pos

	// Prefix until the first cloze
	for {
		if i >= len(p.src) || p.newline(i) > 0 {
			return nil, pos, false
		}
		if cloze, next, ok := p.cloze(i); ok {
			block.Body = append(block.Body, cloze)
			i = next
			break
		}
		var element Element
		element, i = p.element(i)
		block.Prefix = append(block.Prefix, element)
	}

	// Other clozes and elements until the end of line
	for i < len(p.src) {
		if cloze, next, ok := p.cloze(i); ok {
			block.Body = append(block.Body, cloze)
			i = next
			continue
		}
		if p.newline(i) > 0 {
			break
		}
		var element Element
		element, i = p.element(i)
		block.Body = append(block.Body, element)
	}

	if comment, next, ok := p.noteIDComment(i); ok {
		block.NoteID = comment
		i = next
	}

	block.End = i
	block.Remaining = len(p.src) - i
	return block, i, true
}

// mayStartClozeLines rejects positions where no cloze can be reached before the end of the line.
// Only code and math spans can cross a newline.
func (p *parser) mayStartClozeLines(pos int) bool {
	mark := p.nextClozeMark.from(pos)
	if mark >= len(p.src) {
		return false
	}
	newline := p.nextNewline.from(pos)
	if mark < newline {
		return true
	}
	return p.nextSpan.from(pos) < newline
}

func (p *parser) noteIDComment(pos int) (*NoteIDComment, int, bool) {
	i := pos
	n := p.newline(i)
	if n == 0 {
		return nil, pos, false
	}
	i += n
	if !strings.HasPrefix(p.src[i:], NoteIDCommentStart) {
		return nil, pos, false
	}
	i += len(NoteIDCommentStart)

	start := i
	for i < len(p.src) && p.src[i] >= '0' && p.src[i] <= '9' {
		i++
	}
	digits := p.src[start:i]
	if len(digits) < MinNoteIDDigits || len(digits) > MaxNoteIDDigits {
		return nil, pos, false
	}

	if !strings.HasPrefix(p.src[i:], NoteIDCommentEnd) {
		return nil, pos, false
	}
	i += len(NoteIDCommentEnd)
	i += p.newline(i)

	return &NoteIDComment{Digits: digits}, i, true
}

// lookahead remembers the next occurrence of a pattern.
type lookahead struct {
	src  string
	find func(s string) int
	at   int
}

func newLookahead(src string, find func(s string) int) *lookahead {
	return &lookahead{
		src:  src,
		find: find,
		at:   -1,
	}
}

// from returns the offset of the next occurrence at or after pos, len(src) if none.
// Successive calls must use non-decreasing positions.
func (l *lookahead) from(pos int) int {
	if l.at >= pos {
		return l.at
	}
	i := l.find(l.src[pos:])
	if i < 0 {
		l.at = len(l.src)
	} else {
		l.at = pos + i
	}
	return l.at
}
