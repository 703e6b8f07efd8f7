package markdown

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julien-sobczak/anksidian/pkg/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {

	t.Run("Cloze line", func(t *testing.T) {
		doc, err := Parse("Go was created at ==Google== in ==2009==.")
		require.NoError(t, err)
		require.Len(t, doc.Elements, 1)

		block := doc.Elements[0].(*ClozeLines)
		assert.Equal(t, "Go was created at ", sources(block.Prefix))
		require.Len(t, block.Body, 7)
		clozes := block.Clozes()
		require.Len(t, clozes, 2)
		assert.Equal(t, "Google", sources(clozes[0].Elements))
		assert.Equal(t, "2009", sources(clozes[1].Elements))
		assert.Nil(t, block.NoteID)
		assert.Equal(t, 0, block.Start)
		assert.Equal(t, 41, block.End)
		assert.Equal(t, 0, block.Remaining)
	})

	t.Run("Cloze line with identifier", func(t *testing.T) {
		doc, err := Parse("A ==B==\n<!--NoteID:1700000000000-->\nC")
		require.NoError(t, err)
		require.Len(t, doc.Elements, 2)

		block := doc.Elements[0].(*ClozeLines)
		require.NotNil(t, block.NoteID)
		assert.Equal(t, "1700000000000", block.NoteID.Digits)
		assert.Equal(t, uint64(1700000000000), block.NoteID.ID())
		assert.Equal(t, 1, block.Remaining)
		assert.Equal(t, Char("C"), doc.Elements[1])
	})

	t.Run("Cloze line with CRLF identifier", func(t *testing.T) {
		doc, err := Parse("==a==\r\n<!--NoteID:1234567890123-->\r\nb")
		require.NoError(t, err)
		require.Len(t, doc.Elements, 2)
		block := doc.Elements[0].(*ClozeLines)
		require.NotNil(t, block.NoteID)
		assert.Equal(t, uint64(1234567890123), block.NoteID.ID())
		assert.Equal(t, 1, block.Remaining)
	})

	t.Run("Identifier too short", func(t *testing.T) {
		doc, err := Parse("==B==\n<!--NoteID:42-->")
		require.NoError(t, err)
		block := doc.Elements[0].(*ClozeLines)
		assert.Nil(t, block.NoteID)
		assert.Equal(t, 5, block.End)
		assert.Equal(t, Char("\n"), doc.Elements[1])
	})

	t.Run("Identifier too long", func(t *testing.T) {
		doc, err := Parse("==B==\n<!--NoteID:12345678901234-->")
		require.NoError(t, err)
		block := doc.Elements[0].(*ClozeLines)
		assert.Nil(t, block.NoteID)
	})

	t.Run("Cloze lines are separated by newlines", func(t *testing.T) {
		doc, err := Parse("==a==\n==b==")
		require.NoError(t, err)
		require.Len(t, doc.Elements, 3)
		assert.IsType(t, &ClozeLines{}, doc.Elements[0])
		assert.Equal(t, Char("\n"), doc.Elements[1])
		assert.IsType(t, &ClozeLines{}, doc.Elements[2])
		assert.Equal(t, 6, doc.Elements[2].(*ClozeLines).Start)
	})

	t.Run("Cloze spanning lines", func(t *testing.T) {
		doc, err := Parse("a ==b\nc== d\ne")
		require.NoError(t, err)
		block := doc.Elements[0].(*ClozeLines)
		assert.Equal(t, "b\nc", sources(block.Clozes()[0].Elements))
		assert.Equal(t, 11, block.End)
	})

	t.Run("Cloze containing code", func(t *testing.T) {
		doc, err := Parse("==`a==b`==")
		require.NoError(t, err)
		require.Len(t, doc.Elements, 1)
		cloze := doc.Elements[0].(*ClozeLines).Clozes()[0]
		require.Len(t, cloze.Elements, 1)
		assert.Equal(t, &Code{Raw: "a==b"}, cloze.Elements[0])
	})

	t.Run("Code crossing a line before a cloze", func(t *testing.T) {
		doc, err := Parse("`x\ny` ==z==")
		require.NoError(t, err)
		require.Len(t, doc.Elements, 1)
		block := doc.Elements[0].(*ClozeLines)
		require.Len(t, block.Prefix, 2)
		assert.Equal(t, &Code{Raw: "x\ny"}, block.Prefix[0])
	})

	t.Run("Empty cloze", func(t *testing.T) {
		doc, err := Parse("====")
		require.NoError(t, err)
		assert.Len(t, doc.Elements, 4)
		for _, element := range doc.Elements {
			assert.Equal(t, Char("="), element)
		}
	})

	t.Run("Headings", func(t *testing.T) {
		doc, err := Parse(text.UnescapeTestContent("# Title\n## Sub ”code”\ntext"))
		require.NoError(t, err)
		require.Len(t, doc.Elements, 6)

		h1 := doc.Elements[0].(*Heading)
		assert.Equal(t, 1, h1.Level)
		assert.Equal(t, "Title", sources(h1.Elements))
		assert.Equal(t, 0, h1.Start)
		assert.Equal(t, 8, h1.End)

		h2 := doc.Elements[1].(*Heading)
		assert.Equal(t, 2, h2.Level)
		assert.Equal(t, "Sub `code`", sources(h2.Elements))
		assert.Equal(t, &Code{Raw: "code"}, h2.Elements[4])
	})

	t.Run("Heading at end of file", func(t *testing.T) {
		doc, err := Parse("### Last")
		require.NoError(t, err)
		require.Len(t, doc.Elements, 1)
		heading := doc.Elements[0].(*Heading)
		assert.Equal(t, 3, heading.Level)
		assert.Equal(t, 8, heading.End)
	})

	t.Run("Heading only at line start", func(t *testing.T) {
		doc, err := Parse("a # b\n")
		require.NoError(t, err)
		for _, element := range doc.Elements {
			assert.IsType(t, Char(""), element)
		}
	})

	t.Run("Heading containing a cloze", func(t *testing.T) {
		doc, err := Parse("# ==Title==")
		require.NoError(t, err)
		require.Len(t, doc.Elements, 1)
		block := doc.Elements[0].(*ClozeLines)
		assert.Equal(t, "# ", sources(block.Prefix))
	})

	t.Run("Tags", func(t *testing.T) {
		doc, err := Parse("#golang is #fun\n")
		require.NoError(t, err)
		var tags []string
		for _, element := range doc.Elements {
			if tag, ok := element.(*Tag); ok {
				tags = append(tags, tag.Name)
			}
		}
		assert.Equal(t, []string{"golang", "fun"}, tags)
	})

	t.Run("Links", func(t *testing.T) {
		doc, err := Parse("[[Go|golang]] and ![[img.png]] [[a|]]")
		require.NoError(t, err)
		require.IsType(t, &Link{}, doc.Elements[0])
		assert.Equal(t, &Link{Target: "Go", Rename: "golang", HasRename: true}, doc.Elements[0])
		assert.Equal(t, "golang", doc.Elements[0].(*Link).Text())
		assert.Equal(t, &Link{Embed: true, Target: "img.png"}, doc.Elements[6])
		// [[a|]] is not a link
		for _, element := range doc.Elements[7:] {
			assert.IsType(t, Char(""), element)
		}
	})

	t.Run("Math", func(t *testing.T) {
		doc, err := Parse("$$x^2$$ and $y$")
		require.NoError(t, err)
		require.Len(t, doc.Elements, 7)
		assert.Equal(t, &Math{Display: true, Raw: "x^2"}, doc.Elements[0])
		assert.Equal(t, &Math{Raw: "y"}, doc.Elements[6])
	})

	t.Run("Multiline code", func(t *testing.T) {
		doc, err := Parse("```go\nx := 1\n```")
		require.NoError(t, err)
		require.Len(t, doc.Elements, 1)
		assert.Equal(t, &Code{Multiline: true, Raw: "go\nx := 1\n"}, doc.Elements[0])
	})

	t.Run("Invalid UTF-8", func(t *testing.T) {
		doc, err := Parse("a\xffb")
		require.NoError(t, err)
		assert.Equal(t, []FileElement{Char("a"), Char("\xff"), Char("b")}, doc.Elements)
	})
}

func TestParseIsTotal(t *testing.T) {
	tokens := []string{
		"=", "==", "#", "# ", " ", "\n", "\r", "\r\n", "`", "```", "$", "$$",
		"[[", "]]", "|", "!", "a", "é", "\xff", "<!--NoteID:1234567890123-->",
	}
	r := rand.New(rand.NewSource(42))

	inputs := []string{"", "==", "====", "$", "``", "[[", "![[x", "# ", "#", "\r\n\r"}
	for range 500 {
		var sb strings.Builder
		for range 1 + r.Intn(30) {
			sb.WriteString(tokens[r.Intn(len(tokens))])
		}
		inputs = append(inputs, sb.String())
	}

	for _, input := range inputs {
		doc, err := Parse(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, input, rebuild(t, doc), "input %q", input)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go.md")
	require.NoError(t, os.WriteFile(path, []byte("# Go\n==Gophers== are cute."), 0644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, doc.Elements, 2)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.md"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatNoteIDComment(t *testing.T) {
	assert.Equal(t, "<!--NoteID:1700000000000-->", FormatNoteIDComment(1700000000000))
	assert.Equal(t, "<!--NoteID:42-->", FormatNoteIDComment(42))
}

/* Test Helpers */

func sources(elements []Element) string {
	var sb strings.Builder
	for _, element := range elements {
		sb.WriteString(element.Source())
	}
	return sb.String()
}

// rebuild concatenates the text covered by every element, checking offsets are contiguous.
func rebuild(t *testing.T, doc *Document) string {
	var sb strings.Builder
	for _, element := range doc.Elements {
		switch e := element.(type) {
		case *ClozeLines:
			require.Equal(t, sb.Len(), e.Start)
			sb.WriteString(doc.Source[e.Start:e.End])
			require.Equal(t, len(doc.Source)-e.End, e.Remaining)
		case *Heading:
			require.Equal(t, sb.Len(), e.Start)
			sb.WriteString(doc.Source[e.Start:e.End])
		case *Tag:
			sb.WriteString("#" + e.Name)
		case Element:
			sb.WriteString(e.Source())
		default:
			t.Fatalf("unexpected element %T", element)
		}
	}
	return sb.String()
}
