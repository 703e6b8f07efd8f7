package core

import (
	"context"
	"testing"

	"github.com/julien-sobczak/anksidian/internal/anki"
	"github.com/julien-sobczak/anksidian/internal/markdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectBlocks parses the source and converts every cloze-line block.
func collectBlocks(t *testing.T, src string, headings HeadingStack, relativePath string) []*PendingNote {
	doc, err := markdown.Parse(src)
	require.NoError(t, err)

	renderer := newTestRenderer(t, t.TempDir())
	var result []*PendingNote
	for _, element := range doc.Elements {
		block, ok := element.(*markdown.ClozeLines)
		if !ok {
			continue
		}
		note, err := CollectClozeLines(context.Background(), block, len(src), renderer, headings, relativePath)
		require.NoError(t, err)
		result = append(result, note)
	}
	return result
}

func TestCollectClozeLines(t *testing.T) {

	t.Run("Numbering", func(t *testing.T) {
		src := "A ==channel== is a ==pipe==.\n==c==\n"
		notes := collectBlocks(t, src, HeadingStack{"Go", "Channels"}, "lang/go.md")
		require.Len(t, notes, 2)

		assert.Equal(t, "A {{c1::channel}} is a {{c2::pipe}}.<br>lang > go > Go > Channels", notes[0].Contents)
		assert.Nil(t, notes[0].PriorID)
		assert.Equal(t, len("A ==channel== is a ==pipe=="+"."), notes[0].SourceOffset)

		// Numbering restarts for every block
		assert.Equal(t, "{{c1::c}}<br>lang > go > Go > Channels", notes[1].Contents)
		assert.Equal(t, len(src)-1, notes[1].SourceOffset)
	})

	t.Run("Multiline cloze", func(t *testing.T) {
		src := "==first\nsecond== after\r\n==a\r\nb==\n"
		notes := collectBlocks(t, src, nil, "go.md")
		require.Len(t, notes, 2)
		assert.Equal(t, "{{c1::first<br>second}} after<br>go", notes[0].Contents)
		assert.Equal(t, len("==first\nsecond== after"), notes[0].SourceOffset)
		// CRLF is a single line break
		assert.Equal(t, "{{c1::a<br>b}}<br>go", notes[1].Contents)
	})

	t.Run("Identifier", func(t *testing.T) {
		src := "==a==\n<!--NoteID:1700000000000-->\nafter\n"
		notes := collectBlocks(t, src, nil, "go.md")
		require.Len(t, notes, 1)
		require.NotNil(t, notes[0].PriorID)
		assert.Equal(t, anki.NoteID(1700000000000), *notes[0].PriorID)
		assert.Equal(t, len("==a==\n<!--NoteID:1700000000000-->\n"), notes[0].SourceOffset)
		assert.Equal(t, "{{c1::a}}<br>go", notes[0].Contents)
	})

	t.Run("Elements", func(t *testing.T) {
		src := "[[Goroutines|Goroutine]] `go f()` ==$x^2$ and [[Channels]]==\n"
		notes := collectBlocks(t, src, nil, "go.md")
		require.Len(t, notes, 1)
		assert.Equal(t, "Goroutine `go f()` {{c1::\\(x^2\\) and Channels}}<br>go", notes[0].Contents)
	})

	t.Run("Breadcrumb without headings", func(t *testing.T) {
		notes := collectBlocks(t, "==x==", HeadingStack{"", "Sub"}, "notes/deep/file.markdown")
		require.Len(t, notes, 1)
		assert.Equal(t, "{{c1::x}}<br>notes > deep > file > Sub", notes[0].Contents)
		assert.Equal(t, len("==x=="), notes[0].SourceOffset)
	})
}
