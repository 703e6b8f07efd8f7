package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/julien-sobczak/anksidian/internal/anki"
	"github.com/julien-sobczak/anksidian/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inspectedFixture() []InspectedFile {
	id := anki.NoteID(1700000000000)
	collected := &core.CollectedFile{
		RelativePath: "go.md",
		Tags:         []string{"go"},
		Notes: []*core.PendingNote{
			{Contents: "{{c1::goroutine}}<br>go", PriorID: &id, SourceOffset: 15},
			{Contents: "{{c1::gopher}}<br>go", SourceOffset: 40, Pictures: []anki.Picture{anki.NewPicture("/tmp/gopher.png", "")}},
		},
		Errors: []error{errors.New("go.md at byte 50: pandoc failed")},
	}
	return []InspectedFile{NewInspectedFile(collected, "Go")}
}

func TestPrintInspected(t *testing.T) {

	t.Run("YAML", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, printInspected(&out, inspectedFixture(), "yaml", ""))
		assert.Contains(t, out.String(), "- path: go.md\n")
		assert.Contains(t, out.String(), "deck: Go\n")
		assert.Contains(t, out.String(), "contents: '{{c1::goroutine}}<br>go'\n")
		assert.Contains(t, out.String(), "id: 1700000000000\n")
		assert.Contains(t, out.String(), "- gopher.png\n")
		assert.Contains(t, out.String(), "- 'go.md at byte 50: pandoc failed'\n")
	})

	t.Run("JSON", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, printInspected(&out, inspectedFixture(), "json", ""))
		assert.Contains(t, out.String(), `"contents": "{{c1::goroutine}}<br>go"`)
		assert.Contains(t, out.String(), `"id": 1700000000000`)
	})

	t.Run("jq", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, printInspected(&out, inspectedFixture(), "json", `.[].notes[] | select(.id == null) | .contents`))
		assert.Equal(t, "[\n  \"{{c1::gopher}}<br>go\"\n]\n", out.String())
	})

	t.Run("invalid jq", func(t *testing.T) {
		var out bytes.Buffer
		err := printInspected(&out, inspectedFixture(), "json", `.[`)
		assert.ErrorContains(t, err, "invalid --jq")
	})

	t.Run("invalid format", func(t *testing.T) {
		var out bytes.Buffer
		err := printInspected(&out, inspectedFixture(), "xml", "")
		assert.ErrorContains(t, err, "invalid --output format")
	})
}

func TestPrintDiff(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	printDiff(&out, "--- a/go.md\n+++ b/go.md\n@@ -1 +1,2 @@\n A ==goroutine==\n+<!--NoteID:1700000000000-->\n")
	assert.Equal(t, "--- a/go.md\n+++ b/go.md\n@@ -1 +1,2 @@\n A ==goroutine==\n+<!--NoteID:1700000000000-->\n", out.String())
}

func TestPrintReport(t *testing.T) {
	color.NoColor = true
	report := &core.SyncReport{
		Files: []*core.FileReport{
			{RelativePath: "go.md", Created: 2, Unchanged: 1},
			{RelativePath: "rust.md", Updated: 1, Failed: 1},
			{RelativePath: "misc.md", Err: core.ErrNoDeck},
		},
		Unseen: []core.KnownNote{{ID: 1}},
	}
	var out bytes.Buffer
	printReport(&out, report)
	assert.Equal(t, "rust.md: 1 note(s) not synchronized\n"+
		"misc.md: no deck mapping\n"+
		"3 files: 2 created, 1 updated, 1 unchanged, 1 failed\n"+
		"1 note(s) in Anki no longer present in files (run 'anksidian prune' to delete them)\n", out.String())
}
