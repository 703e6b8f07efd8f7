package anki

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// NoteID identifies a note in the Anki collection.
// Anki uses the creation time in milliseconds.
type NoteID uint64

func (id NoteID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Default note type and its fields.
const (
	ModelCloze     = "Cloze"
	FieldText      = "Text"
	FieldBackExtra = "Back Extra"
)

// Picture is an image attached to a note.
// AnkiConnect stores the file in the media folder and appends an <img> to the given fields.
type Picture struct {
	Path     string   `json:"path"`
	Filename string   `json:"filename"`
	Fields   []string `json:"fields"`
}

// NewPicture returns a picture appended to the back of a cloze note.
func NewPicture(path, filename string) Picture {
	if filename == "" {
		filename = filepath.Base(path)
	}
	return Picture{
		Path:     path,
		Filename: filename,
		Fields:   []string{FieldBackExtra},
	}
}

// Note is a note to create.
type Note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Options   *NoteOptions      `json:"options,omitempty"`
	Tags      []string          `json:"tags"`
	Picture   []Picture         `json:"picture,omitempty"`
}

type NoteOptions struct {
	AllowDuplicate bool   `json:"allowDuplicate"`
	DuplicateScope string `json:"duplicateScope"`
}

// NewClozeNote returns a note with an empty back.
func NewClozeNote(deck, model, text string, tags []string, pictures []Picture) Note {
	if model == "" {
		model = ModelCloze
	}
	if tags == nil {
		tags = []string{}
	}
	return Note{
		DeckName:  deck,
		ModelName: model,
		Fields: map[string]string{
			FieldText:      text,
			FieldBackExtra: "",
		},
		Options: &NoteOptions{
			AllowDuplicate: false,
			DuplicateScope: "deck",
		},
		Tags:    tags,
		Picture: pictures,
	}
}

// DuplicateQuery returns the search query matching the existing copy of the note.
// Tags are ignored as they do not take part in duplicate detection.
func (n Note) DuplicateQuery() string {
	var sb strings.Builder
	sb.WriteString(`"deck:` + EscapeSearch(n.DeckName) + `"`)
	sb.WriteString(` "note:` + EscapeSearch(n.ModelName) + `"`)

	// Only the first field is used by Anki to detect duplicates
	if text, ok := n.Fields[FieldText]; ok {
		sb.WriteString(` "` + EscapeSearch(FieldText) + `:` + escapeFieldValue(text) + `"`)
	} else {
		keys := make([]string, 0, len(n.Fields))
		for key := range n.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			sb.WriteString(` "` + EscapeSearch(key) + `:` + escapeFieldValue(n.Fields[key]) + `"`)
		}
	}
	return sb.String()
}

var searchEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`*`, `\*`,
	`_`, `\_`,
)

// EscapeSearch escapes a term of an Anki search so that it matches literally.
// The result is meant to be enclosed in double quotes.
func EscapeSearch(s string) string {
	return searchEscaper.Replace(s)
}

func escapeFieldValue(s string) string {
	return strings.ReplaceAll(EscapeSearch(s), ":", `\:`)
}

// DecksQuery returns the query matching notes of the given model stored directly in one of the decks.
// Subdecks are excluded.
func DecksQuery(model string, decks ...string) string {
	if model == "" {
		model = ModelCloze
	}
	var clauses []string
	for _, deck := range decks {
		escaped := EscapeSearch(deck)
		clauses = append(clauses, `("deck:`+escaped+`" -"deck:`+escaped+`::*")`)
	}
	query := `"note:` + EscapeSearch(model) + `"`
	switch len(clauses) {
	case 0:
		return query
	case 1:
		return query + " " + clauses[0]
	default:
		return query + " (" + strings.Join(clauses, " OR ") + ")"
	}
}

// NoteInfo is a note as returned by notesInfo.
type NoteInfo struct {
	NoteID    NoteID                `json:"noteId"`
	ModelName string                `json:"modelName"`
	Tags      []string              `json:"tags"`
	Fields    map[string]FieldValue `json:"fields"`
}

type FieldValue struct {
	Value string `json:"value"`
	Order int    `json:"order"`
}

// FieldValues returns the raw values of all fields.
func (n NoteInfo) FieldValues() map[string]string {
	result := make(map[string]string, len(n.Fields))
	for name, field := range n.Fields {
		result[name] = field.Value
	}
	return result
}
