package anki

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
)

// FirstFakeNoteID is the ID of the first note created by a FakeAnki.
const FirstFakeNoteID NoteID = 1700000000000

// FakeAnki is an in-memory AnkiConnect server.
type FakeAnki struct {
	Server *httptest.Server

	mu       sync.Mutex
	nextID   NoteID
	decks    []string
	notes    map[NoteID]*Note
	order    []NoteID
	actions  []string
	failures map[string]string
}

// NewFakeAnki starts a fake server stopped at the end of the test.
func NewFakeAnki(t testing.TB) *FakeAnki {
	f := &FakeAnki{
		nextID:   FirstFakeNoteID,
		notes:    make(map[NoteID]*Note),
		failures: make(map[string]string),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// Client returns a client targeting the fake server without retries.
func (f *FakeAnki) Client(opts ...ClientOption) *Client {
	return NewClient(append([]ClientOption{WithURL(f.Server.URL), WithRetryPolicy(NoRetry())}, opts...)...)
}

// Seed registers an existing note and returns its ID.
func (f *FakeAnki) Seed(deck, text string, tags ...string) NoteID {
	f.mu.Lock()
	defer f.mu.Unlock()
	note := NewClozeNote(deck, ModelCloze, text, tags, nil)
	return f.insert(&note)
}

// Fail makes all future calls to the action return the given error message.
func (f *FakeAnki) Fail(action, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[action] = message
}

// Actions returns the actions received so far.
func (f *FakeAnki) Actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.actions)
}

// CountActions returns how many times an action was received.
func (f *FakeAnki) CountActions(action string) int {
	count := 0
	for _, a := range f.Actions() {
		if a == action {
			count++
		}
	}
	return count
}

// Note returns a stored note.
func (f *FakeAnki) Note(id NoteID) (Note, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[id]
	if !ok {
		return Note{}, false
	}
	return *note, true
}

// NoteIDs returns the IDs of stored notes in creation order.
func (f *FakeAnki) NoteIDs() []NoteID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []NoteID
	for _, id := range f.order {
		if _, ok := f.notes[id]; ok {
			result = append(result, id)
		}
	}
	return result
}

// Decks returns the created decks.
func (f *FakeAnki) Decks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.decks)
}

func (f *FakeAnki) insert(note *Note) NoteID {
	id := f.nextID
	f.nextID++
	f.notes[id] = note
	f.order = append(f.order, id)
	return id
}

type fakeRequest struct {
	Action  string          `json:"action"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

func (f *FakeAnki) serve(w http.ResponseWriter, r *http.Request) {
	var req fakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.actions = append(f.actions, req.Action)
	failure, failed := f.failures[req.Action]
	var result any
	var err error
	if !failed {
		result, err = f.dispatch(req.Action, req.Params)
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case failed:
		_ = json.NewEncoder(w).Encode(map[string]any{"result": nil, "error": failure})
	case err != nil:
		_ = json.NewEncoder(w).Encode(map[string]any{"result": nil, "error": err.Error()})
	default:
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "error": nil})
	}
}

func (f *FakeAnki) dispatch(action string, raw json.RawMessage) (any, error) {
	switch action {
	case "version":
		return ProtocolVersion, nil

	case "createDeck":
		var params struct{ Deck string }
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, err
		}
		index := slices.Index(f.decks, params.Deck)
		if index < 0 {
			f.decks = append(f.decks, params.Deck)
			index = len(f.decks) - 1
		}
		return index + 1, nil

	case "addNote":
		var params struct{ Note Note }
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, err
		}
		for _, id := range f.order {
			existing, ok := f.notes[id]
			if ok && existing.DeckName == params.Note.DeckName && existing.Fields[FieldText] == params.Note.Fields[FieldText] {
				return nil, errors.New(duplicateMessage)
			}
		}
		note := params.Note
		attachPictures(&note)
		return f.insert(&note), nil

	case "updateNote":
		var params struct {
			Note struct {
				ID      NoteID            `json:"id"`
				Fields  map[string]string `json:"fields"`
				Tags    []string          `json:"tags"`
				Picture []Picture         `json:"picture"`
			}
		}
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, err
		}
		note, ok := f.notes[params.Note.ID]
		if !ok {
			return nil, fmt.Errorf("Note was not found: %d", params.Note.ID)
		}
		for name, value := range params.Note.Fields {
			note.Fields[name] = value
		}
		note.Tags = params.Note.Tags
		note.Picture = params.Note.Picture
		attachPictures(note)
		return nil, nil

	case "deleteNotes":
		var params struct{ Notes []NoteID }
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, err
		}
		for _, id := range params.Notes {
			delete(f.notes, id)
		}
		return nil, nil

	case "findNotes":
		var params struct{ Query string }
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, err
		}
		ids := []NoteID{}
		for _, id := range f.order {
			if note, ok := f.notes[id]; ok && f.matches(note, params.Query) {
				ids = append(ids, id)
			}
		}
		return ids, nil

	case "notesInfo":
		var params struct{ Notes []NoteID }
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, err
		}
		infos := []NoteInfo{}
		for _, id := range params.Notes {
			note, ok := f.notes[id]
			if !ok {
				continue
			}
			info := NoteInfo{
				NoteID:    id,
				ModelName: note.ModelName,
				Tags:      note.Tags,
				Fields:    make(map[string]FieldValue),
			}
			info.Fields[FieldText] = FieldValue{Value: note.Fields[FieldText], Order: 0}
			info.Fields[FieldBackExtra] = FieldValue{Value: note.Fields[FieldBackExtra], Order: 1}
			infos = append(infos, info)
		}
		return infos, nil
	}
	return nil, fmt.Errorf("unsupported action %q", action)
}

// attachPictures appends pictures to fields like AnkiConnect.
func attachPictures(note *Note) {
	for _, picture := range note.Picture {
		for _, field := range picture.Fields {
			note.Fields[field] += `<img src="` + picture.Filename + `">`
		}
	}
}

// matches supports the queries generated by this package.
func (f *FakeAnki) matches(note *Note, query string) bool {
	if query == note.DuplicateQuery() {
		return true
	}
	if !strings.HasPrefix(query, DecksQuery(note.ModelName)) {
		return false
	}
	return strings.Contains(query, `("deck:`+EscapeSearch(note.DeckName)+`" `)
}
