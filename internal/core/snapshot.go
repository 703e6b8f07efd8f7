package core

import (
	"context"
	"slices"
	"sync"

	"github.com/julien-sobczak/anksidian/internal/anki"
)

// KnownNote is a note present in Anki when the sync started (or created since).
type KnownNote struct {
	ID     anki.NoteID
	Fields map[string]string
	Tags   []string
	// Matched by a note found in files during the run
	Seen bool
}

// Text returns the field matched against the contents of pending notes.
func (n KnownNote) Text() string {
	return n.Fields[anki.FieldText]
}

// Snapshot contains the notes present in Anki.
// It is shared by all files processed concurrently.
type Snapshot struct {
	mu    sync.Mutex
	notes []*KnownNote
}

func NewSnapshot(notes ...KnownNote) *Snapshot {
	s := &Snapshot{}
	s.Add(notes...)
	return s
}

// LoadSnapshot retrieves the notes of the given type stored in the decks.
func LoadSnapshot(ctx context.Context, store NoteStore, model string, decks ...string) (*Snapshot, error) {
	infos, err := store.FindNotesInfo(ctx, anki.DecksQuery(model, decks...))
	if err != nil {
		return nil, err
	}
	s := &Snapshot{}
	for _, info := range infos {
		s.notes = append(s.notes, &KnownNote{
			ID:     info.NoteID,
			Fields: info.FieldValues(),
			Tags:   info.Tags,
		})
	}
	return s, nil
}

// Add registers new notes.
func (s *Snapshot) Add(notes ...KnownNote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, note := range notes {
		note := note
		s.notes = append(s.notes, &note)
	}
}

// Len returns the number of known notes.
func (s *Snapshot) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

// Match is the result of matching a pending note against the snapshot.
type Match struct {
	// Copy of the matched note before the match
	Note KnownNote
	// Matched using the identifier found in the file
	ByID bool
	// Another note having the same content as the one matched by ID
	Conflict *anki.NoteID
}

// Match searches the note having the given ID, or the same content when no note has this ID.
// The matched note is marked as seen.
func (s *Snapshot) Match(priorID *anki.NoteID, contents string) (Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var byID, byContent *KnownNote
	for _, note := range s.notes {
		if byID == nil && priorID != nil && note.ID == *priorID {
			byID = note
		}
		if byContent == nil && note.Text() == contents {
			byContent = note
		}
	}

	switch {
	case byID != nil:
		match := Match{Note: *byID, ByID: true}
		if byContent != nil && byContent.ID != byID.ID {
			conflict := byContent.ID
			match.Conflict = &conflict
		}
		byID.Seen = true
		return match, true
	case byContent != nil:
		match := Match{Note: *byContent}
		byContent.Seen = true
		return match, true
	}
	return Match{}, false
}

// Update replaces the content of a known note after a successful update.
func (s *Snapshot) Update(id anki.NoteID, contents string, tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, note := range s.notes {
		if note.ID == id {
			fields := make(map[string]string, len(note.Fields))
			for name, value := range note.Fields {
				fields[name] = value
			}
			fields[anki.FieldText] = contents
			note.Fields = fields
			note.Tags = slices.Clone(tags)
		}
	}
}

// MarkSeen flags notes as still present in files.
// Returns false if one of the notes is unknown.
func (s *Snapshot) MarkSeen(ids ...anki.NoteID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	allFound := true
	for _, id := range ids {
		found := false
		for _, note := range s.notes {
			if note.ID == id {
				note.Seen = true
				found = true
			}
		}
		allFound = allFound && found
	}
	return allFound
}

// Contains returns if all notes are known.
func (s *Snapshot) Contains(ids ...anki.NoteID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if !slices.ContainsFunc(s.notes, func(note *KnownNote) bool { return note.ID == id }) {
			return false
		}
	}
	return true
}

// Unseen returns the notes no longer present in files.
func (s *Snapshot) Unseen() []KnownNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []KnownNote
	for _, note := range s.notes {
		if !note.Seen {
			result = append(result, *note)
		}
	}
	return result
}

// Remove forgets deleted notes.
func (s *Snapshot) Remove(ids ...anki.NoteID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = slices.DeleteFunc(s.notes, func(note *KnownNote) bool {
		return slices.Contains(ids, note.ID)
	})
}
