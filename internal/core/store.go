package core

import (
	"context"
	"sync"

	"github.com/julien-sobczak/anksidian/internal/anki"
	"github.com/julien-sobczak/anksidian/pkg/clock"
)

// NoteStore is the subset of AnkiConnect used during a sync.
type NoteStore interface {
	CreateDeck(ctx context.Context, deck string) (int64, error)
	AddNote(ctx context.Context, note anki.Note) (anki.NoteID, error)
	UpdateNote(ctx context.Context, id anki.NoteID, fields map[string]string, tags []string, pictures []anki.Picture) error
	DeleteNotes(ctx context.Context, ids []anki.NoteID) error
	FindNotesInfo(ctx context.Context, query string) ([]anki.NoteInfo, error)
}

// DryRunStore reads from a store but only records mutations.
type DryRunStore struct {
	Store NoteStore

	mu      sync.Mutex
	nextID  anki.NoteID
	Added   []anki.Note
	Updated []anki.NoteID
	Deleted []anki.NoteID
}

func NewDryRunStore(store NoteStore) *DryRunStore {
	return &DryRunStore{
		Store: store,
		// Look like real identifiers
		nextID: anki.NoteID(clock.Now().UnixMilli()),
	}
}

func (s *DryRunStore) CreateDeck(ctx context.Context, deck string) (int64, error) {
	return 0, nil
}

func (s *DryRunStore) AddNote(ctx context.Context, note anki.Note) (anki.NoteID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Added = append(s.Added, note)
	id := s.nextID
	s.nextID++
	return id, nil
}

func (s *DryRunStore) UpdateNote(ctx context.Context, id anki.NoteID, fields map[string]string, tags []string, pictures []anki.Picture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Updated = append(s.Updated, id)
	return nil
}

func (s *DryRunStore) DeleteNotes(ctx context.Context, ids []anki.NoteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, ids...)
	return nil
}

func (s *DryRunStore) FindNotesInfo(ctx context.Context, query string) ([]anki.NoteInfo, error) {
	return s.Store.FindNotesInfo(ctx, query)
}
