package core

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/julien-sobczak/anksidian/internal/anki"
	"github.com/julien-sobczak/anksidian/internal/markdown"
	"github.com/julien-sobczak/anksidian/pkg/text"
)

// NoteStatus is the outcome of the reconciliation of a pending note.
type NoteStatus int

const (
	StatusFailed NoteStatus = iota
	StatusCreated
	StatusUpdated
	// Matched note already up-to-date
	StatusUnchanged
)

func (s NoteStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusUpdated:
		return "updated"
	case StatusUnchanged:
		return "unchanged"
	}
	return "failed"
}

// Outcome is the result of the reconciliation of a pending note.
type Outcome struct {
	Note    *PendingNote
	Status  NoteStatus
	FinalID anki.NoteID
	Err     error
}

// Reconciler matches pending notes against the snapshot and applies the changes to the store.
type Reconciler struct {
	Store    NoteStore
	Snapshot *Snapshot
	Model    string

	decksMu sync.Mutex
	decks   map[string]error
}

func NewReconciler(store NoteStore, snapshot *Snapshot, model string) *Reconciler {
	if model == "" {
		model = anki.ModelCloze
	}
	return &Reconciler{
		Store:    store,
		Snapshot: snapshot,
		Model:    model,
		decks:    make(map[string]error),
	}
}

// Reconcile creates or updates the notes of a file, in order.
// Store failures are reported in outcomes and never interrupt the processing of the following notes.
func (r *Reconciler) Reconcile(ctx context.Context, relativePath, deck string, tags []string, notes []*PendingNote) []Outcome {
	outcomes := make([]Outcome, 0, len(notes))
	for _, note := range notes {
		outcome := r.reconcileNote(ctx, deck, tags, note)
		if outcome.Err != nil {
			CurrentLogger().Warnw("Note skipped",
				"file", relativePath,
				"note", text.Excerpt(note.Contents, 40),
				"err", outcome.Err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (r *Reconciler) reconcileNote(ctx context.Context, deck string, tags []string, note *PendingNote) Outcome {
	outcome := Outcome{Note: note}

	match, ok := r.Snapshot.Match(note.PriorID, note.Contents)
	if ok {
		if match.Conflict != nil {
			CurrentLogger().Warnw("Note content also matches another note",
				"id", match.Note.ID,
				"other", *match.Conflict,
				"note", text.Excerpt(note.Contents, 40))
		}
		outcome.FinalID = match.Note.ID
		if match.Note.Text() == note.Contents && sameTags(match.Note.Tags, tags) && hasPictures(match.Note, note.Pictures) {
			outcome.Status = StatusUnchanged
			return outcome
		}
		fields := map[string]string{
			anki.FieldText:      note.Contents,
			anki.FieldBackExtra: "",
		}
		if err := r.Store.UpdateNote(ctx, match.Note.ID, fields, tags, note.Pictures); err != nil {
			outcome.Status = StatusFailed
			outcome.Err = err
			return outcome
		}
		r.Snapshot.Update(match.Note.ID, note.Contents, tags)
		CurrentLogger().Debugf("Updated note %d", match.Note.ID)
		outcome.Status = StatusUpdated
		return outcome
	}

	if err := r.ensureDeck(ctx, deck); err != nil {
		outcome.Err = err
		return outcome
	}
	id, err := r.Store.AddNote(ctx, anki.NewClozeNote(deck, r.Model, note.Contents, tags, note.Pictures))
	if err != nil {
		outcome.Err = err
		return outcome
	}
	// Identical notes found later must reuse this one
	r.Snapshot.Add(KnownNote{
		ID: id,
		Fields: map[string]string{
			anki.FieldText:      note.Contents,
			anki.FieldBackExtra: "",
		},
		Tags: slices.Clone(tags),
		Seen: true,
	})
	CurrentLogger().Debugf("Created note %d", id)
	outcome.Status = StatusCreated
	outcome.FinalID = id
	return outcome
}

// ensureDeck creates the deck before the first note is added to it.
func (r *Reconciler) ensureDeck(ctx context.Context, deck string) error {
	r.decksMu.Lock()
	defer r.decksMu.Unlock()
	if err, ok := r.decks[deck]; ok && err == nil {
		return nil
	}
	_, err := r.Store.CreateDeck(ctx, deck)
	r.decks[deck] = err
	return err
}

// hasPictures returns if the pictures were already attached to the note.
func hasPictures(note KnownNote, pictures []anki.Picture) bool {
	for _, picture := range pictures {
		for _, field := range picture.Fields {
			if !strings.Contains(note.Fields[field], `src="`+picture.Filename+`"`) {
				return false
			}
		}
	}
	return true
}

func sameTags(a, b []string) bool {
	normalize := func(tags []string) []string {
		var result []string
		for _, tag := range tags {
			result = append(result, strings.ToLower(tag))
		}
		slices.Sort(result)
		return slices.Compact(result)
	}
	return slices.Equal(normalize(a), normalize(b))
}

// Splice inserts or updates the identifier comments in the source.
// Text outside identifier comments is preserved byte for byte.
func Splice(source string, outcomes []Outcome) string {
	sorted := slices.Clone(outcomes)
	slices.SortStableFunc(sorted, func(a, b Outcome) int {
		return a.Note.SourceOffset - b.Note.SourceOffset
	})

	var sb strings.Builder
	sb.Grow(len(source) + len(outcomes)*len("\n<!--NoteID:0000000000000-->"))
	cursor := 0
	for _, outcome := range sorted {
		if outcome.Status == StatusFailed {
			continue
		}
		offset := min(max(outcome.Note.SourceOffset, cursor), len(source))
		sb.WriteString(source[cursor:offset])
		cursor = offset

		prior := outcome.Note.PriorID
		switch {
		case prior == nil:
			sb.WriteString("\n")
			sb.WriteString(markdown.FormatNoteIDComment(uint64(outcome.FinalID)))
		case *prior != outcome.FinalID:
			written := sb.String()
			digits := prior.String()
			if i := strings.LastIndex(written, digits); i >= 0 {
				sb.Reset()
				sb.WriteString(written[:i])
				sb.WriteString(strconv.FormatUint(uint64(outcome.FinalID), 10))
				sb.WriteString(written[i+len(digits):])
			}
		}
	}
	sb.WriteString(source[cursor:])
	return sb.String()
}
