package core

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/julien-sobczak/anksidian/internal/anki"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	now := FreezeAt(t, time.Date(2023, time.January, 1, 12, 30, 0, 0, time.UTC))

	path := filepath.Join(t.TempDir(), CacheFileName)
	cache, err := OpenCache(path)
	require.NoError(t, err)

	entry, err := cache.Lookup("go.md")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, cache.Save("go.md", "abc", "Go", []anki.NoteID{1700000000001, 1700000000000}))
	require.NoError(t, cache.Save("rust.md", "def", "Rust", nil))

	entry, err = cache.Lookup("go.md")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "abc", entry.Hash)
	assert.Equal(t, "Go", entry.Deck)
	assert.Equal(t, now, entry.SyncedAt)
	assert.Equal(t, []anki.NoteID{1700000000000, 1700000000001}, entry.NoteIDs)

	// Save replaces previous notes
	require.NoError(t, cache.Save("go.md", "abd", "Go", []anki.NoteID{1700000000002}))
	entry, err = cache.Lookup("go.md")
	require.NoError(t, err)
	assert.Equal(t, []anki.NoteID{1700000000002}, entry.NoteIDs)

	paths, err := cache.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"go.md", "rust.md"}, paths)

	require.NoError(t, cache.ForgetNotes(1700000000002))
	require.NoError(t, cache.Forget("rust.md"))
	paths, err = cache.Paths()
	require.NoError(t, err)
	assert.Empty(t, paths)
	require.NoError(t, cache.Close())

	// Migrations are applied once
	cache, err = OpenCache(path)
	require.NoError(t, err)
	require.NoError(t, cache.Close())
}
