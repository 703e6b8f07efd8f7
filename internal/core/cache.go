package core

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/julien-sobczak/anksidian/internal/anki"
	"github.com/julien-sobczak/anksidian/pkg/clock"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// CacheFileName is the name of the database under .anksidian/
const CacheFileName = "cache.db"

// Cache remembers the files successfully synchronized to skip them when unchanged.
type Cache struct {
	db *sql.DB
}

// CacheEntry is the state of a file after its last successful sync.
type CacheEntry struct {
	RelativePath string
	Hash         string
	Deck         string
	SyncedAt     time.Time
	NoteIDs      []anki.NoteID
}

// OpenCache opens (or creates) the database and applies migrations.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("unable to open cache: %w", err)
	}
	// Files are processed concurrently but SQLite supports a single writer
	db.SetMaxOpenConns(1)

	instance, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		db.Close()
		return nil, err
	}
	d, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error while reading migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", d, "sqlite3", instance)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error while initializing migrations: %w", err)
	}
	err = m.Up() // Create/Update table schema_migrations
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		db.Close()
		return nil, fmt.Errorf("error while running migrations: %w", err)
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Lookup returns the last state of a file.
func (c *Cache) Lookup(relativePath string) (*CacheEntry, error) {
	entry := &CacheEntry{RelativePath: relativePath}
	var syncedAt string
	err := c.db.QueryRow(`
		SELECT hash, deck, synced_at
		FROM file
		WHERE relative_path = ?`, relativePath).Scan(&entry.Hash, &entry.Deck, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry.SyncedAt = timeFromSQL(syncedAt)

	rows, err := c.db.Query(`
		SELECT note_id
		FROM file_note
		WHERE relative_path = ?
		ORDER BY note_id`, relativePath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		entry.NoteIDs = append(entry.NoteIDs, anki.NoteID(id))
	}
	return entry, rows.Err()
}

// Save records the state of a file after a successful sync.
func (c *Cache) Save(relativePath, hash, deck string, ids []anki.NoteID) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM file WHERE relative_path = ?`, relativePath); err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO file(relative_path, hash, deck, synced_at)
		VALUES (?, ?, ?, ?)`, relativePath, hash, deck, timeToSQL(clock.Now().UTC()))
	if err != nil {
		return err
	}
	for _, id := range ids {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO file_note(relative_path, note_id)
			VALUES (?, ?)`, relativePath, int64(id))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Forget removes a file.
func (c *Cache) Forget(relativePath string) error {
	_, err := c.db.Exec(`DELETE FROM file WHERE relative_path = ?`, relativePath)
	return err
}

// ForgetNotes removes deleted notes. Files referencing them will be synchronized again.
func (c *Cache) ForgetNotes(ids ...anki.NoteID) error {
	for _, id := range ids {
		_, err := c.db.Exec(`
			DELETE FROM file
			WHERE relative_path IN (SELECT relative_path FROM file_note WHERE note_id = ?)`, int64(id))
		if err != nil {
			return err
		}
	}
	return nil
}

// Paths returns all known files.
func (c *Cache) Paths() ([]string, error) {
	rows, err := c.db.Query(`SELECT relative_path FROM file ORDER BY relative_path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		result = append(result, path)
	}
	return result, rows.Err()
}
