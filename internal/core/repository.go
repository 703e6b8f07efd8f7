package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/julien-sobczak/anksidian/internal/anki"
	"github.com/julien-sobczak/anksidian/internal/helpers"
	"github.com/julien-sobczak/anksidian/internal/markdown"
	"github.com/julien-sobczak/anksidian/internal/medias"
	"github.com/julien-sobczak/anksidian/pkg/resync"
	"github.com/natefinch/atomic"
	godiffpatch "github.com/sourcegraph/go-diff-patch"
	"golang.org/x/sync/errgroup"
)

// ErrConcurrentEdit is returned when a file is modified while being synchronized.
var ErrConcurrentEdit = errors.New("file modified during sync")

var (
	// Lazy-load and ensure a single instance
	repositoryOnce      resync.Once
	repositorySingleton *Repository
)

// Repository is a vault of Markdown files synchronized with Anki.
type Repository struct {
	Path   string
	Config *Config
	Store  NoteStore
	// Optional
	Cache *Cache

	Maths  MathConverter
	Images medias.Converter
}

func CurrentRepository() *Repository {
	repositoryOnce.Do(func() {
		config := CurrentConfig()
		repositorySingleton = NewRepository(config, config.AnkiClient())

		cache, err := OpenCache(filepath.Join(config.RootDirectory, ConfigDir, CacheFileName))
		if err != nil {
			CurrentLogger().Warnf("Cache disabled: %v", err)
		} else {
			repositorySingleton.Cache = cache
		}
	})
	return repositorySingleton
}

func NewRepository(config *Config, store NoteStore) *Repository {
	return &Repository{
		Path:   config.RootDirectory,
		Config: config,
		Store:  store,
		Maths:  config.MathConverter(),
		Images: config.ImageConverter(),
	}
}

func (r *Repository) Close() error {
	var errs []error
	if r.Cache != nil {
		errs = append(errs, r.Cache.Close())
	}
	errs = append(errs, r.Config.Cleanup())
	return errors.Join(errs...)
}

// GetFileRelativePath converts an absolute path of a file to a relative path from the repository.
func (r *Repository) GetFileRelativePath(fileAbsolutePath string) (string, error) {
	return filepath.Rel(r.Path, fileAbsolutePath)
}

// GetAbsolutePath converts a relative path from the repository to an absolute path on disk.
func (r *Repository) GetAbsolutePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.Path, path)
}

// Walk lists the Markdown files in lexical order, ignoring files excluded by .ankiignore.
// Paths are relative to the repository and default to the whole vault.
func (r *Repository) Walk(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{r.Path}
	}

	var matchedFiles []string
	for _, path := range paths {
		err := filepath.WalkDir(r.GetAbsolutePath(path), func(path string, info fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			dirname := filepath.Base(path)
			if info.IsDir() && (dirname == ConfigDir || dirname == ".git") {
				return fs.SkipDir
			}

			relativePath, err := r.GetFileRelativePath(path)
			if err != nil {
				return err
			}
			if relativePath == "." {
				return nil
			}
			if r.Config.IgnoreFile.MustExcludeFile(relativePath, info.IsDir()) {
				if info.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if info.IsDir() {
				return nil
			}

			// We look for only specific extension
			if !r.Config.ConfigFile.SupportExtension(relativePath) {
				return nil
			}

			// Ignore certain file modes like symlinks
			fileInfo, err := os.Lstat(path) // NB: os.Stat follows symlinks
			if err != nil || !fileInfo.Mode().IsRegular() {
				return nil
			}

			matchedFiles = append(matchedFiles, relativePath)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	slices.Sort(matchedFiles)
	return slices.Compact(matchedFiles), nil
}

// CheckConnection fails when AnkiConnect is unreachable or speaks another protocol version.
func (r *Repository) CheckConnection(ctx context.Context) error {
	versioned, ok := r.Store.(interface {
		Version(ctx context.Context) (int, error)
	})
	if !ok {
		return nil
	}
	version, err := versioned.Version(ctx)
	if err != nil {
		return fmt.Errorf("AnkiConnect unreachable (is Anki running?): %w", err)
	}
	if version < anki.ProtocolVersion {
		return fmt.Errorf("AnkiConnect version %d not supported (expected %d+)", version, anki.ProtocolVersion)
	}
	return nil
}

/* Sync */

type SyncOptions struct {
	// Restrict the sync to these paths. Unseen notes are only reported for full syncs without failed files.
	Paths []string
	// Compute changes without touching Anki, files, or the cache
	DryRun bool
	// Ignore the cache
	Force bool
	// Maximum number of files processed concurrently (default to config)
	Parallel int
	// Called after each file
	OnFileDone func(report *FileReport)
}

// FileReport summarizes the sync of a file.
type FileReport struct {
	RelativePath string
	Deck         string
	Created      int
	Updated      int
	Unchanged    int
	Failed       int
	// Unchanged since the last sync
	Skipped bool
	// Content before and after the identifiers were spliced
	Before string
	After  string
	Err    error
}

// Changed returns if the file was (or would be in dry-run mode) rewritten.
func (f *FileReport) Changed() bool {
	return f.Before != f.After
}

// Diff returns the patch of the file.
func (f *FileReport) Diff() string {
	if !f.Changed() {
		return ""
	}
	return godiffpatch.GeneratePatch(f.RelativePath, f.Before, f.After)
}

// SyncReport summarizes a sync.
type SyncReport struct {
	Files []*FileReport
	// Notes not found in any file
	Unseen []KnownNote
	// Mutations recorded in dry-run mode
	DryRun *DryRunStore
}

// CountFailedFiles returns the number of files that could not be processed.
func (s *SyncReport) CountFailedFiles() int {
	count := 0
	for _, file := range s.Files {
		if file.Err != nil {
			count++
		}
	}
	return count
}

// Totals returns the number of notes per status.
func (s *SyncReport) Totals() (created, updated, unchanged, failed int) {
	for _, file := range s.Files {
		created += file.Created
		updated += file.Updated
		unchanged += file.Unchanged
		failed += file.Failed
	}
	return
}

// Sync synchronizes the files with Anki.
func (r *Repository) Sync(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	store := r.Store
	report := &SyncReport{}
	if opts.DryRun {
		report.DryRun = NewDryRunStore(store)
		store = report.DryRun
	}

	snapshot, err := LoadSnapshot(ctx, store, r.Config.ConfigFile.Model(), r.Config.ConfigFile.DeckNames()...)
	if err != nil {
		return nil, fmt.Errorf("unable to load notes: %w", err)
	}
	CurrentLogger().Infof("Found %d notes in Anki", snapshot.Len())
	reconciler := NewReconciler(store, snapshot, r.Config.ConfigFile.Model())

	paths, err := r.Walk(opts.Paths...)
	if err != nil {
		return nil, err
	}

	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = r.Config.ConfigFile.Core.Parallel
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, relativePath := range paths {
		g.Go(func() error {
			fileReport := r.syncFile(gctx, reconciler, relativePath, opts)
			if fileReport.Err != nil {
				CurrentLogger().Error("File not synchronized", "file", relativePath, "err", fileReport.Err)
			}
			mu.Lock()
			report.Files = append(report.Files, fileReport)
			if opts.OnFileDone != nil {
				opts.OnFileDone(fileReport)
			}
			mu.Unlock()
			// A failing file must not stop the others
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.SortFunc(report.Files, func(a, b *FileReport) int {
		return strings.Compare(a.RelativePath, b.RelativePath)
	})

	if len(opts.Paths) == 0 {
		if failed := report.CountFailedFiles(); failed > 0 {
			// Notes of failed files were not seen but may still be present
			CurrentLogger().Warnf("%d file(s) not synchronized, notes missing from files are not reported", failed)
		} else {
			report.Unseen = snapshot.Unseen()
		}
		if err := r.forgetDeletedFiles(paths, opts); err != nil {
			CurrentLogger().Warnf("Unable to clean cache: %v", err)
		}
	}
	return report, nil
}

func (r *Repository) syncFile(ctx context.Context, reconciler *Reconciler, relativePath string, opts SyncOptions) *FileReport {
	report := &FileReport{
		RelativePath: relativePath,
	}
	absolutePath := r.GetAbsolutePath(relativePath)

	content, err := os.ReadFile(absolutePath)
	if err != nil {
		report.Err = &FileError{RelativePath: relativePath, Op: "read", Err: err}
		return report
	}
	report.Before = string(content)
	report.After = report.Before

	deck, err := r.Config.ConfigFile.DeckFor(relativePath)
	if err != nil {
		report.Err = err
		return report
	}
	report.Deck = deck

	hash := helpers.Checksum(content)
	if r.useCache(opts) {
		entry, err := r.Cache.Lookup(relativePath)
		if err != nil {
			CurrentLogger().Warnf("Unable to read cache for %s: %v", relativePath, err)
		} else if entry != nil && entry.Hash == hash && entry.Deck == deck && reconciler.Snapshot.Contains(entry.NoteIDs...) {
			CurrentLogger().Debugf("Skipping unchanged file %s", relativePath)
			reconciler.Snapshot.MarkSeen(entry.NoteIDs...)
			report.Skipped = true
			report.Unchanged = len(entry.NoteIDs)
			return report
		}
	}

	doc, err := markdown.Parse(report.Before)
	if err != nil {
		report.Err = &FileError{RelativePath: relativePath, Op: "parse", Err: err}
		return report
	}

	renderer := &Renderer{
		RootDirectory: r.Path,
		NoteDirectory: filepath.Dir(absolutePath),
		Maths:         r.Maths,
		Images:        r.Images,
		TempDir:       r.Config.TempDir(),
	}
	collected := Collect(ctx, doc, relativePath, renderer)
	reconciler.Snapshot.MarkSeen(collected.Unrendered...)
	report.Failed += len(collected.Errors)

	outcomes := reconciler.Reconcile(ctx, relativePath, deck, collected.Tags, collected.Notes)
	var ids []anki.NoteID
	for _, outcome := range outcomes {
		switch outcome.Status {
		case StatusCreated:
			report.Created++
		case StatusUpdated:
			report.Updated++
		case StatusUnchanged:
			report.Unchanged++
		default:
			report.Failed++
		}
		if outcome.Status != StatusFailed {
			ids = append(ids, outcome.FinalID)
		}
	}
	report.After = Splice(report.Before, outcomes)

	if opts.DryRun {
		return report
	}

	if report.Changed() {
		if err := r.rewrite(absolutePath, content, report.After); err != nil {
			report.Err = &FileError{RelativePath: relativePath, Op: "write", Err: err}
			return report
		}
	}

	if r.Cache != nil {
		var err error
		if report.Failed == 0 {
			err = r.Cache.Save(relativePath, helpers.ChecksumString(report.After), deck, ids)
		} else {
			// Retry next time
			err = r.Cache.Forget(relativePath)
		}
		if err != nil {
			CurrentLogger().Warnf("Unable to update cache for %s: %v", relativePath, err)
		}
	}
	return report
}

func (r *Repository) useCache(opts SyncOptions) bool {
	return r.Cache != nil && !opts.Force && !opts.DryRun
}

// rewrite replaces the file content unless the file was edited since it was read.
func (r *Repository) rewrite(path string, before []byte, after string) error {
	current, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !bytes.Equal(current, before) {
		return ErrConcurrentEdit
	}
	return atomic.WriteFile(path, strings.NewReader(after))
}

func (r *Repository) forgetDeletedFiles(paths []string, opts SyncOptions) error {
	if r.Cache == nil || opts.DryRun {
		return nil
	}
	cachedPaths, err := r.Cache.Paths()
	if err != nil {
		return err
	}
	for _, cachedPath := range cachedPaths {
		if _, found := slices.BinarySearch(paths, cachedPath); !found {
			if err := r.Cache.Forget(cachedPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteNotes deletes notes no longer present in files.
func (r *Repository) DeleteNotes(ctx context.Context, notes []KnownNote) error {
	var ids []anki.NoteID
	for _, note := range notes {
		ids = append(ids, note.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := r.Store.DeleteNotes(ctx, ids); err != nil {
		return err
	}
	if r.Cache != nil {
		return r.Cache.ForgetNotes(ids...)
	}
	return nil
}

// Inspect returns the notes of a file without contacting Anki.
func (r *Repository) Inspect(ctx context.Context, relativePath string) (*CollectedFile, error) {
	absolutePath := r.GetAbsolutePath(relativePath)
	relativePath, err := r.GetFileRelativePath(absolutePath)
	if err != nil {
		return nil, err
	}
	doc, err := markdown.ParseFile(absolutePath)
	if err != nil {
		return nil, &FileError{RelativePath: relativePath, Op: "parse", Err: err}
	}
	renderer := &Renderer{
		RootDirectory: r.Path,
		NoteDirectory: filepath.Dir(absolutePath),
		Maths:         r.Maths,
		Images:        r.Images,
		TempDir:       r.Config.TempDir(),
	}
	return Collect(ctx, doc, relativePath, renderer), nil
}
