package core

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the delay without events before changed files are reported.
const DefaultDebounce = 500 * time.Millisecond

// Watch reports the Markdown files created or modified until the context is cancelled.
// Events are grouped: onChange receives the relative paths once no event occurred during debounce.
func (r *Repository) Watch(ctx context.Context, debounce time.Duration, onChange func(paths []string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := r.addDirsRecursive(w, r.Path); err != nil {
		return err
	}
	CurrentLogger().Infof("Watching %s", r.Path)

	var timer *time.Timer
	var timerCh <-chan time.Time
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-timerCh:
			timerCh = nil
			var paths []string
			for path := range pending {
				// Removed or renamed since
				if info, err := os.Lstat(r.GetAbsolutePath(path)); err == nil && info.Mode().IsRegular() {
					paths = append(paths, path)
				}
			}
			clear(pending)
			if len(paths) > 0 {
				slices.Sort(paths)
				onChange(paths)
			}

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					if err := r.addDirsRecursive(w, event.Name); err != nil {
						CurrentLogger().Warnw("Directory not watched", "path", event.Name, "err", err)
					}
				}
				continue
			}

			relativePath, ok := r.watchedFile(event.Name)
			if !ok {
				continue
			}
			CurrentLogger().Debugf("Change detected in %s", relativePath)
			pending[relativePath] = true
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerCh = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			CurrentLogger().Warnw("Watcher error", "err", err)
		}
	}
}

// watchedFile returns the relative path of a file that must be synchronized.
func (r *Repository) watchedFile(path string) (string, bool) {
	relativePath, err := r.GetFileRelativePath(path)
	if err != nil {
		return "", false
	}
	if !r.Config.ConfigFile.SupportExtension(relativePath) {
		return "", false
	}
	if r.Config.IgnoreFile.MustExcludeFile(relativePath, false) {
		return "", false
	}
	// Inside an ignored directory
	for dir := filepath.Dir(relativePath); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		name := filepath.Base(dir)
		if name == ConfigDir || name == ".git" || r.Config.IgnoreFile.MustExcludeFile(dir, true) {
			return "", false
		}
	}
	return relativePath, true
}

func (r *Repository) addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != r.Path && (name == ConfigDir || name == ".git") {
			return fs.SkipDir
		}
		if relativePath, err := r.GetFileRelativePath(path); err == nil && relativePath != "." {
			if r.Config.IgnoreFile.MustExcludeFile(relativePath, true) {
				return fs.SkipDir
			}
		}
		return w.Add(path)
	})
}
