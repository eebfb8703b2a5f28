// Package watch reports document changes under a store root.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/fsdocs/internal/checksum"
	"github.com/starford/fsdocs/internal/format"
	"github.com/starford/fsdocs/internal/models"
	"github.com/starford/fsdocs/internal/storage"
)

// Callback receives each change. It runs on the watcher goroutine.
type Callback func(models.Event)

// Run watches root recursively and calls cb for every create, update and
// delete of a supported document until ctx is cancelled. Content is read
// through store, which must address the same file system fsnotify sees.
//
// Directories created at runtime are added to the watch list. Writes that
// leave the content unchanged are not reported.
func Run(ctx context.Context, store storage.Provider, root string, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	t := &tracker{store: store, root: root, logger: logger, cb: cb, sums: make(map[string]string)}
	if err := t.addDirsRecursive(w, root); err != nil {
		return err
	}
	t.seed(root)

	logger.Info("watcher: started", slog.String("root", root), slog.Int("documents", len(t.sums)))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			t.handle(w, ev)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// tracker remembers the last seen checksum per document.
type tracker struct {
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     Callback
	sums   map[string]string
}

func (t *tracker) handle(w *fsnotify.Watcher, ev fsnotify.Event) {
	abs := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if isDir, statErr := t.store.IsDir(abs); statErr == nil && isDir {
			if addErr := t.addDirsRecursive(w, abs); addErr != nil {
				t.logger.Warn("watcher: add new dir failed",
					slog.String("path", abs),
					slog.String("error", addErr.Error()))
			} else {
				t.logger.Debug("watcher: watching new dir", slog.String("path", abs))
			}
			t.scanNewDir(abs)
			return
		}
	}

	if !tracked(abs) {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		t.observe(abs)

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A rename only reports the old name; the new one arrives as Create.
		if _, known := t.sums[abs]; !known {
			return
		}
		delete(t.sums, abs)
		t.emit(models.EventDeleted, abs)
	}
}

// observe reads abs and reports it as created or updated when its content
// differs from what was last seen.
func (t *tracker) observe(abs string) {
	text, err := t.store.ReadText(abs)
	if err != nil {
		t.logger.Warn("watcher: read failed", slog.String("path", abs), slog.String("error", err.Error()))
		return
	}
	sum := checksum.Text(text)
	prev, known := t.sums[abs]
	if known && prev == sum {
		return
	}
	t.sums[abs] = sum

	kind := models.EventCreated
	if known {
		kind = models.EventUpdated
	}
	t.emit(kind, abs)
}

func (t *tracker) emit(kind, abs string) {
	rel, err := filepath.Rel(t.root, abs)
	if err != nil {
		rel = abs
	}
	t.logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", kind))
	if t.cb != nil {
		t.cb(models.Event{Kind: kind, Path: rel, Time: time.Now()})
	}
}

// seed records the documents already present so later writes can be
// classified.
func (t *tracker) seed(root string) {
	_ = t.walk(root, func(p string, isDir bool) error {
		if isDir || !tracked(p) {
			return nil
		}
		text, err := t.store.ReadText(p)
		if err != nil {
			return nil
		}
		t.sums[p] = checksum.Text(text)
		return nil
	})
}

// scanNewDir reports documents found in a directory that appeared at runtime.
func (t *tracker) scanNewDir(dir string) {
	_ = t.walk(dir, func(p string, isDir bool) error {
		if !isDir && tracked(p) {
			t.observe(p)
		}
		return nil
	})
}

// tracked reports whether p names a document rather than a directory, a
// foreign file, or an in-flight atomic write.
func tracked(p string) bool {
	name := filepath.Base(p)
	if strings.HasPrefix(name, storage.TempPrefix) {
		return false
	}
	return format.Supported(filepath.Ext(name))
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func (t *tracker) addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return t.walk(root, func(p string, isDir bool) error {
		if isDir {
			return w.Add(p)
		}
		return nil
	})
}

// walk calls fn for dir and everything below it, depth first. Entries that
// vanish mid-walk are skipped; fn errors stop the walk.
func (t *tracker) walk(dir string, fn func(p string, isDir bool) error) error {
	if err := fn(dir, true); err != nil {
		return err
	}
	names, err := t.store.ListEntries(dir)
	if err != nil {
		return nil
	}
	for _, name := range names {
		p := filepath.Join(dir, name)
		isDir, err := t.store.IsDir(p)
		if err != nil {
			continue
		}
		if isDir {
			if err := t.walk(p, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(p, false); err != nil {
			return err
		}
	}
	return nil
}
