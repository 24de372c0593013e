// internal/watch/watch.go
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"groot/shared/types"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Stager stages one tree-relative path.
type Stager interface {
	AddFile(path string) (shared.Entry, error)
}

// Watcher stages a set of files again whenever they are written or
// re-created. It never commits.
type Watcher struct {
	root    string
	stager  Stager
	watcher *fsnotify.Watcher
	files   map[string]bool // tree-relative, slash separated
	mu      sync.Mutex
	logger  *zap.Logger
}

// New watches the parent directory of every file. Watching directories
// rather than files keeps working across editors that save by replacing
// the file.
func New(root string, stager Stager, files []string, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		root:    root,
		stager:  stager,
		watcher: fw,
		files:   make(map[string]bool, len(files)),
		logger:  logger,
	}

	dirs := make(map[string]bool)
	for _, rel := range files {
		w.files[rel] = true

		dir := filepath.Dir(filepath.Join(root, filepath.FromSlash(rel)))
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("adding directory to watcher: %w", err)
		}
		dirs[dir] = true
	}

	logger.Info("watching files",
		zap.Int("files", len(w.files)),
		zap.Int("directories", len(dirs)))
	return w, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

// handleEvent stages the file behind event when it is one of ours and its
// content may have changed. It reports whether a file was staged.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		w.logger.Error("getting relative path", zap.Error(err))
		return false
	}
	rel = filepath.ToSlash(rel)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.files[rel] {
		return false
	}

	entry, err := w.stager.AddFile(rel)
	if err != nil {
		w.logger.Warn("restaging failed", zap.String("path", rel), zap.Error(err))
		return false
	}

	w.logger.Info("restaged file",
		zap.String("path", entry.Path),
		zap.String("digest", entry.Hash.Short()),
		zap.String("op", event.Op.String()))
	return true
}
