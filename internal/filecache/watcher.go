// File path: internal/filecache/watcher.go
package filecache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/nicodishanthj/ata_conselho/internal/common"
)

// Invalidator is any cache that can be marked stale.
type Invalidator interface {
	Path() string
	Invalidate()
}

// Watcher invalidates caches when their backing files change on disk. Parent
// directories are watched so editors that replace files by rename are seen.
type Watcher struct {
	watcher *fsnotify.Watcher
	mu      sync.RWMutex
	targets map[string][]Invalidator
	done    chan struct{}
	once    sync.Once
}

func NewWatcher() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filecache: create watcher: %w", err)
	}
	return &Watcher{watcher: w, targets: make(map[string][]Invalidator), done: make(chan struct{})}, nil
}

// Add registers cache for invalidation. Caches without a path are ignored.
func (w *Watcher) Add(cache Invalidator) error {
	path := cache.Path()
	if path == "" {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("filecache: resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	watched := false
	for existing := range w.targets {
		if filepath.Dir(existing) == dir {
			watched = true
			break
		}
	}
	if !watched {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("filecache: watch %s: %w", dir, err)
		}
	}
	w.targets[abs] = append(w.targets[abs], cache)
	return nil
}

// Run dispatches file events until ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	logger := common.Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			w.mu.RLock()
			caches := w.targets[abs]
			w.mu.RUnlock()
			for _, cache := range caches {
				cache.Invalidate()
			}
			if len(caches) > 0 {
				logger.Debugw("filecache: invalidated", "path", abs, "op", event.Op.String())
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("filecache: watcher error", "error", err)
		}
	}
}

// Close stops Run and releases the underlying watcher. It is safe to call
// more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
