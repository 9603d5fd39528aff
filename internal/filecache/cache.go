// File path: internal/filecache/cache.go
package filecache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nicodishanthj/ata_conselho/internal/common"
	"github.com/nicodishanthj/ata_conselho/internal/common/telemetry"
)

// LoadFunc parses the file at path into a value.
type LoadFunc[T any] func(path string) (T, error)

type snapshot struct {
	modTime time.Time
	size    int64
	exists  bool
}

func (s snapshot) equal(other snapshot) bool {
	return s.exists == other.exists && s.size == other.size && s.modTime.Equal(other.modTime)
}

type state[T any] struct {
	value T
	snap  snapshot
}

// Cache holds the parsed form of a single side file. Readers compare the
// file's modification time and size against the published snapshot and
// reload when they differ. Concurrent reloads collapse into one load and the
// result is published atomically, so readers never observe a partial value.
type Cache[T any] struct {
	name    string
	path    string
	load    LoadFunc[T]
	current atomic.Pointer[state[T]]
	group   singleflight.Group
	dirty   atomic.Bool
}

func New[T any](name, path string, load LoadFunc[T]) *Cache[T] {
	return &Cache[T]{name: name, path: path, load: load}
}

func (c *Cache[T]) Name() string { return c.name }

func (c *Cache[T]) Path() string { return c.path }

// Get returns the cached value, reloading it when the file changed. A missing
// file yields the zero value and no error.
func (c *Cache[T]) Get() (T, error) {
	snap, err := c.stat()
	if err != nil {
		var zero T
		return zero, err
	}
	if cur := c.current.Load(); cur != nil && !c.dirty.Load() && cur.snap.equal(snap) {
		return cur.value, nil
	}
	return c.reload(snap)
}

// Reload forces a fresh load regardless of the snapshot.
func (c *Cache[T]) Reload() (T, error) {
	c.dirty.Store(true)
	return c.Get()
}

// Invalidate marks the cache stale; the next Get reloads.
func (c *Cache[T]) Invalidate() {
	c.dirty.Store(true)
}

func (c *Cache[T]) stat() (snapshot, error) {
	if c.path == "" {
		return snapshot{}, nil
	}
	info, err := os.Stat(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return snapshot{}, nil
		}
		return snapshot{}, fmt.Errorf("filecache: stat %s: %w", c.path, err)
	}
	return snapshot{modTime: info.ModTime(), size: info.Size(), exists: true}, nil
}

func (c *Cache[T]) reload(snap snapshot) (T, error) {
	result, err, _ := c.group.Do(c.name, func() (interface{}, error) {
		c.dirty.Store(false)
		next := &state[T]{snap: snap}
		if snap.exists {
			value, err := c.load(c.path)
			if err != nil {
				c.dirty.Store(true)
				return nil, fmt.Errorf("filecache: load %s: %w", c.name, err)
			}
			next.value = value
		}
		c.current.Store(next)
		telemetry.RecordCacheReload(c.name)
		common.Logger().Debugw("filecache: reloaded", "cache", c.name, "path", c.path, "exists", snap.exists)
		return next, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(*state[T]).value, nil
}
