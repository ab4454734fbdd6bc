// Package filewatch notifies when the content of a single file changes.
//
// The parent directory is watched rather than the file itself: atomic
// writers (temp file + rename) replace the inode, which a watch on the file
// would lose. Bursts of events are debounced and the file is re-hashed, so
// the callback only fires when the bytes actually differ.
package filewatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before the file
// is re-hashed.
const DefaultDebounce = 100 * time.Millisecond

// Sum returns the content checksum used to detect changes.
func Sum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// SumFile hashes the file at path. A missing file hashes to 0.
func SumFile(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return Sum(data), nil
}

type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(sum uint64)

	mu      sync.Mutex
	lastSum uint64
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New creates a Watcher for path. onChange is called from the watcher
// goroutine with the new checksum.
func New(path string, onChange func(sum uint64), opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		onChange: onChange,
	}
	for _, opt := range opts {
		opt(w)
	}
	sum, err := SumFile(abs)
	if err != nil {
		return nil, err
	}
	w.lastSum = sum
	return w, nil
}

// Acknowledge records sum as already seen, so a write made by the owner of
// the watcher does not come back as a change notification.
func (w *Watcher) Acknowledge(sum uint64) {
	w.mu.Lock()
	w.lastSum = sum
	w.mu.Unlock()
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Base(w.path)
	slog.Debug("watching file", "path", w.path)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.check)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("fsnotify error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) check() {
	sum, err := SumFile(w.path)
	if err != nil {
		slog.Warn("failed to hash watched file", "path", w.path, "error", err)
		return
	}
	w.mu.Lock()
	changed := sum != w.lastSum
	w.lastSum = sum
	w.mu.Unlock()
	if changed {
		w.onChange(sum)
	}
}
