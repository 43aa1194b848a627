// Package watcher re-runs work when a topology file changes on disk.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ipnetlab/internal/log"
)

// DefaultDebounce is how long a file must stay quiet before onChange runs
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a file for changes
type Watcher struct {
	path     string
	onChange func(ctx context.Context, path string)
	debounce time.Duration
}

// New creates a new file watcher. onChange is called with the watched path
// once the file settles after a write, create or rename.
func New(path string, onChange func(ctx context.Context, path string)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch starts watching the file for changes.
// It blocks until the context is cancelled or an error occurs, and waits for
// a running onChange to return before it does.
func (w *Watcher) Watch(ctx context.Context) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory containing the file
	// This handles cases where the file is replaced (e.g., by editors)
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	ctx = log.WithModule(ctx, "watcher")
	logger := log.G(ctx).WithField("path", abs)
	logger.Info("watching for changes")

	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		debounceTimer *time.Timer
	)
	defer wg.Wait()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil && debounceTimer.Stop() {
				wg.Done()
			}
			wg.Add(1)
			debounceTimer = time.AfterFunc(w.debounce, func() {
				defer wg.Done()
				if ctx.Err() != nil {
					return
				}
				// one change at a time even if a run outlasts the debounce
				mu.Lock()
				defer mu.Unlock()
				logger.Info("file changed")
				w.onChange(ctx, abs)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("watcher error")

		case <-ctx.Done():
			if debounceTimer != nil && debounceTimer.Stop() {
				wg.Done()
			}
			return ctx.Err()
		}
	}
}
