// Package watch re-runs a callback whenever a file changes on disk.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events a single save produces.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches a single file. The parent directory is watched so that
// editors which replace the file by rename are followed.
type Watcher struct {
	path     string
	debounce time.Duration
	lastMod  time.Time
}

// New returns a Watcher for path.
func New(path string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: filepath.Clean(path), debounce: debounce}
}

// Run calls fn once the file settles after each change whose modification
// time is newer than the last one seen. It blocks until ctx is done or the
// watcher fails. Errors from fn are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if fi, err := os.Stat(w.path); err == nil {
		w.lastMod = fi.ModTime()
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			fi, err := os.Stat(w.path)
			if err != nil || !fi.ModTime().After(w.lastMod) {
				continue
			}
			w.lastMod = fi.ModTime()
			log.Printf("watch: %s changed, re-running", w.path)
			if err := fn(ctx); err != nil {
				log.Printf("watch: run failed: %v", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}
