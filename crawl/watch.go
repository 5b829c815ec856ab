package crawl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchOptions tunes a Watcher.
type WatchOptions struct {
	// Debounce is the quiet period after the last file event before the
	// pending paths are re-indexed. A file being copied fires many write
	// events; only the settled file is decoded. Default: 500ms.
	Debounce time.Duration
	// Logger overrides the indexer's logger.
	Logger *slog.Logger
}

func (o *WatchOptions) defaults(ix *Indexer) {
	if o.Debounce <= 0 {
		o.Debounce = 500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = ix.logger
	}
}

// Watcher keeps the index in sync with directory trees using filesystem
// notifications. New subdirectories are watched as they appear.
type Watcher struct {
	ix    *Indexer
	roots []string
	opts  WatchOptions
	ready chan struct{}

	events  atomic.Int64
	flushes atomic.Int64
	indexed atomic.Int64
	removed atomic.Int64
	errors  atomic.Int64
}

// WatchStats are point-in-time counters.
type WatchStats struct {
	Events  int64 `json:"events"`
	Flushes int64 `json:"flushes"`
	Indexed int64 `json:"indexed"`
	Removed int64 `json:"removed"`
	Errors  int64 `json:"errors"`
}

// NewWatcher creates a Watcher over roots. Call Run to start it.
func NewWatcher(ix *Indexer, roots []string, opts WatchOptions) *Watcher {
	opts.defaults(ix)
	abs := make([]string, len(roots))
	for i, r := range roots {
		// Index paths are absolute, as in Walk.
		if a, err := filepath.Abs(r); err == nil {
			r = a
		}
		abs[i] = r
	}
	return &Watcher{ix: ix, roots: abs, opts: opts, ready: make(chan struct{})}
}

// Ready is closed once every root is being watched.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Stats returns the current counters.
func (w *Watcher) Stats() WatchStats {
	return WatchStats{
		Events:  w.events.Load(),
		Flushes: w.flushes.Load(),
		Indexed: w.indexed.Load(),
		Removed: w.removed.Load(),
		Errors:  w.errors.Load(),
	}
}

// Run watches until ctx is cancelled. It does not index existing files;
// run Walk first for that.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.opts.Logger

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("crawl: watcher: %w", err)
	}
	defer fw.Close()

	for _, root := range w.roots {
		if err := w.addTree(fw, root); err != nil {
			return err
		}
	}
	close(w.ready)
	log.Info("crawl: watch started", "roots", w.roots, "debounce", w.opts.Debounce)

	pending := make(map[string]struct{})
	var (
		debounceTimer *time.Timer
		debounceCh    <-chan time.Time
	)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("crawl: watch stopped")
			return nil

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("crawl: watcher closed")
			}
			w.errors.Add(1)
			log.Warn("crawl: watch error", "error", err)

		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("crawl: watcher closed")
			}
			w.events.Add(1)
			if !w.queue(ctx, fw, ev, pending) {
				continue
			}

			// (Re)start the quiet window on every relevant event.
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.opts.Debounce)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			w.flush(ctx, pending)
			clear(pending)
		}
	}
}

// queue records the paths affected by ev and reports whether any were.
func (w *Watcher) queue(ctx context.Context, fw *fsnotify.Watcher, ev fsnotify.Event, pending map[string]struct{}) bool {
	n := len(pending)
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.newDir(ctx, fw, ev.Name, pending)
			return len(pending) > n
		}
	}
	if !w.ix.dec.Detect(ev.Name) {
		return false
	}
	if ev.Op == fsnotify.Chmod {
		return false
	}
	pending[ev.Name] = struct{}{}
	return true
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("crawl: watch %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("crawl: watch %s: %w", path, err)
		}
		return nil
	})
}

// newDir starts watching a directory that appeared after Run started and
// queues the archives already inside it, which produced no events.
func (w *Watcher) newDir(ctx context.Context, fw *fsnotify.Watcher, dir string, pending map[string]struct{}) {
	if err := w.addTree(fw, dir); err != nil {
		w.errors.Add(1)
		w.opts.Logger.Warn("crawl: watch new directory", "dir", dir, "error", err)
		return
	}
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || ctx.Err() != nil {
			return fs.SkipAll
		}
		if !d.IsDir() && w.ix.dec.Detect(path) {
			pending[path] = struct{}{}
		}
		return nil
	})
}

func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	if len(pending) == 0 {
		return
	}
	w.flushes.Add(1)
	for path := range pending {
		outcome, err := w.ix.IndexFile(ctx, path)
		switch outcome {
		case Indexed:
			w.indexed.Add(1)
		case Removed:
			w.removed.Add(1)
		}
		if errors.Is(err, ErrIndex) {
			w.errors.Add(1)
			w.opts.Logger.Error("crawl: index update failed", "path", path, "error", err)
			continue
		}
		w.opts.Logger.Debug("crawl: file event handled", "path", path, "outcome", outcome)
	}
}
