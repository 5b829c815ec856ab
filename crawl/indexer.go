// Package crawl feeds addon archives found on disk through the decoder and
// into the index: a one-shot recursive Walk, and a Watcher that re-indexes
// files as they are created, changed or removed.
//
// Files that are not archives are skipped silently. Every other decode
// failure is recorded in the index decode log and counted, but never stops
// the crawl.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/gmameta/gma"
	"github.com/hazyhaar/gmameta/idgen"
	"github.com/hazyhaar/gmameta/index"
)

// Outcome is what IndexFile did with one file.
type Outcome string

const (
	Indexed   Outcome = "indexed"
	Unchanged Outcome = "unchanged"
	Skipped   Outcome = "skipped" // not an archive
	Failed    Outcome = "failed"
	Removed   Outcome = "removed"
)

// ErrIndex wraps failures of the index itself, as opposed to failures of
// the file being indexed. Walk stops on them.
var ErrIndex = errors.New("crawl: index update failed")

// Config configures an Indexer.
type Config struct {
	// Force re-decodes files whose size and modification time match the
	// index.
	Force bool
	// Logger for crawl events.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Indexer decodes files into an index.Store.
type Indexer struct {
	dec    *gma.Decoder
	store  *index.Store
	cfg    Config
	logger *slog.Logger
	runID  idgen.Generator
}

// NewIndexer creates an Indexer.
func NewIndexer(dec *gma.Decoder, store *index.Store, cfg Config) *Indexer {
	cfg.defaults()
	return &Indexer{
		dec:    dec,
		store:  store,
		cfg:    cfg,
		logger: cfg.Logger,
		runID:  idgen.Prefixed("run_", idgen.UUIDv7()),
	}
}

// IndexFile brings the index entry for path up to date. A path that no
// longer exists is removed from the index. A file that fails to decode
// loses its entry, gets one decode log row, and returns the decode error
// with Failed. Index errors wrap ErrIndex.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (Outcome, error) {
	outcome, err := ix.indexFile(ctx, path)
	if err != nil && outcome == "" {
		return Failed, fmt.Errorf("%w: %w", ErrIndex, err)
	}
	return outcome, err
}

// indexFile returns an empty outcome for index errors.
func (ix *Indexer) indexFile(ctx context.Context, path string) (Outcome, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := ix.forget(ctx, path); err != nil {
			return "", err
		}
		return Removed, nil
	}
	if err != nil {
		return Failed, fmt.Errorf("crawl: stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return Skipped, nil
	}

	if !ix.cfg.Force {
		prev, err := ix.store.Get(ctx, path)
		if err == nil && prev.Size == info.Size() && prev.ModTime.Equal(info.ModTime().Truncate(time.Millisecond)) {
			return Unchanged, nil
		}
	}

	h, decodeErr := ix.dec.DecodeFile(ctx, path)
	switch {
	case decodeErr == nil:
	case gma.IsNotThisFormat(decodeErr):
		ix.logger.Debug("crawl: not an archive", "path", path)
		if err := ix.forget(ctx, path); err != nil {
			return "", err
		}
		return Skipped, nil
	case ctx.Err() != nil:
		return Failed, ctx.Err()
	default:
		// Only the latest failure of a path is kept.
		if err := ix.forget(ctx, path); err != nil {
			return "", err
		}
		if err := ix.store.LogFailure(ctx, path, decodeErr); err != nil {
			return "", err
		}
		return Failed, decodeErr
	}

	if _, err := ix.store.Put(ctx, path, info.Size(), info.ModTime(), h); err != nil {
		return "", err
	}
	if err := ix.store.ClearFailures(ctx, path); err != nil {
		return "", err
	}
	return Indexed, nil
}

func (ix *Indexer) forget(ctx context.Context, path string) error {
	if err := ix.store.Delete(ctx, path); err != nil {
		return err
	}
	return ix.store.ClearFailures(ctx, path)
}

// WalkStats counts what one Walk did.
type WalkStats struct {
	RunID     string        `json:"run_id"`
	Root      string        `json:"root"`
	Seen      int           `json:"seen"`
	Indexed   int           `json:"indexed"`
	Unchanged int           `json:"unchanged"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Removed   int           `json:"removed"`
	Duration  time.Duration `json:"duration"`
}

func (s *WalkStats) count(o Outcome) {
	switch o {
	case Indexed:
		s.Indexed++
	case Unchanged:
		s.Unchanged++
	case Skipped:
		s.Skipped++
	case Failed:
		s.Failed++
	case Removed:
		s.Removed++
	}
}

// Walk indexes every archive under root, then drops index entries under
// root whose file is gone. Per-file failures are counted, not returned;
// only an unreadable root, an index error or ctx cancellation stop the walk.
func (ix *Indexer) Walk(ctx context.Context, root string) (*WalkStats, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("crawl: %w", err)
	}
	st := &WalkStats{RunID: ix.runID(), Root: root}
	start := time.Now()
	log := ix.logger.With("run_id", st.RunID, "root", root)
	log.Info("crawl: walk started")

	seen := make(map[string]struct{})
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warn("crawl: unreadable entry", "path", path, "error", err)
			st.Failed++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !ix.dec.Detect(path) {
			return nil
		}

		st.Seen++
		seen[path] = struct{}{}
		outcome, err := ix.IndexFile(ctx, path)
		st.count(outcome)
		if errors.Is(err, ErrIndex) {
			return err
		}
		return ctx.Err()
	})
	if err != nil {
		return st, fmt.Errorf("crawl: walk %s: %w", root, err)
	}

	if err := ix.prune(ctx, root, seen, st); err != nil {
		return st, fmt.Errorf("%w: %w", ErrIndex, err)
	}

	st.Duration = time.Since(start)
	log.Info("crawl: walk finished",
		"seen", st.Seen,
		"indexed", st.Indexed,
		"unchanged", st.Unchanged,
		"skipped", st.Skipped,
		"failed", st.Failed,
		"removed", st.Removed,
		"duration", st.Duration,
	)
	return st, nil
}

// prune removes index entries under root that the walk did not see.
func (ix *Indexer) prune(ctx context.Context, root string, seen map[string]struct{}, st *WalkStats) error {
	paths, err := ix.store.Paths(ctx)
	if err != nil {
		return err
	}
	prefix := root + string(filepath.Separator)
	for _, p := range paths {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		if err := ix.forget(ctx, p); err != nil {
			return err
		}
		st.Removed++
	}
	return nil
}
