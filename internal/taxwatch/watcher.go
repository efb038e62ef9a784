// Package taxwatch reloads the taxonomy sync file when it changes on disk.
package taxwatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/graph"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches a single taxonomy file and syncs it into the graph store
// on change. Invalid documents and stale versions are skipped with a warning;
// the active version never regresses because of a bad file write.
type Watcher struct {
	path     string
	store    graph.Store
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	started bool

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the reload debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher for the taxonomy file at path.
func New(path string, store graph.Store, logger *zap.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		store:    store,
		debounce: defaultDebounce,
		logger:   logger,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. The parent directory is watched rather than the file
// itself so atomic rename-into-place writes are still observed. Runs until
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()
	w.logger.Info("taxonomy watcher started", zap.String("path", w.path))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("taxonomy watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Rename) {
		return
	}
	w.debounceReload(ctx)
}

func (w *Watcher) debounceReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.Reload(ctx)
	})
}

// Reload loads, validates, and syncs the taxonomy file once. Versions at or
// below the active one are skipped so replays and touch events are no-ops.
func (w *Watcher) Reload(ctx context.Context) {
	doc, err := graph.LoadTaxonomyFile(w.path)
	if err != nil {
		w.logger.Warn("taxonomy reload skipped", zap.String("path", w.path), zap.Error(err))
		return
	}
	if err := doc.Validate(); err != nil {
		w.logger.Warn("taxonomy file invalid, keeping active version", zap.String("path", w.path), zap.Error(err))
		return
	}
	active, err := w.store.ActiveVersion(ctx)
	if err == nil && doc.Version <= active {
		w.logger.Debug("taxonomy version not newer than active",
			zap.Int("file_version", doc.Version), zap.Int("active_version", active))
		return
	}
	if err := w.store.SyncTaxonomy(ctx, doc); err != nil {
		w.logger.Error("taxonomy sync failed", zap.Int("version", doc.Version), zap.Error(err))
		return
	}
	w.logger.Info("taxonomy synced from file",
		zap.Int("version", doc.Version),
		zap.Int("skills", len(doc.Skills)),
		zap.Int("roles", len(doc.Roles)))
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
