// Package watcher discovers finished audio files in the inbox directory.
// A file counts as stable once its size is unchanged across two
// observations separated by the debounce interval, which keeps half-copied
// uploads out of the pipeline. Observations come from a periodic directory
// scan, with fsnotify events used only to notice new files sooner.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler receives the path of each newly stable file.
type Handler func(path string)

type observation struct {
	size    int64
	modTime time.Time
	at      time.Time
}

// Watcher polls one directory for stable audio files.
type Watcher struct {
	dir          string
	extensions   map[string]bool
	scanInterval time.Duration
	debounce     time.Duration
	handler      Handler
	logger       *zap.Logger

	mu      sync.Mutex
	pending map[string]observation
	emitted map[string]time.Time // path to delivered mtime
}

// New creates a watcher over dir. Extensions are matched case-insensitively
// and must include the leading dot.
func New(dir string, extensions []string, scanInterval, debounce time.Duration, handler Handler, logger *zap.Logger) *Watcher {
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}
	return &Watcher{
		dir:          dir,
		extensions:   extSet,
		scanInterval: scanInterval,
		debounce:     debounce,
		handler:      handler,
		logger:       logger,
		pending:      make(map[string]observation),
		emitted:      make(map[string]time.Time),
	}
}

// Run watches until ctx is cancelled. It scans immediately on start, then
// on every tick. fsnotify failures degrade to plain polling.
func (w *Watcher) Run(ctx context.Context) error {
	events := w.startNotify(ctx)

	w.logger.Info("watching directory",
		zap.String("dir", w.dir),
		zap.Duration("scan_interval", w.scanInterval),
		zap.Duration("debounce", w.debounce))

	ticker := time.NewTicker(w.scanInterval)
	defer ticker.Stop()

	w.scan()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.scan()
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			w.observe(path)
		}
	}
}

// startNotify wires fsnotify create/write events into a path channel.
// Returns nil when the notify backend is unavailable.
func (w *Watcher) startNotify(ctx context.Context) <-chan string {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("fsnotify unavailable, polling only", zap.Error(err))
		return nil
	}
	if err := fsw.Add(w.dir); err != nil {
		w.logger.Warn("cannot watch directory, polling only",
			zap.String("dir", w.dir), zap.Error(err))
		fsw.Close()
		return nil
	}

	out := make(chan string)
	go func() {
		defer fsw.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
					continue
				}
				if !w.matches(event.Name) {
					continue
				}
				select {
				case out <- event.Name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("fsnotify error", zap.Error(err))
			}
		}
	}()
	return out
}

func (w *Watcher) matches(path string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

// scan walks the directory once and advances the stability state of every
// matching file. Files that vanish or cannot be stated are skipped and
// retried on the next pass.
func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("directory scan failed", zap.String("dir", w.dir), zap.Error(err))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if !w.matches(path) {
			continue
		}
		w.observe(path)
	}
}

// observe records one sighting of path and emits it when two sightings
// spaced by the debounce interval agree on size.
func (w *Watcher) observe(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// mid-rename or already gone
		w.logger.Debug("stat failed", zap.String("path", path), zap.Error(err))
		return
	}

	w.mu.Lock()
	if delivered, ok := w.emitted[path]; ok && delivered.Equal(info.ModTime()) {
		w.mu.Unlock()
		return
	}

	now := time.Now()
	prev, seen := w.pending[path]
	if seen && prev.size == info.Size() && now.Sub(prev.at) >= w.debounce {
		delete(w.pending, path)
		w.emitted[path] = info.ModTime()
		w.mu.Unlock()

		w.logger.Info("stable file discovered",
			zap.String("path", path),
			zap.Int64("size", info.Size()))
		w.handler(path)
		return
	}
	if !seen || prev.size != info.Size() {
		w.pending[path] = observation{size: info.Size(), modTime: info.ModTime(), at: now}
	}
	w.mu.Unlock()
}

// Forget drops the delivery record for path so a rewritten file with the
// same mtime can be picked up again.
func (w *Watcher) Forget(path string) {
	w.mu.Lock()
	delete(w.emitted, path)
	delete(w.pending, path)
	w.mu.Unlock()
}
