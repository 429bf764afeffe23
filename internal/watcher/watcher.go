// Package watcher reports settled edits to post files under a workspace.
//
// It backs `esm watch`, which pushes each post a short while after it was
// last written.
package watcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/aidanlsb/esm/internal/paths"
)

// Handler is called once per settled post file. path is absolute.
type Handler func(ctx context.Context, path string) error

// Watcher monitors a workspace for post edits.
type Watcher struct {
	root string

	debounceDelay time.Duration
	logger        zerolog.Logger

	fsWatcher *fsnotify.Watcher
	pending   map[string]time.Time
	handled   map[string][sha256.Size]byte
	mu        sync.Mutex

	onChange Handler
	onResult func(path string, err error)
}

// Config holds configuration options for the Watcher.
type Config struct {
	Root          string
	DebounceDelay time.Duration // Default: 300ms
	Logger        *zerolog.Logger

	// OnChange is required.
	OnChange Handler

	// OnResult is optional and sees every OnChange outcome.
	OnResult func(path string, err error)
}

// New creates a new Watcher with the given configuration.
func New(cfg Config) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("workspace root is required")
	}
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("change handler is required")
	}

	debounce := cfg.DebounceDelay
	if debounce == 0 {
		debounce = 300 * time.Millisecond
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Watcher{
		root:          cfg.Root,
		debounceDelay: debounce,
		logger:        logger.With().Str("component", "watcher").Logger(),
		pending:       make(map[string]time.Time),
		handled:       make(map[string][sha256.Size]byte),
		onChange:      cfg.OnChange,
		onResult:      cfg.OnResult,
	}, nil
}

// Start begins watching the workspace for file changes.
// It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	var err error
	w.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.fsWatcher.Close()

	if err := w.addWatchRecursive(w.root); err != nil {
		return fmt.Errorf("failed to watch workspace: %w", err)
	}
	w.logger.Debug().Str("root", w.root).Msg("watching workspace")

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// MarkHandled records the current content of path as already handled, so
// an edit is only reported once the file differs from it.
func (w *Watcher) MarkHandled(path string) {
	sum, err := checksum(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.handled[path] = sum
	w.mu.Unlock()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if !strings.HasSuffix(path, paths.Ext) {
		if event.Op&fsnotify.Create != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() && !w.shouldIgnore(path) {
				_ = w.addWatchRecursive(path)
			}
		}
		return
	}
	if w.shouldIgnore(path) {
		return
	}

	w.logger.Debug().Str("op", event.Op.String()).Str("path", path).Msg("event")

	switch {
	case event.Op&fsnotify.Write != 0, event.Op&fsnotify.Create != 0:
		w.schedule(path, time.Now())
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		w.mu.Lock()
		delete(w.pending, path)
		delete(w.handled, path)
		w.mu.Unlock()
	}
}

// schedule (re)starts the debounce window for path.
func (w *Watcher) schedule(path string, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = at
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.processPending(ctx, now)
		}
	}
}

// processPending hands files whose debounce window has passed to the
// change handler, skipping files whose content was already handled.
func (w *Watcher) processPending(ctx context.Context, now time.Time) {
	w.mu.Lock()
	ready := make([]string, 0)
	for path, scheduledAt := range w.pending {
		if now.Sub(scheduledAt) >= w.debounceDelay {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		sum, err := checksum(path)
		if err != nil {
			continue
		}
		w.mu.Lock()
		seen, ok := w.handled[path]
		w.mu.Unlock()
		if ok && seen == sum {
			w.logger.Debug().Str("path", path).Msg("content unchanged")
			continue
		}

		err = w.onChange(ctx, path)
		if w.onResult != nil {
			w.onResult(path, err)
		}
		// The handler may rewrite the file; remember what it left behind.
		w.MarkHandled(path)
	}
}

func (w *Watcher) addWatchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if path != w.root && w.shouldIgnore(path) {
				return filepath.SkipDir
			}
			if err := w.fsWatcher.Add(path); err != nil {
				w.logger.Warn().Err(err).Str("path", path).Msg("failed to watch directory")
			}
		}
		return nil
	})
}

// shouldIgnore reports whether path lies in a dot directory or is itself a
// dot file, such as the atomic-write temp files.
func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func checksum(path string) ([sha256.Size]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(content), nil
}
