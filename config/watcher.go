package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// eventChannelBuffer is the size of the reload event channel.
	eventChannelBuffer = 16

	defaultDebounce = 500 * time.Millisecond
)

// ReloadEvent is emitted when a watched declaration file changes. Schema is
// nil when the reload failed, with Err holding the reason.
type ReloadEvent struct {
	Path   string
	Schema *Schema
	Err    error
}

// Watcher reloads a schema declaration file whenever it changes on disk.
// Rapid successive writes are debounced into one reload.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   bool

	events chan ReloadEvent
}

// NewWatcher creates a watcher for one declaration file. A non-positive
// debounce falls back to the default.
func NewWatcher(path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		events:   make(chan ReloadEvent, eventChannelBuffer),
	}, nil
}

// Events returns the channel of reload events.
func (w *Watcher) Events() <-chan ReloadEvent {
	return w.events
}

// Start begins watching. The declaration's directory is watched so editors
// that replace the file on save are still caught.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.processEvents(ctx)

	w.logger.Info("schema watcher started",
		"path", w.path,
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher. The events channel is closed by processEvents
// when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()

	w.logger.Debug("schema change detected", "path", w.path, "op", event.Op.String())
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	dirty := w.pending
	w.pending = false
	w.pendingMu.Unlock()
	if !dirty {
		return
	}

	s, err := LoadFromFile(w.path)
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		s = nil
		w.logger.Warn("schema reload failed", "path", w.path, "error", err)
	} else {
		w.logger.Info("schema reloaded", "path", w.path, "name", s.Name)
	}

	select {
	case w.events <- ReloadEvent{Path: w.path, Schema: s, Err: err}:
	default:
		w.logger.Warn("reload event dropped, channel full")
	}
}
