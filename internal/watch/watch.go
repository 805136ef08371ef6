// Package watch re-runs a job whenever a file changes.
//
// The parent directory is watched instead of the file itself so that
// editors which save by writing a temporary file and renaming it over the
// original keep triggering runs.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the bursts of events a single save produces.
const DefaultDebounce = 100 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Path     string        // File to watch
	Debounce time.Duration // Quiet period before a run; DefaultDebounce if zero
	// OnChange runs once at start and after every change.
	OnChange func(ctx context.Context) error
	// OnError receives the errors of OnChange. Watching continues.
	OnError func(error)
	Logger  *slog.Logger
}

// Watcher runs Options.OnChange for every change to Options.Path.
type Watcher struct {
	opts   Options
	path   string
	logger *slog.Logger
}

// New creates a Watcher.
func New(opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.OnError == nil {
		opts.OnError = func(error) {}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{opts: opts, path: filepath.Clean(opts.Path), logger: logger}
}

// Run blocks until ctx is cancelled or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	if w.opts.OnChange == nil {
		return errors.New("watch: no OnChange function")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	w.run(ctx)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if w.relevant(event) {
				w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
				pending = time.After(w.opts.Debounce)
			}

		case <-pending:
			pending = nil
			w.run(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) run(ctx context.Context) {
	start := time.Now()
	if err := w.opts.OnChange(ctx); err != nil {
		w.logger.Warn("run failed", "path", w.path, "error", err)
		w.opts.OnError(err)
		return
	}
	w.logger.Info("run finished", "path", w.path, "duration", time.Since(start))
}
