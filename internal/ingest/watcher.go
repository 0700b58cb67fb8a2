package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher imports manifests dropped into a directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	importer *Importer
	logger   *slog.Logger

	// OnOutcome, if set, is called after each manifest is handled.
	// Parse failures are reported with a nil Project.
	OnOutcome func(Outcome)
}

// NewWatcher creates a watcher for dir. Manifests are imported once they
// have not changed for the debounce window.
func NewWatcher(dir string, debounce time.Duration, importer *Importer, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{dir: dir, debounce: debounce, importer: importer, logger: logger}
}

// Run watches until ctx is done. Subdirectories are not watched.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	deb := NewDebouncer(w.debounce, w.logger)
	defer deb.Stop()

	w.logger.Info("watch_started", slog.String("dir", w.dir), slog.Duration("debounce", w.debounce))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch_stopped", slog.String("dir", w.dir))
			return nil

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", slog.String("error", err.Error()))

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !IsManifestPath(ev.Name) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				deb.Add(ev.Name, OpWrite)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				deb.Add(ev.Name, OpRemove)
			}

		case paths := <-deb.Output():
			for _, path := range paths {
				if ctx.Err() != nil {
					return nil
				}
				w.handle(ctx, path)
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	m, err := LoadManifest(path)
	if err != nil {
		w.logger.Warn("manifest_skipped", slog.String("source", path), slog.String("error", err.Error()))
		w.report(Outcome{Source: path, Err: err})
		return
	}
	p, r, err := w.importer.Import(ctx, m)
	w.report(Outcome{Source: path, Project: p, Result: r, Err: err})
}

func (w *Watcher) report(o Outcome) {
	if w.OnOutcome != nil {
		w.OnOutcome(o)
	}
}
