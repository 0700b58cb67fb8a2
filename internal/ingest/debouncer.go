package ingest

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Operation is a file change seen in the watch folder.
type Operation int

const (
	// OpWrite means the manifest was created or written.
	OpWrite Operation = iota
	// OpRemove means the manifest was removed or renamed away.
	OpRemove
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// Debouncer holds manifest paths until they stop changing for one window,
// then emits them as a batch. An extractor writing a manifest in several
// chunks yields one import, not one per chunk.
//
// Events for the same path are merged:
//   - WRITE + WRITE = WRITE
//   - WRITE + REMOVE = nothing (the manifest is gone before it settled)
//   - REMOVE + WRITE = WRITE (the manifest was replaced)
type Debouncer struct {
	window  time.Duration
	pending map[string]Operation
	mu      sync.Mutex
	output  chan []string
	timer   *time.Timer
	stopped bool
	logger  *slog.Logger
}

// NewDebouncer creates a debouncer with the given settle window.
func NewDebouncer(window time.Duration, logger *slog.Logger) *Debouncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Debouncer{
		window:  window,
		pending: make(map[string]Operation),
		output:  make(chan []string, 10),
		logger:  logger,
	}
}

// Add records an operation on path and restarts the window.
func (d *Debouncer) Add(path string, op Operation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	switch op {
	case OpRemove:
		delete(d.pending, path)
	default:
		d.pending[path] = OpWrite
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush emits the settled paths, sorted. When the output is full the paths
// stay pending and the flush is retried after another window; later events
// for those paths still merge with them.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	select {
	case d.output <- paths:
		d.pending = make(map[string]Operation)
	default:
		d.logger.Debug("debouncer output full, retrying batch", slog.Int("batch_size", len(paths)))
		d.timer = time.AfterFunc(d.window, d.flush)
	}
}

// Output returns the channel of settled path batches.
func (d *Debouncer) Output() <-chan []string {
	return d.output
}

// Stop stops the debouncer and closes the output channel.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
