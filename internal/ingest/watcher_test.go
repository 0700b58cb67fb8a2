package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_RapidWritesCoalesce(t *testing.T) {
	// Given: a debouncer with short window
	d := NewDebouncer(50*time.Millisecond, slog.New(slog.DiscardHandler))
	defer d.Stop()

	// When: the same manifest is written repeatedly alongside another
	for i := 0; i < 5; i++ {
		d.Add("/in/b.yaml", OpWrite)
		time.Sleep(5 * time.Millisecond)
	}
	d.Add("/in/a.yaml", OpWrite)

	// Then: one sorted batch arrives
	select {
	case paths := <-d.Output():
		assert.Equal(t, []string{"/in/a.yaml", "/in/b.yaml"}, paths)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced batch")
	}
}

func TestDebouncer_WriteThenRemove_NoBatch(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, slog.New(slog.DiscardHandler))
	defer d.Stop()

	d.Add("/in/tmp.yaml", OpWrite)
	d.Add("/in/tmp.yaml", OpRemove)

	select {
	case paths := <-d.Output():
		t.Fatalf("unexpected batch %v", paths)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_RemoveThenWrite_Imports(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, slog.New(slog.DiscardHandler))
	defer d.Stop()

	d.Add("/in/x.yaml", OpRemove)
	d.Add("/in/x.yaml", OpWrite)

	select {
	case paths := <-d.Output():
		assert.Equal(t, []string{"/in/x.yaml"}, paths)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced batch")
	}
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	d := NewDebouncer(time.Hour, nil)
	d.Add("/in/a.yaml", OpWrite)
	d.Stop()
	d.Stop()
	d.Add("/in/b.yaml", OpWrite)

	_, ok := <-d.Output()
	assert.False(t, ok, "output closed after Stop")
}

func TestDebouncer_FullOutputKeepsBatch(t *testing.T) {
	// Given: a debouncer whose output buffer is full
	d := NewDebouncer(20*time.Millisecond, slog.New(slog.DiscardHandler))
	defer d.Stop()
	for i := 0; i < cap(d.output); i++ {
		d.output <- []string{"/in/filler.yaml"}
	}

	// When: a manifest settles while nobody reads
	d.Add("/in/a.yaml", OpWrite)
	time.Sleep(100 * time.Millisecond)
	d.Add("/in/b.yaml", OpWrite)

	// Then: after draining, the held paths arrive in one batch
	for i := 0; i < cap(d.output); i++ {
		assert.Equal(t, []string{"/in/filler.yaml"}, <-d.Output())
	}
	select {
	case paths := <-d.Output():
		assert.Equal(t, []string{"/in/a.yaml", "/in/b.yaml"}, paths)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for held batch")
	}
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "WRITE", OpWrite.String())
	assert.Equal(t, "REMOVE", OpRemove.String())
	assert.Equal(t, "UNKNOWN", Operation(9).String())
}

func TestWatcher_ImportsSettledManifests(t *testing.T) {
	// Given: a watcher on an empty directory
	s := newTestStore(t)
	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)
	w := NewWatcher(dir, 50*time.Millisecond, NewImporter(s, logger), logger)

	outcomes := make(chan Outcome, 4)
	w.OnOutcome = func(o Outcome) { outcomes <- o }

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// When: a valid manifest, a broken one and a non-manifest are dropped in
	writeManifest(t, dir, "q4.yaml", yamlManifest)
	writeManifest(t, dir, "broken.json", "{")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	// Then: both manifests are reported, and only the valid one is imported
	got := map[string]Outcome{}
	for len(got) < 2 {
		select {
		case o := <-outcomes:
			got[filepath.Base(o.Source)] = o
		case <-ctx.Done():
			t.Fatalf("timed out; got %v", got)
		}
	}
	require.NoError(t, got["q4.yaml"].Err)
	assert.Len(t, got["q4.yaml"].Result.SlideIDs, 2)
	assert.Error(t, got["broken.json"].Err)
	assert.Nil(t, got["broken.json"].Project)

	cancel()
	require.NoError(t, <-done)

	counts, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Files)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	s := newTestStore(t)
	w := NewWatcher(filepath.Join(t.TempDir(), "missing"), time.Millisecond, NewImporter(s, nil), nil)

	err := w.Run(context.Background())
	assert.Error(t, err)
}
