package logging

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()

	if filepath.Base(path) != "deckstore.log" {
		t.Errorf("DefaultLogPath should end with deckstore.log, got: %s", path)
	}
	if !strings.Contains(path, filepath.Join(".deckstore", "logs")) {
		t.Errorf("DefaultLogPath should live under .deckstore/logs, got: %s", path)
	}
}

func TestDefaultAndDebugConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" || cfg.MaxSizeMB != 10 || cfg.MaxFiles != 5 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.WriteToStderr {
		t.Error("default config should log to the file only")
	}

	dbg := DebugConfig()
	if dbg.Level != "debug" || !dbg.WriteToStderr {
		t.Errorf("unexpected debug config: %+v", dbg)
	}
}

func TestSetup_WritesJSON(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "test.log")

	logger, cleanup, err := Setup(Config{Level: "info", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 3})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Debug("hidden_event")
	logger.Info("slide_created", "slide_id", 7)
	cleanup()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file was not created: %v", err)
	}
	if strings.Contains(string(data), "hidden_event") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(string(data), `"msg":"slide_created"`) || !strings.Contains(string(data), `"slide_id":7`) {
		t.Errorf("unexpected log content: %s", data)
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic and must not be enabled at any level
	l := Discard()
	l.Error("nothing")
	if l.Enabled(context.Background(), 100) {
		t.Error("discard logger reports enabled")
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{" error ", "ERROR"},
		{"unknown", "INFO"},
	}
	for _, tc := range tests {
		if got := LevelFromString(tc.input).String(); got != tc.expected {
			t.Errorf("LevelFromString(%q) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestFindLogFile(t *testing.T) {
	if _, err := FindLogFile("/nonexistent/path/to/log.log"); err == nil {
		t.Error("expected error for nonexistent file")
	}

	logPath := filepath.Join(t.TempDir(), "x.log")
	if err := os.WriteFile(logPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	found, err := FindLogFile(logPath)
	if err != nil || found != logPath {
		t.Errorf("FindLogFile(%s) = %s, %v", logPath, found, err)
	}
}

func TestRotatingWriter_Rotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "r.log")
	w, err := newRotatingWriter(logPath, 100, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	line := []byte(strings.Repeat("x", 59) + "\n")
	for i := 0; i < 5; i++ {
		if _, err := w.Write(line); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	// 5 writes of 60 bytes with a 100 byte limit: one line per file
	for _, p := range []string{logPath, logPath + ".1", logPath + ".2"} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("expected %s: %v", p, err)
		}
		if info.Size() != 60 {
			t.Errorf("%s size = %d, want 60", p, info.Size())
		}
	}
	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Error("rotation kept more than maxFiles files")
	}
}

func TestRotatingWriter_OversizedFirstWrite(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "big.log")
	w, err := newRotatingWriter(logPath, 10, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if _, err := w.Write([]byte(strings.Repeat("y", 50))); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(logPath + ".1"); !os.IsNotExist(err) {
		t.Error("an empty file should not be rotated")
	}
}

func TestRotatingWriter_CloseIdempotent(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "c.log"), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if err := w.Sync(); err != nil {
		t.Errorf("sync after close: %v", err)
	}
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "cc.log")
	w, err := NewRotatingWriter(logPath, 1, 3)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = fmt.Fprintf(w, "goroutine %d line %d\n", g, i)
			}
		}(g)
	}
	wg.Wait()
	_ = w.Close()

	data, _ := os.ReadFile(logPath)
	if got := strings.Count(string(data), "\n"); got != 400 {
		t.Errorf("expected 400 lines, got %d", got)
	}
}

const sampleLog = `{"time":"2025-03-01T09:00:00.000Z","level":"DEBUG","msg":"store_write_committed","op":"create_slide"}
{"time":"2025-03-01T09:00:01.000Z","level":"INFO","msg":"import_committed","slides":12}
not json at all
{"time":"2025-03-01T09:00:02.000Z","level":"WARN","msg":"import_rolled_back","error":"boom"}
{"time":"2025-03-01T09:00:03.000Z","level":"ERROR","msg":"index_repair_failed","count":2}
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deckstore.log")
	if err := os.WriteFile(path, []byte(sampleLog), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestViewer_Tail(t *testing.T) {
	path := writeSample(t)
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	entries, err := v.Tail(path, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].IsValid || entries[0].Raw != "not json at all" {
		t.Errorf("expected raw line first, got %+v", entries[0])
	}
	if entries[2].Msg != "index_repair_failed" {
		t.Errorf("expected newest last, got %s", entries[2].Msg)
	}

	all, _ := v.Tail(path, 100)
	if len(all) != 5 {
		t.Errorf("expected all 5 lines, got %d", len(all))
	}
}

func TestViewer_Filters(t *testing.T) {
	path := writeSample(t)

	tests := []struct {
		name string
		cfg  ViewerConfig
		want []string
	}{
		{"level", ViewerConfig{Level: "warn"}, []string{"import_rolled_back", "index_repair_failed"}},
		{"event prefix", ViewerConfig{Event: "import_"}, []string{"import_committed", "import_rolled_back"}},
		{"pattern", ViewerConfig{Pattern: regexp.MustCompile(`"count":2`)}, []string{"index_repair_failed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := NewViewer(tt.cfg, &bytes.Buffer{}).Tail(path, 100)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, e := range entries {
				got = append(got, e.Msg)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewer_FormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	e := parseLine(`{"time":"2025-03-01T09:00:01.5Z","level":"INFO","msg":"import_committed","slides":12,"file_id":3}`)
	if got, want := v.FormatEntry(e), "09:00:01.500 INFO  import_committed file_id=3 slides=12"; got != want {
		t.Errorf("FormatEntry = %q, want %q", got, want)
	}

	raw := parseLine("plain text")
	if got := v.FormatEntry(raw); got != "plain text" {
		t.Errorf("raw line changed: %q", got)
	}
}

func TestViewer_Print(t *testing.T) {
	var buf bytes.Buffer
	v := NewViewer(ViewerConfig{NoColor: true}, &buf)
	v.Print([]LogEntry{parseLine("a"), parseLine("b")})

	if buf.String() != "a\nb\n" {
		t.Errorf("Print output = %q", buf.String())
	}
}

func TestViewer_Follow(t *testing.T) {
	path := writeSample(t)
	v := NewViewer(ViewerConfig{Level: "info"}, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries := make(chan LogEntry, 4)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, entries) }()

	// Give the watcher time to register before appending
	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString(`{"time":"2025-03-01T09:00:04Z","level":"DEBUG","msg":"skipped"}` + "\n")
	_, _ = f.WriteString(`{"time":"2025-03-01T09:00:05Z","level":"INFO","msg":"assembly_reordered"}` + "\n")
	_ = f.Close()

	select {
	case e := <-entries:
		if e.Msg != "assembly_reordered" {
			t.Errorf("unexpected entry %q", e.Msg)
		}
	case <-ctx.Done():
		t.Fatal("no entry followed")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Follow returned %v", err)
	}
}
