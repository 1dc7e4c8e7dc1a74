package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
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
	if filepath.Base(path) != "addrmatch.log" {
		t.Errorf("DefaultLogPath should end with addrmatch.log, got: %s", path)
	}
	if !strings.Contains(path, ".addrmatch") {
		t.Errorf("DefaultLogPath should live under .addrmatch, got: %s", path)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got: %s", cfg.Level)
	}
	if cfg.MaxSizeMB != 10 || cfg.MaxFiles != 5 {
		t.Errorf("expected 10MB x 5 files, got: %dMB x %d", cfg.MaxSizeMB, cfg.MaxFiles)
	}
	if DebugConfig().Level != "debug" {
		t.Error("DebugConfig should log at debug")
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "test.log")

	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 3})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Debug("shard_search_started", slog.Int("shards", 4))
	cleanup()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"msg":"shard_search_started"`) {
		t.Errorf("log file should contain the event, got: %s", content)
	}
	if !strings.Contains(content, `"shards":4`) {
		t.Errorf("log file should contain attributes, got: %s", content)
	}
}

func TestSetup_RespectsLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: logPath})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	cleanup()

	data, _ := os.ReadFile(logPath)
	if strings.Contains(string(data), "hidden") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(string(data), "shown") {
		t.Error("warn entry should be written")
	}
}

func TestSetupStderr(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	SetupStderr(&buf, "warn")
	slog.Info("quiet")
	slog.Warn("place_list_unavailable", slog.String("path", "places.txt"))

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info should be suppressed")
	}
	if !strings.Contains(out, "place_list_unavailable") || !strings.Contains(out, "path=places.txt") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRotatingWriter_Rotates(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "rotate.log")

	w, err := NewRotatingWriter(logPath, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	w.maxSize = 10
	defer func() { _ = w.Close() }()

	for i := 0; i < 4; i++ {
		if _, err := w.Write([]byte(fmt.Sprintf("line-%d-xxx\n", i))); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	current, _ := os.ReadFile(logPath)
	if string(current) != "line-3-xxx\n" {
		t.Errorf("current file should hold the newest line, got %q", current)
	}
	first, _ := os.ReadFile(logPath + ".1")
	if string(first) != "line-2-xxx\n" {
		t.Errorf(".1 should hold the previous line, got %q", first)
	}
	second, _ := os.ReadFile(logPath + ".2")
	if string(second) != "line-1-xxx\n" {
		t.Errorf(".2 should hold the line before, got %q", second)
	}
	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Error("files beyond maxFiles should be removed")
	}
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "concurrent.log")
	w, err := NewRotatingWriter(logPath, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	w.SetImmediateSync(false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = w.Write([]byte(fmt.Sprintf("%d-%d\n", i, j)))
			}
		}(i)
	}
	wg.Wait()
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, _ := os.ReadFile(logPath)
	if got := strings.Count(string(data), "\n"); got != 400 {
		t.Errorf("expected 400 lines, got %d", got)
	}
}

func TestFindLogFile(t *testing.T) {
	existing := filepath.Join(t.TempDir(), "x.log")
	if err := os.WriteFile(existing, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindLogFile(existing)
	if err != nil || got != existing {
		t.Errorf("FindLogFile(existing) = %q, %v", got, err)
	}
	if _, err := FindLogFile(existing + ".missing"); err == nil {
		t.Error("expected error for a missing explicit path")
	}
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestViewer_TailFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.log")
	writeLines(t, path,
		`{"time":"2026-01-02T10:00:00Z","level":"DEBUG","msg":"cache_hit"}`,
		`{"time":"2026-01-02T10:00:01Z","level":"WARN","msg":"shard_failed","shard":"plzs/1201"}`,
		`not json`,
		`{"time":"2026-01-02T10:00:02Z","level":"INFO","msg":"shard_search_done"}`,
	)

	v := NewViewer(ViewerConfig{Level: "info"}, &bytes.Buffer{})
	entries, err := v.Tail(path, 3)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Msg != "shard_failed" || entries[0].Attrs["shard"] != "plzs/1201" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].IsValid {
		t.Error("plain text line should be kept as invalid entry")
	}

	v = NewViewer(ViewerConfig{Pattern: regexp.MustCompile("shard_")}, &bytes.Buffer{})
	entries, _ = v.Tail(path, 10)
	if len(entries) != 2 {
		t.Errorf("pattern should keep 2 entries, got %d", len(entries))
	}
}

func TestViewer_FormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})
	entry := parseLine(`{"time":"2026-01-02T10:00:01.5Z","level":"WARN","msg":"shard_failed","b":2,"a":"x"}`)

	got := v.FormatEntry(entry)

	want := "10:00:01.500 WARN  shard_failed a=x b=2"
	if got != want {
		t.Errorf("FormatEntry = %q, want %q", got, want)
	}
}

func TestViewer_Follow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "follow.log")
	writeLines(t, path, `{"level":"INFO","msg":"before"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})
	entries := make(chan LogEntry, 4)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, entries) }()

	// Give Follow time to seek to the end before appending.
	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString(`{"level":"INFO","msg":"after"}` + "\n")
	_ = f.Close()

	select {
	case entry := <-entries:
		if entry.Msg != "after" {
			t.Errorf("expected the appended entry, got %q", entry.Msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for followed entry")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Follow returned %v", err)
	}
}
