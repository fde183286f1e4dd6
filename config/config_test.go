package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := NewLoader("").Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DockWidth != 120 || cfg.WatchlistDelay != 13*time.Second || cfg.ModalCloseDelay != 300*time.Millisecond {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.PageSize != 10 || cfg.BaseURL == "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "yentui.yaml")
	content := "base_url: http://backend:8080\npage_size: 20\nwatchlist_delay: 2s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("YENTUI_DOCK_WIDTH", "140")

	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.BaseURL != "http://backend:8080" || cfg.PageSize != 20 || cfg.WatchlistDelay != 2*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.DockWidth != 140 {
		t.Fatalf("env override not applied: %d", cfg.DockWidth)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "yentui.yaml")
	if err := os.WriteFile(path, []byte("page_size: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader(path).Load(); err == nil || !strings.Contains(err.Error(), "page_size") {
		t.Fatalf("expected page_size error, got %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestOpenLogFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "yentui.log")
	f, err := OpenLogFile(path)
	if err != nil {
		t.Fatalf("OpenLogFile error: %v", err)
	}
	f.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
}

func TestDefaultMatchesLoader(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() invalid: %v", err)
	}
	if cfg.PageSize != 10 || cfg.DockWidth != 120 || cfg.Timeout != 30*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}
