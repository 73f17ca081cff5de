package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expect    slog.Level
		expectErr bool
	}{
		{"debug", "debug", slog.LevelDebug, false},
		{"default-info", "", slog.LevelInfo, false},
		{"warn", "warn", slog.LevelWarn, false},
		{"warning-alias", "WARNING", slog.LevelWarn, false},
		{"error", "error", slog.LevelError, false},
		{"invalid", "verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := levelFromString(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error for input %q", tt.input)
				}
				if !strings.Contains(err.Error(), "invalid log level") {
					t.Fatalf("unexpected error message: %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if level != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, level)
			}
		})
	}
}

func TestNewWithFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	l, err := New(Config{Level: "info", Environment: "prod", FilePath: path})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	l.Info("hello", "video_id", "abc")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), `"video_id":"abc"`) {
		t.Fatalf("expected JSON record in log file, got %q", string(data))
	}
}

func TestNewJSONFormatOutsideProd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.log")

	l, err := New(Config{Level: "debug", Environment: "dev", Format: "json", FilePath: path})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	l.Debug("extract", "stage", "extract")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), `"stage":"extract"`) {
		t.Fatalf("expected JSON record with LOG_FORMAT=json, got %q", string(data))
	}
}

func TestLogStage(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogStage(l, "extract", "success", "vid-1", 42, "")
	LogStage(l, "transcribe", "error", "vid-1", 7, "transcription_failed")

	out := buf.String()
	if !strings.Contains(out, "stage=extract") || !strings.Contains(out, "duration_ms=42") {
		t.Fatalf("missing success attributes: %s", out)
	}
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "error_kind=transcription_failed") {
		t.Fatalf("missing error attributes: %s", out)
	}
}

func TestInitSetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		// reset singleton for other tests
		once = sync.Once{}
		global = nil
		slog.SetDefault(prev)
	})

	logger, err := Init(Config{Level: "debug", Environment: "dev", WithSource: true})
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	if logger == nil {
		t.Fatalf("Init returned nil logger")
	}

	if slog.Default() != logger {
		t.Fatalf("Init did not install logger as slog default")
	}

	// second init should return same instance without error
	logger2, err := Init(Config{Level: "info", Environment: "prod"})
	if err != nil {
		t.Fatalf("unexpected error on second init: %v", err)
	}
	if logger2 != logger {
		t.Fatalf("expected same logger instance on re-init")
	}
}
