package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

// TestParseLevel tests level name mapping.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

// TestExtraWriter verifies console lines reach the extra writer at the configured level.
func TestExtraWriter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Extra: &buf})

	log.Info("hidden")
	log.With("route", "ATL-CDG").Warn("shown", "legs", 1)
	_ = log.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info message filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "ATL-CDG") {
		t.Errorf("Expected warn message with context, got %q", out)
	}
}

// TestFileOutput verifies JSON entries land in the rotated log file.
func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "flightarcs.log")
	log := New(Options{Level: "debug", File: path, MaxSizeMB: 1})

	log.Debug("routes generated", "count", 3)
	if err := log.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var entry map[string]interface{}
	line := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)[0]
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", line, err)
	}
	if entry["msg"] != "routes generated" {
		t.Errorf("Expected msg 'routes generated', got %v", entry["msg"])
	}
	if entry["count"] != float64(3) {
		t.Errorf("Expected count 3, got %v", entry["count"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("Expected timestamp key")
	}
}

// TestNewNop verifies the no-op logger is usable.
func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Info("nothing")
	log.With("k", "v").Error("still nothing")
}
