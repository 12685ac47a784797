// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerTo_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info", "json")

	logger.Info("client connected", "remote", "127.0.0.1:5000")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["msg"] != "client connected" {
		t.Errorf("expected msg field, got %v", entry["msg"])
	}
	if entry["remote"] != "127.0.0.1:5000" {
		t.Errorf("expected remote field, got %v", entry["remote"])
	}
}

func TestNewLoggerTo_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn", "text")

	logger.Info("suppressed")
	logger.Warn("queue full", "player", "alice")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Error("info log must be suppressed at warn level")
	}
	if !strings.Contains(out, "queue full") || !strings.Contains(out, "player=alice") {
		t.Errorf("warn log missing expected fields: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
