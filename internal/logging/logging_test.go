package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

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
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")

	line := strings.TrimSpace(buf.String())
	if strings.Contains(line, "hidden") {
		t.Fatal("debug record should be filtered at info level")
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", line, err)
	}
	if rec["msg"] != "shown" || rec["k"] != "v" {
		t.Errorf("record = %v", rec)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, "info", "text")

	FromContext(context.Background(), base).Info("no id")
	if strings.Contains(buf.String(), "request_id") {
		t.Fatal("no request_id expected without one in context")
	}

	buf.Reset()
	id := NewRequestID()
	ctx := WithRequestID(context.Background(), id)
	if RequestID(ctx) != id {
		t.Fatalf("RequestID = %q", RequestID(ctx))
	}
	FromContext(ctx, base).Info("with id")
	if !strings.Contains(buf.String(), "request_id="+id) {
		t.Errorf("log line missing request id: %q", buf.String())
	}
}
