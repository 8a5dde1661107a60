package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{" error ", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "info", "json")
	if err != nil {
		t.Fatalf("NewWithWriter() error = %v", err)
	}

	logger.Debug("hidden")
	logger.Info("stored result", zap.String("result_id", "01ABC"), zap.Int("placeholders", 3))
	_ = logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (debug filtered), got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "stored result" || entry["level"] != "info" || entry["logger"] != "pith" {
		t.Errorf("entry = %v", entry)
	}
	if entry["result_id"] != "01ABC" || entry["placeholders"] != float64(3) {
		t.Errorf("fields = %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("missing ts field")
	}
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "debug", "console")
	if err != nil {
		t.Fatalf("NewWithWriter() error = %v", err)
	}

	logger.Debug("compressed text")
	_ = logger.Sync()

	if !strings.Contains(buf.String(), "DEBUG") || !strings.Contains(buf.String(), "compressed text") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestNewWithWriter_Errors(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewWithWriter(&buf, "loud", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := NewWithWriter(&buf, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
