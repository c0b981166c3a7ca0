package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestStructuredLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climatology-api", "1.2.3", InfoLevel)
	logger.SetOutput(&buf)

	ctx := WithRequestID(context.Background(), "req-42")
	logger.Info(ctx, "[TEST] hello", Fields{"station_id": "21205580"})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry["message"] != "[TEST] hello" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
	if entry["service"] != "climatology-api" {
		t.Errorf("service = %v", entry["service"])
	}
	if entry["version"] != "1.2.3" {
		t.Errorf("version = %v", entry["version"])
	}
	if entry["request_id"] != "req-42" {
		t.Errorf("request_id = %v", entry["request_id"])
	}

	fields, ok := entry["fields"].(map[string]interface{})
	if !ok {
		t.Fatalf("fields missing: %v", entry)
	}
	if fields["station_id"] != "21205580" {
		t.Errorf("fields.station_id = %v", fields["station_id"])
	}
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "0", InfoLevel)
	logger.SetOutput(&buf)

	logger.Debug(context.Background(), "hidden", Fields{})
	if buf.Len() != 0 {
		t.Errorf("debug entry written at info level: %s", buf.String())
	}

	logger.SetLevel(DebugLevel)
	logger.Debug(context.Background(), "visible", nil)
	if len(decodeLines(t, &buf)) != 1 {
		t.Errorf("debug entry not written after SetLevel(DebugLevel)")
	}
}

func TestStructuredLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "0", InfoLevel)
	logger.SetOutput(&buf)

	logger.Error(context.Background(), "[FAIL] boom", Fields{"attempt": 1}, errors.New("disk full"))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", entries[0]["level"])
	}
	if entries[0]["error"] != "disk full" {
		t.Errorf("error = %v", entries[0]["error"])
	}
	if _, ok := entries[0]["file"]; !ok {
		t.Error("caller information missing on error entry")
	}
}

func TestContextLogger_MergeFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "0", InfoLevel)
	logger.SetOutput(&buf)

	scoped := logger.WithFields(Fields{"component": "store", "station_id": "old"})
	scoped.Warn(context.Background(), "scoped", Fields{"station_id": "new"})

	entries := decodeLines(t, &buf)
	fields := entries[0]["fields"].(map[string]interface{})
	if fields["component"] != "store" {
		t.Errorf("component = %v", fields["component"])
	}
	if fields["station_id"] != "new" {
		t.Errorf("station_id = %v, want override", fields["station_id"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"DEBUG":   DebugLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"info":    InfoLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}

	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
