package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "debug", "json")

	Error("fetch failed", errors.New("boom"), "table", "appeal")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "fetch failed" {
		t.Errorf("Expected msg 'fetch failed', got %v", entry["msg"])
	}
	if entry["error"] != "boom" {
		t.Errorf("Expected error attribute 'boom', got %v", entry["error"])
	}
	if entry["table"] != "appeal" {
		t.Errorf("Expected table attribute 'appeal', got %v", entry["table"])
	}
}

func TestConfigureLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "warn", "text")

	Info("hidden")
	Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("Warn message should be logged at warn level")
	}
}
