package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Level = INFO

	log := New(config).WithComponent(ComponentApp)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("DEBUG message should be filtered out at INFO level")
	}
	for _, want := range []string{"info message", "warn message", "error message"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestLogger_Components(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Components[ComponentCipher] = false

	logger := New(config)
	logger.WithComponent(ComponentApp).Info("app message")
	logger.WithComponent(ComponentCipher).Info("cipher message")

	output := buf.String()
	if !strings.Contains(output, "app message") {
		t.Error("App message should appear")
	}
	if strings.Contains(output, "cipher message") {
		t.Error("Cipher message should be filtered out")
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Format = FormatJSON

	New(config).WithComponent(ComponentApp).Info("hello", map[string]any{"key": "value"})

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected valid JSON entry, got error: %v", err)
	}
	if entry.Message != "hello" {
		t.Errorf("Expected message 'hello', got %q", entry.Message)
	}
	if entry.Level != "INFO" {
		t.Errorf("Expected level INFO, got %q", entry.Level)
	}
	if entry.Fields["key"] != "value" {
		t.Errorf("Expected field key=value, got %v", entry.Fields)
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf

	New(config).WithComponent(ComponentDownloader).Info("progress", map[string]any{"bytes": 1024})

	if !strings.Contains(buf.String(), "bytes=1024") {
		t.Errorf("Expected fields in text output, got %q", buf.String())
	}
}

func TestVerboseConfig(t *testing.T) {
	cfg := VerboseConfig()
	if cfg.Level != DEBUG {
		t.Errorf("Expected DEBUG level, got %v", cfg.Level)
	}
	for c, enabled := range cfg.Components {
		if !enabled {
			t.Errorf("Expected component %s enabled in verbose config", c)
		}
	}
}
