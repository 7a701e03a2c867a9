package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func levelVar(level slog.Level) *slog.LevelVar {
	lv := new(slog.LevelVar)
	lv.Set(level)
	return lv
}

func TestConsoleHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, levelVar(slog.LevelInfo)))
	logger = WithComponent(logger, "scan")

	logger.Info("probe complete", Int("count", 3), String("receiver", "rx1:8073"))

	line := buf.String()
	for _, want := range []string{"INFO", "scan:", "probe complete", "count=3", "receiver=rx1:8073"} {
		if !strings.Contains(line, want) {
			t.Errorf("console line missing %q: %s", want, line)
		}
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, levelVar(slog.LevelInfo)))

	logger.Info("msg", String("reason", "two words"))

	if !strings.Contains(buf.String(), `reason="two words"`) {
		t.Fatalf("expected quoted value in %s", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newJSONHandler(&buf, levelVar(slog.LevelInfo)))
	logger.Info("published", String("occurrence", "20260110_0048"), Duration("took", 2*time.Second))

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if doc["msg"] != "published" {
		t.Fatalf("msg = %v", doc["msg"])
	}
	if doc["occurrence"] != "20260110_0048" {
		t.Fatalf("occurrence = %v", doc["occurrence"])
	}
	if doc["level"] != "info" {
		t.Fatalf("level = %v", doc["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, levelVar(slog.LevelWarn)))

	logger.Info("suppressed")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatal("info record leaked through warn-level handler")
	}
	if !strings.Contains(out, "kept") {
		t.Fatal("warn record missing")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger must not be enabled")
	}
}
