package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tether/internal/services"
)

func TestPrettyHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	logger := slog.New(newPrettyHandler(&buf, levelVar, false))
	logger = logger.With(String(FieldComponent, "scheduler"))
	logger.Info("pass complete", Int("items", 12), String("outcome", "healthy"))

	line := buf.String()
	if !strings.Contains(line, "INFO scheduler: pass complete") {
		t.Errorf("unexpected line format: %q", line)
	}
	if !strings.Contains(line, "items=12") {
		t.Errorf("expected items attr in %q", line)
	}
	if !strings.Contains(line, "outcome=healthy") {
		t.Errorf("expected outcome attr in %q", line)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	logger := slog.New(newPrettyHandler(&buf, levelVar, false))
	logger.Info("msg", String("name", "Some Torrent Name"))

	if !strings.Contains(buf.String(), `name="Some Torrent Name"`) {
		t.Errorf("expected quoted value in %q", buf.String())
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)

	logger := slog.New(newPrettyHandler(&buf, levelVar, false))
	logger.Info("filtered")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "filtered") {
		t.Error("info message should have been filtered")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn message should have been logged")
	}
}

func TestJSONHandlerFieldNames(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	logger := slog.New(newJSONHandler(&buf, levelVar, false))
	logger.Info("hello", String("k", "v"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record["msg"] != "hello" {
		t.Errorf("expected msg field, got %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Errorf("expected lowercase level, got %v", record["level"])
	}
	ts, ok := record["ts"].(string)
	if !ok {
		t.Fatalf("expected ts string, got %v", record["ts"])
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("ts not RFC3339: %v", err)
	}
}

func TestNewWritesToFile(t *testing.T) {
	tmp := t.TempDir()
	logPath := filepath.Join(tmp, "nested", "tether.log")

	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("to file")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file missing message: %q", string(data))
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsItemFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	ctx := services.WithItemHash(context.Background(), "ABCDEF0123456789ABCDEF0123456789ABCDEF01")
	ctx = services.WithPassID(ctx, "pass-1")

	WithContext(ctx, logger).Info("checking item")

	line := buf.String()
	if !strings.Contains(line, "item_hash=ABCDEF0123456789ABCDEF0123456789ABCDEF01") {
		t.Errorf("expected item_hash in %q", line)
	}
	if !strings.Contains(line, "pass_id=pass-1") {
		t.Errorf("expected pass_id in %q", line)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	tmp := t.TempDir()
	oldFile := filepath.Join(tmp, "tether-old.log")
	newFile := filepath.Join(tmp, "tether-new.log")
	keepFile := filepath.Join(tmp, "tether.log")
	for _, p := range []string{oldFile, newFile, keepFile} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	past := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(oldFile, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(keepFile, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	CleanupOldLogs(NewNop(), 7, RetentionTarget{
		Dir:     tmp,
		Pattern: "tether-*.log",
		Exclude: []string{keepFile},
	})

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("old file should have been removed")
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Error("recent file should remain")
	}
	if _, err := os.Stat(keepFile); err != nil {
		t.Error("excluded file should remain")
	}
}
