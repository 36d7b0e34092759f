package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestFeedHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&feedHandler{w: &buf, opID: "op-1"})

	logger.Info("snap added", "id", 3, "username", "alice")

	line := buf.String()
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("log line not newline-terminated: %q", line)
	}

	fields := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
	if len(fields) != 6 {
		t.Fatalf("field count = %d, want 6 (%q)", len(fields), line)
	}

	if fields[1] != "INFO" {
		t.Errorf("level = %q, want %q", fields[1], "INFO")
	}
	if fields[2] != "op-1" {
		t.Errorf("opID = %q, want %q", fields[2], "op-1")
	}
	if fields[3] != "snap added" {
		t.Errorf("message = %q, want %q", fields[3], "snap added")
	}
	if fields[4] != "id=3" {
		t.Errorf("attr = %q, want %q", fields[4], "id=3")
	}
	if fields[5] != "username=alice" {
		t.Errorf("attr = %q, want %q", fields[5], "username=alice")
	}
}

func TestFeedHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&feedHandler{w: &buf, opID: "op-2"}).With("op", "AddSnap")

	logger.Warn("deleting image file", "image", "x.jpg")

	line := buf.String()
	if !strings.Contains(line, "\top=AddSnap\t") {
		t.Errorf("pre-set attr missing from line: %q", line)
	}
	if !strings.Contains(line, "\timage=x.jpg") {
		t.Errorf("per-record attr missing from line: %q", line)
	}
	if !strings.Contains(line, "\tWARN\t") {
		t.Errorf("level missing from line: %q", line)
	}
}

func TestNewLogger_WritesToFile(t *testing.T) {
	logDir := t.TempDir()

	logger, f, err := newLogger(logDir, "op-3")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Info("snap deleted", "id", 7)

	if f.Name() == "" {
		t.Error("log file has no name")
	}
	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() == 0 {
		t.Error("log file is empty after write")
	}
}
