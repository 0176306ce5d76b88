package logx

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriterLoggerFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriter(&buf, LevelInfo).With(String("comp", "test"))
	log.Warn("something happened", Int("count", 3))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output not JSON: %v\n%s", err, buf.String())
	}
	if line["level"] != "warn" || line["message"] != "something happened" {
		t.Fatalf("line = %v", line)
	}
	if line["comp"] != "test" {
		t.Fatalf("With field missing: %v", line)
	}
	if line["count"] != float64(3) {
		t.Fatalf("call-site field missing: %v", line)
	}
}

func TestWriterLoggerLevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriter(&buf, LevelWarn)
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line written despite warn level: %s", buf.String())
	}
	log.Error("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("error line missing: %s", buf.String())
	}
}

func TestNopLoggerWritesNothing(t *testing.T) {
	t.Parallel()

	// Zero value and Nop() must both be safe no-ops.
	var zero Logger
	zero.Info("ignored")
	Nop().Error("ignored", Err(os.ErrClosed))
	if !zero.IsZero() {
		t.Fatal("zero Logger not reported as zero")
	}
	if Nop().IsZero() {
		t.Fatal("Nop() reported as zero")
	}
}

func TestServiceFileSinkAndApply(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	svc, log := New(Config{
		Level: "debug",
		File:  FileConfig{Enabled: true, Path: path},
	})
	defer svc.Close()

	log.Info("first")

	// Raise the level at runtime; the held Logger must pick it up.
	svc.Apply(Config{
		Level: "error",
		File:  FileConfig{Enabled: true, Path: path},
	})
	log.Info("suppressed")
	log.Error("second")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, "first") || !strings.Contains(out, "second") {
		t.Fatalf("log file missing entries:\n%s", out)
	}
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info line written after level raise:\n%s", out)
	}
}

func TestServiceApplyBadFilePath(t *testing.T) {
	t.Parallel()

	good := filepath.Join(t.TempDir(), "app.log")
	svc, log := New(Config{
		Level: "info",
		File:  FileConfig{Enabled: true, Path: good},
	})
	defer svc.Close()

	// A directory cannot be opened as a log file; Apply must warn and
	// carry on rather than fail the swap.
	svc.Apply(Config{
		Level: "info",
		File:  FileConfig{Enabled: true, Path: t.TempDir()},
	})
	log.Info("still alive")
}
