package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("test", "warn", &buf)
	l.Info("hidden")
	l.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=value") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv(levelEnv, "")
	if got := Level(); got != "info" {
		t.Errorf("Level() = %q, want %q", got, "info")
	}
	t.Setenv(levelEnv, "debug")
	if got := Level(); got != "debug" {
		t.Errorf("Level() = %q, want %q", got, "debug")
	}
}

func TestJSONFormat(t *testing.T) {
	t.Setenv(jsonEnv, "1")
	var buf bytes.Buffer
	New("json", "info", &buf).Info("hello")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

func TestOrNull(t *testing.T) {
	if OrNull(nil) == nil {
		t.Fatal("OrNull(nil) returned nil")
	}
	l := New("x", "info", &bytes.Buffer{})
	if OrNull(l) != l {
		t.Error("OrNull should return the given logger")
	}
}
