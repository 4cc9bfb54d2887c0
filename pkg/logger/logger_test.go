package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}
}

// Basic logging test (slog-backed; no Sugar)
func TestLoggerBasic(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	ctx := context.Background()
	l.Info(ctx, "test message", String("k", "v"), Int("n", 3))

	out := buf.String()
	if !strings.Contains(out, "test message") || !strings.Contains(out, "k=v") || !strings.Contains(out, "n=3") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(out, "source=") || !strings.Contains(out, "logger_test.go") {
		t.Fatalf("expected caller source in output: %q", out)
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	named := New(&buf, WithoutCaller()).Named("api")
	if named == nil {
		t.Fatal("named logger is nil")
	}

	named.Info(context.Background(), "test message", String("user", "a"))
	if !strings.Contains(buf.String(), "api.user=a") {
		t.Fatalf("expected grouped attribute, got %q", buf.String())
	}
}

func TestLoggerWithAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WithoutCaller()).With(String("component", "upload"))

	ctx := ContextWithRequestID(context.Background(), "req-1")
	l.Warn(ctx, "careful", Error(errors.New("boom")))

	out := buf.String()
	for _, want := range []string{"component=upload", "request_id=req-1", "error=boom", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("expected empty request id on bare context")
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WithLevel(slog.LevelWarn))

	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "hidden too")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}

	l.Error(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected error record, got %q", buf.String())
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, WithJSON(), WithoutCaller()).Info(context.Background(), "json", String("k", "v"))
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
}

func TestSetLevelString(t *testing.T) {
	cases := map[string]bool{
		"debug":   true,
		"INFO":    true,
		"":        true,
		"warning": true,
		"error":   true,
		"verbose": false,
	}
	for in, ok := range cases {
		err := SetLevelString(in)
		if ok && err != nil {
			t.Errorf("SetLevelString(%q) unexpected error: %v", in, err)
		}
		if !ok && err == nil {
			t.Errorf("SetLevelString(%q) expected error", in)
		}
	}
	_ = SetLevelString("info")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info(context.Background(), "discarded")
	l.Named("x").With(String("a", "b")).Error(context.Background(), "discarded")
}
