package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestDualHandlerMirrorsErrorsToSecondary(t *testing.T) {
	t.Cleanup(EnableErrorMirroring)
	EnableErrorMirroring()

	var primaryBuf bytes.Buffer
	var secondaryBuf bytes.Buffer

	primary := slog.NewTextHandler(&primaryBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	secondary := slog.NewTextHandler(&secondaryBuf, &slog.HandlerOptions{Level: slog.LevelError})
	logger := slog.New(NewDualHandler(primary, secondary))

	logger.Error("outcome handler failed", slog.String("subject", "chapter-1.md"))
	logger.Info("timer started")

	if got := primaryBuf.String(); !strings.Contains(got, "outcome handler failed") || !strings.Contains(got, "timer started") {
		t.Fatalf("expected primary log to contain both messages, got %q", got)
	}

	if got := secondaryBuf.String(); !strings.Contains(got, "outcome handler failed") {
		t.Fatalf("expected secondary log to contain error message, got %q", got)
	}

	if got := secondaryBuf.String(); strings.Contains(got, "timer started") {
		t.Fatalf("secondary log should not contain info message, got %q", got)
	}
}

func TestDualHandlerCanDisableMirroring(t *testing.T) {
	t.Cleanup(EnableErrorMirroring)
	DisableErrorMirroring()

	var primaryBuf bytes.Buffer
	var secondaryBuf bytes.Buffer

	primary := slog.NewTextHandler(&primaryBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	secondary := slog.NewTextHandler(&secondaryBuf, &slog.HandlerOptions{Level: slog.LevelError})
	logger := slog.New(NewDualHandler(primary, secondary))

	logger.Error("tick failed")

	if got := primaryBuf.String(); !strings.Contains(got, "tick failed") {
		t.Fatalf("expected primary log to contain error message, got %q", got)
	}

	if got := secondaryBuf.String(); got != "" {
		t.Fatalf("expected secondary log to be empty when mirroring disabled, got %q", got)
	}
}
