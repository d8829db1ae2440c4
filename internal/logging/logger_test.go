// Package logging includes tests for the zap logger helpers.
package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

// TestNewDevelopmentLogger confirms the development logger builds and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	if err != nil {
		t.Fatalf("New(true) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

// TestNewProductionLogger ensures the production logger configuration succeeds.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	if err != nil {
		t.Fatalf("New(false) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("production logger ready")
}

// TestContextLoggerRoundTrip checks request-scoped loggers survive the context.
func TestContextLoggerRoundTrip(t *testing.T) {
	t.Parallel()

	scoped := zap.NewNop().With(zap.String("request_id", "req-1"))
	ctx := IntoContext(context.Background(), scoped)
	if got := FromContext(ctx, nil); got != scoped {
		t.Fatalf("expected scoped logger, got %v", got)
	}
}

// TestFromContextFallback checks the fallback order when no logger is attached.
func TestFromContextFallback(t *testing.T) {
	t.Parallel()

	fallback := zap.NewNop()
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Fatal("expected fallback logger")
	}
	if got := FromContext(context.Background(), nil); got == nil {
		t.Fatal("expected global logger when no fallback given")
	}
}
