package observability

import (
	"context"
	"testing"

	"github.com/agrovet/go-vetcare-client/internal/config"
)

func TestSetup_DisabledReturnsNoopShutdown(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.OTELConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected non-nil shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown returned error: %v", err)
	}
}

func TestSetup_EnabledBuildsProvider(t *testing.T) {
	// The OTLP gRPC client connects lazily, so setup succeeds without a
	// collector listening.
	cfg := config.OTELConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "go-vetcare-client-test",
		SampleRatio: 0.5,
	}
	shutdown, err := Setup(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Shutdown with an already-cancelled context must not hang.
	_ = shutdown(ctx)
}
