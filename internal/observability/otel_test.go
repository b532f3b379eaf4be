package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/crazychat/chat-backend/internal/config"
)

// restoreGlobals undoes the process-wide provider/propagator swap so tests
// stay independent.
func restoreGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func testConfig(insecure bool) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    insecure,
		Endpoint:    "localhost:4317",
		ServiceName: "chat-backend",
		SampleRatio: 1.0,
	}
}

func TestSetupOTel_DisabledIsNoop(t *testing.T) {
	restoreGlobals(t)

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled:  false,
		Endpoint: "ignored:4317",
	}, "dev")
	if err != nil {
		t.Fatalf("disabled setup: %v", err)
	}
	// Callers defer shutdown unconditionally, so it must exist and succeed.
	if shutdown == nil {
		t.Fatalf("expected a shutdown func even when disabled")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupOTel_InstallsProviderAndPropagator(t *testing.T) {
	restoreGlobals(t)

	shutdown, err := SetupOTel(context.Background(), testConfig(true), "dev")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("global tracer provider not installed")
	}

	// Trace context must round-trip through the installed propagator; this is
	// what ties otelgin request spans to the service and gorm spans below.
	ctx, span := otel.Tracer("chat-backend-test").Start(context.Background(), "history")
	span.End()
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if carrier.Get("traceparent") == "" {
		t.Fatalf("propagator did not inject traceparent, carrier=%v", carrier)
	}
	_ = otel.GetTextMapPropagator().Extract(context.Background(), carrier)
}

func TestSetupOTel_TLSCredentials(t *testing.T) {
	restoreGlobals(t)

	// The exporter connects lazily, so the TLS branch succeeds without a
	// collector listening.
	shutdown, err := SetupOTel(context.Background(), testConfig(false), "dev")
	if err != nil {
		t.Fatalf("tls setup: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("global tracer provider not installed")
	}
}

func TestSetupOTel_ShutdownHonorsTimeout(t *testing.T) {
	restoreGlobals(t)

	shutdown, err := SetupOTel(context.Background(), testConfig(true), "dev")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
