package tracer

import (
	"context"
	"testing"

	"storefront/internal/config"

	"go.opentelemetry.io/otel"
)

func TestNewExporterSelection(t *testing.T) {
	ctx := context.Background()

	exp, err := newExporter(ctx, &config.Config{})
	if err != nil || exp != nil {
		t.Fatalf("no exporter configured: got %v, %v", exp, err)
	}

	exp, err = newExporter(ctx, &config.Config{TraceStdout: true})
	if err != nil || exp == nil {
		t.Fatalf("stdout exporter: got %v, %v", exp, err)
	}
	_ = exp.Shutdown(ctx)
}

func TestSetupWithoutExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	stop, err := setup(context.Background(), &config.Config{AppName: "storefront-test"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "probe")
	if !span.SpanContext().IsValid() {
		t.Error("expected a recording span from the installed provider")
	}
	span.End()
	stop()
}
