package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"storefront/internal/client"
	"storefront/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// probeTimeout bounds a health check regardless of the client timeout.
const probeTimeout = 2 * time.Second

var HealthServiceTracer = otel.Tracer("HealthService")

// HealthService reports whether the product API answers.
type HealthService struct {
	api *client.HTTPClient
}

// HealthStatus is the outcome of one probe. Products is only meaningful when Up.
type HealthStatus struct {
	API      string
	Latency  time.Duration
	Products int
	Error    string
}

func (h HealthStatus) Up() bool { return h.API == "UP" }

func NewHealthService(api *client.HTTPClient) *HealthService {
	return &HealthService{api: api}
}

// Check lists the catalogue once and counts what came back.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	ctx, span := HealthServiceTracer.Start(ctx, "HealthService.Check")
	defer span.End()

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var items []json.RawMessage
	start := time.Now()
	_, err := s.api.Get(probeCtx, "/products", &items)
	status := HealthStatus{API: "UP", Latency: time.Since(start), Products: len(items)}
	if err != nil {
		status = HealthStatus{API: "DOWN", Latency: status.Latency, Error: err.Error()}
		span.RecordError(err)
	}

	span.SetAttributes(attribute.String("api.status", status.API), attribute.Int("api.products", status.Products))
	logger.Debug(ctx, "Health probe", slog.String("api", status.API), slog.Duration("latency", status.Latency))
	return status
}
