package tracer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/version"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"github.com/grafana/pyroscope-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"google.golang.org/grpc/credentials/insecure"
)

const shutdownTimeout = 5 * time.Second

var (
	once     sync.Once
	shutdown func()
	initErr  error
)

var pyroLogrus = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	return l
}()

// newExporter picks the span exporter from config. A nil exporter with a nil
// error means spans are recorded but never shipped.
func newExporter(ctx context.Context, cfg *config.Config) (trace.SpanExporter, error) {
	if cfg.RemoteTraceRpcURI != "" {
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.RemoteTraceRpcURI),
			otlptracegrpc.WithCompressor("gzip"),
		}
		if cfg.RemoteTraceInsecure {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		return otlptracegrpc.New(ctx, opts...)
	}
	if cfg.TraceStdout {
		return stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	}
	return nil, nil
}

func newProvider(ctx context.Context, cfg *config.Config) (*trace.TracerProvider, error) {
	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.AppName),
		semconv.ServiceVersionKey.String(version.Version),
		attribute.String("host", logger.Hostname()),
	))
	if err != nil {
		return nil, err
	}

	opts := []trace.TracerProviderOption{trace.WithResource(res)}
	if exp != nil {
		opts = append(opts, trace.WithBatcher(exp))
	}
	return trace.NewTracerProvider(opts...), nil
}

// startProfiler is a no-op without REMOTE_PROFILING_HTTP_URI.
func startProfiler(cfg *config.Config) (*pyroscope.Profiler, error) {
	if cfg.RemoteProfilingHttpURI == "" {
		return nil, nil
	}
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.AppName,
		ServerAddress:   cfg.RemoteProfilingHttpURI,
		Logger:          pyroLogrus,
	})
}

// setup installs the global provider and propagators for cfg. A profiler that
// fails to start is logged and skipped; tracing still works without it.
func setup(ctx context.Context, cfg *config.Config) (func(), error) {
	log := logger.Instance()

	tp, err := newProvider(ctx, cfg)
	if err != nil {
		return func() {}, err
	}
	otel.SetTracerProvider(otelpyroscope.NewTracerProvider(tp))
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	profiler, err := startProfiler(cfg)
	if err != nil {
		log.Error("Pyroscope failed to start", logger.Err(err))
	}
	log.Debug("Telemetry ready",
		slog.Bool("trace.export", cfg.RemoteTraceRpcURI != "" || cfg.TraceStdout),
		slog.Bool("profiling", profiler != nil))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		errs = append(errs, tp.Shutdown(ctx))
		if profiler != nil {
			errs = append(errs, profiler.Stop())
		}
		if err := errors.Join(errs...); err != nil {
			log.Error("Telemetry shutdown", logger.Err(err))
		}
	}, nil
}

// Instance sets telemetry up once per process. The returned func flushes
// pending spans and stops the profiler; it is safe to call even when setup
// failed.
func Instance(globalCtx context.Context) (func(), error) {
	once.Do(func() {
		shutdown, initErr = setup(globalCtx, config.Instance())
		if initErr != nil {
			logger.Instance().Error("Telemetry setup failed", logger.Err(initErr))
		}
	})
	return shutdown, initErr
}
