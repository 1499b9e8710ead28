package middleware_http

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("HttpMiddleware")

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// captureBody tees what the caller reads from the response into buf, up to
// limit bytes, and calls onDone once the caller closes the body. A zero limit
// buffers nothing.
type captureBody struct {
	io.ReadCloser
	buf    bytes.Buffer
	limit  int
	onDone func(body []byte)
	done   bool
}

func (c *captureBody) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	if n > 0 && c.buf.Len() < c.limit {
		toCopy := c.limit - c.buf.Len()
		if n < toCopy {
			toCopy = n
		}
		c.buf.Write(p[:toCopy])
	}
	return n, err
}

func (c *captureBody) Close() error {
	err := c.ReadCloser.Close()
	if !c.done {
		c.done = true
		c.onDone(c.buf.Bytes())
	}
	return err
}

// TraceTransport wraps an outgoing transport with a client span per round trip
// and propagates that span in the request headers. Request and response
// details are logged at debug level; failed responses are logged as warnings.
func TraceTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindClient))

		// a RoundTripper must not modify the caller's request
		req := r.Clone(ctx)
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

		debug := logger.Instance().Enabled(ctx, slog.LevelDebug)
		if debug {
			logger.Debug(ctx, "HTTP", logger.RequestAttrs(req)...)
		}

		start := time.Now()
		resp, err := next.RoundTrip(req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transport error")
			span.End()
			logger.Warn(ctx, "HTTP transport error", logger.Err(err))
			return nil, err
		}

		if resp.StatusCode >= 500 {
			span.SetStatus(codes.Error, "server error")
		} else if resp.StatusCode >= 400 {
			span.SetStatus(codes.Error, "client error")
		} else {
			span.SetStatus(codes.Ok, "")
		}

		failed := resp.StatusCode >= 400
		limit := 0
		if debug || failed {
			limit = logger.BodySampleLimit
		}
		resp.Body = &captureBody{
			ReadCloser: resp.Body,
			limit:      limit,
			onDone: func(body []byte) {
				defer span.End()
				if limit == 0 {
					return
				}
				attrs := logger.ResponseAttrs(req, resp.StatusCode, resp.Header, body, time.Since(start))
				if failed {
					logger.Warn(ctx, "HTTP", attrs...)
					return
				}
				logger.Debug(ctx, "HTTP", attrs...)
			},
		}
		return resp, nil
	})
}
