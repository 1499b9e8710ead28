package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var HttpClientTracer = otel.Tracer("HttpClient")

const (
	HeaderContentType = "Content-Type"
	HeaderRequestID   = "X-Request-ID"

	ContentTypeJSON = "application/json"
)

// HTTPClient talks to one API rooted at baseURL. It never retries and has no
// timeout of its own; callers bound requests through their context.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	headers map[string]string
}

type request struct {
	headers http.Header
	query   url.Values
}

// Option adjusts a single request.
type Option func(*request)

func WithQuery(key, value string) Option {
	return func(r *request) { r.query.Set(key, value) }
}

func WithHeader(key, value string) Option {
	return func(r *request) { r.headers.Set(key, value) }
}

// Response carries the raw outcome of a successful request.
type Response struct {
	StatusCode int
	Headers    http.Header
	RawBody    []byte
}

// NewHTTPClient creates a client with the JSON content type as default header.
// A nil transport means http.DefaultTransport.
func NewHTTPClient(baseURL string, transport http.RoundTripper) *HTTPClient {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &HTTPClient{
		client:  &http.Client{Transport: transport},
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: map[string]string{HeaderContentType: ContentTypeJSON},
	}
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Do performs the request and decodes a JSON body into result when result is
// non-nil and the body is non-empty. *[]byte and *string receive the raw body.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body, result any, opts ...Option) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	r := request{headers: http.Header{}, query: url.Values{}}
	for _, opt := range opts {
		opt(&r)
	}

	fullURL, err := c.buildURL(path, r.query)
	if err != nil {
		logger.Error(ctx, "Failed to build URL", logger.Err(err))
		return nil, fmt.Errorf("build URL: %w", err)
	}

	payload, contentType, err := encodeBody(body)
	if err != nil {
		logger.Error(ctx, "Failed to encode body", logger.Err(err))
		return nil, fmt.Errorf("encode body: %w", err)
	}

	ctx, span := HttpClientTracer.Start(ctx, "HttpClient "+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", fullURL),
		),
	)
	defer span.End()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		logger.Error(ctx, "Failed to create request", logger.Err(err))
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	c.setHeaders(req, r.headers, contentType)
	req.Header.Set(HeaderRequestID, requestID)
	// TraceTransport, when installed, re-injects from its own client span
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	span.SetAttributes(attribute.String("http.request.id", requestID))

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		logger.Error(ctx, "Failed to execute request",
			logger.Err(err),
			slog.String("method", method),
			slog.String("url", fullURL),
		)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body failed")
		logger.Error(ctx, "Failed to read response body", logger.Err(err))
		return nil, fmt.Errorf("read response body: %w", err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		RawBody:    rawBody,
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if !out.IsSuccess() {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		return out, &APIError{
			Method:     method,
			URL:        path,
			StatusCode: resp.StatusCode,
			Body:       rawBody,
		}
	}

	if result != nil && len(rawBody) > 0 {
		if err := decodeInto(result, rawBody); err != nil {
			span.RecordError(err)
			logger.Error(ctx, "Failed to parse response", logger.Err(err))
			return out, fmt.Errorf("parse response: %w", err)
		}
	}

	return out, nil
}

func (c *HTTPClient) Get(ctx context.Context, path string, result any, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, result, opts...)
}

func (c *HTTPClient) Post(ctx context.Context, path string, body, result any, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, result, opts...)
}

func (c *HTTPClient) Put(ctx context.Context, path string, body, result any, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, result, opts...)
}

func (c *HTTPClient) Delete(ctx context.Context, path string, result any, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, result, opts...)
}

// buildURL resolves path below the base URL; a leading slash does not escape it.
func (c *HTTPClient) buildURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// encodeBody returns the wire bytes plus a content type that overrides the
// default header. An empty content type keeps the default.
func encodeBody(body any) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		return v.Encode()
	case []byte:
		return v, "", nil
	case string:
		return []byte(v), "", nil
	case io.Reader:
		b, err := io.ReadAll(v)
		return b, "", err
	default:
		b, err := json.Marshal(body)
		return b, "", err
	}
}

// setHeaders applies defaults, then per-request headers, then the body's own
// content type. Requests without a body carry no Content-Type.
func (c *HTTPClient) setHeaders(req *http.Request, headers http.Header, contentType string) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, vs := range headers {
		req.Header[k] = vs
	}

	if contentType != "" {
		req.Header.Set(HeaderContentType, contentType)
	}

	if req.Body == nil || req.Body == http.NoBody {
		req.Header.Del(HeaderContentType)
	}
}

func decodeInto(result any, rawBody []byte) error {
	switch v := result.(type) {
	case *[]byte:
		*v = rawBody
		return nil
	case *string:
		*v = string(rawBody)
		return nil
	default:
		return json.Unmarshal(rawBody, result)
	}
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
