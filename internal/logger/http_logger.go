package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// BodySampleLimit caps how much of a request or response body is kept for logging.
const BodySampleLimit = 64 << 10

const textSampleLimit = 512

// Canonical header keys, logged in this order.
var loggedHeaders = []string{
	"Content-Type",
	"Content-Length",
	"User-Agent",
	"X-Request-Id",
	"Traceparent",
	"Authorization",
	"Set-Cookie",
}

var secretHeaders = map[string]bool{"Authorization": true, "Set-Cookie": true}

var secretFields = []string{"password", "token", "secret"}

func HeaderAttrs(h http.Header) []slog.Attr {
	var attrs []slog.Attr
	for _, name := range loggedHeaders {
		values := h.Values(name)
		if len(values) == 0 {
			continue
		}
		v := strings.Join(values, ", ")
		if secretHeaders[name] {
			v = "***"
		}
		attrs = append(attrs, slog.String("http.header."+strings.ToLower(name), v))
	}
	return attrs
}

// QueryAttrs emits one attribute per query key, sorted by key.
func QueryAttrs(q url.Values) []slog.Attr {
	keys := make([]string, 0, len(q))
	for k, v := range q {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.String("http.query."+k, strings.Join(q[k], ",")))
	}
	return attrs
}

// BodyAttrs summarises a body by media type. JSON is flattened, multipart
// uploads are listed part by part, text is sampled and anything else is
// reduced to its size and sniffed type.
func BodyAttrs(contentType string, body []byte) []slog.Attr {
	if len(body) == 0 {
		return nil
	}
	mediaType, params, _ := mime.ParseMediaType(contentType)
	switch {
	case mediaType == "application/json":
		return jsonAttrs("http.body", body)
	case strings.HasPrefix(mediaType, "multipart/"):
		return multipartAttrs(body, params["boundary"])
	case strings.HasPrefix(mediaType, "text/"):
		s := string(body)
		if len(s) > textSampleLimit {
			s = s[:textSampleLimit] + "..."
		}
		return []slog.Attr{slog.String("http.body", s)}
	default:
		return []slog.Attr{
			slog.Int("http.body.size_bytes", len(body)),
			slog.String("http.body.detected_type", mimetype.Detect(body).String()),
		}
	}
}

func jsonAttrs(prefix string, b []byte) []slog.Attr {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return []slog.Attr{slog.String(prefix, string(b))}
	}
	var attrs []slog.Attr
	flatten(prefix, "", v, &attrs)
	return attrs
}

// flatten walks a decoded JSON value. Arrays contribute their length and first
// element only, since a product list would otherwise flood the record.
func flatten(prefix, key string, v any, dst *[]slog.Attr) {
	if isSecret(key) {
		*dst = append(*dst, slog.String(prefix, "***"))
		return
	}
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flatten(prefix+"."+k, k, child, dst)
		}
	case []any:
		*dst = append(*dst, slog.Int(prefix+".len", len(t)))
		if len(t) > 0 {
			flatten(prefix+".0", "", t[0], dst)
		}
	case json.Number:
		// numbers stay as text so prices keep their exact digits
		*dst = append(*dst, slog.String(prefix, t.String()))
	case string:
		*dst = append(*dst, slog.String(prefix, t))
	case bool:
		*dst = append(*dst, slog.Bool(prefix, t))
	}
}

func isSecret(key string) bool {
	key = strings.ToLower(key)
	for _, s := range secretFields {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// multipartAttrs lists form fields and files. A body cut short by
// BodySampleLimit is marked truncated rather than failing.
func multipartAttrs(body []byte, boundary string) []slog.Attr {
	if boundary == "" {
		return []slog.Attr{slog.Int("http.body.size_bytes", len(body))}
	}
	var attrs []slog.Attr
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return attrs
		}
		if err != nil {
			return append(attrs, slog.Bool("http.body.truncated", true))
		}
		prefix := "http.body." + part.FormName()
		data, err := io.ReadAll(part)
		if err != nil {
			return append(attrs, slog.Bool("http.body.truncated", true))
		}
		switch {
		case part.FileName() != "":
			attrs = append(attrs,
				slog.String(prefix+".filename", part.FileName()),
				slog.String(prefix+".content_type", part.Header.Get("Content-Type")),
				slog.Int(prefix+".size_bytes", len(data)),
			)
		case json.Valid(data):
			attrs = append(attrs, jsonAttrs(prefix, data)...)
		default:
			attrs = append(attrs, slog.String(prefix, string(data)))
		}
	}
}

// requestBody reads a copy of an outgoing body through GetBody, so what goes
// on the wire is untouched.
func requestBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody || r.GetBody == nil {
		return nil
	}
	rc, err := r.GetBody()
	if err != nil {
		return nil
	}
	defer rc.Close()
	b, _ := io.ReadAll(io.LimitReader(rc, BodySampleLimit))
	return b
}

func target(r *http.Request) []slog.Attr {
	return []slog.Attr{
		slog.String("http.method", r.Method),
		slog.String("http.host", r.URL.Host),
		slog.String("http.path", r.URL.Path),
	}
}

// RequestAttrs describes an outgoing API request.
func RequestAttrs(r *http.Request) []slog.Attr {
	attrs := append(target(r), slog.String("http.phase", "request"))
	attrs = append(attrs, HeaderAttrs(r.Header)...)
	attrs = append(attrs, QueryAttrs(r.URL.Query())...)
	return append(attrs, BodyAttrs(r.Header.Get("Content-Type"), requestBody(r))...)
}

// ResponseAttrs describes the answer to r. body is whatever prefix of the
// response the caller buffered.
func ResponseAttrs(r *http.Request, status int, header http.Header, body []byte, elapsed time.Duration) []slog.Attr {
	attrs := append(target(r),
		slog.String("http.phase", "response"),
		slog.Int("http.status", status),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
	)
	attrs = append(attrs, HeaderAttrs(header)...)
	return append(attrs, BodyAttrs(header.Get("Content-Type"), body)...)
}
