package client

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type echo struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	RequestID   string
	Body        string
}

func newEchoServer(t *testing.T, status int) (*httptest.Server, *echo) {
	t.Helper()
	got := &echo{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*got = echo{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.RawQuery,
			ContentType: r.Header.Get("Content-Type"),
			RequestID:   r.Header.Get(HeaderRequestID),
			Body:        string(b),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestGetJoinsBaseURLAndQuery(t *testing.T) {
	srv, got := newEchoServer(t, http.StatusOK)
	c := NewHTTPClient(srv.URL+"/api", nil)

	var out struct{ OK bool }
	resp, err := c.Get(context.Background(), "/products/search", &out,
		WithQuery("keyword", "zen buds"), WithHeader("Accept", "application/json"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !resp.IsSuccess() || !out.OK {
		t.Fatalf("unexpected response %d %+v", resp.StatusCode, out)
	}
	if got.Path != "/api/products/search" {
		t.Errorf("path = %q", got.Path)
	}
	if got.Query != "keyword=zen+buds" {
		t.Errorf("query = %q", got.Query)
	}
	if got.ContentType != "" {
		t.Errorf("GET without body should not send Content-Type, got %q", got.ContentType)
	}
	if got.RequestID == "" {
		t.Error("expected X-Request-ID")
	}
}

func TestPutSendsJSON(t *testing.T) {
	srv, got := newEchoServer(t, http.StatusOK)
	c := NewHTTPClient(srv.URL, nil)

	body := map[string]int{"stockQuantity": 4}
	if _, err := c.Put(context.Background(), "products/7", body, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got.Method != http.MethodPut || got.Path != "/products/7" {
		t.Errorf("got %s %s", got.Method, got.Path)
	}
	if got.ContentType != ContentTypeJSON {
		t.Errorf("content type = %q", got.ContentType)
	}
	if strings.TrimSpace(got.Body) != `{"stockQuantity":4}` {
		t.Errorf("body = %q", got.Body)
	}
}

func TestNonSuccessReturnsAPIError(t *testing.T) {
	srv, _ := newEchoServer(t, http.StatusNotFound)
	c := NewHTTPClient(srv.URL, nil)

	resp, err := c.Get(context.Background(), "/products/9", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if StatusCode(err) != http.StatusNotFound || resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", StatusCode(err))
	}
	if StatusCode(errors.New("plain")) != 0 {
		t.Error("plain errors have no status")
	}
}

func TestRawBodyTargets(t *testing.T) {
	srv, _ := newEchoServer(t, http.StatusOK)
	c := NewHTTPClient(srv.URL, nil)

	var raw []byte
	if _, err := c.Get(context.Background(), "/x", &raw); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Errorf("raw = %q", raw)
	}

	var s string
	if _, err := c.Get(context.Background(), "/x", &s); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s != `{"ok":true}` {
		t.Errorf("string = %q", s)
	}
}

func TestPostMultipart(t *testing.T) {
	srv, got := newEchoServer(t, http.StatusCreated)
	c := NewHTTPClient(srv.URL, nil)

	body := NewMultipart().
		AddFile(FilePart{Field: "imageFile", Filename: "a.png", ContentType: "image/png", Data: []byte("png")}).
		AddField("productJson", `{"name":"x"}`)
	if _, err := c.Post(context.Background(), "/products", body, nil); err != nil {
		t.Fatalf("Post: %v", err)
	}

	mediaType, params, err := mime.ParseMediaType(got.ContentType)
	if err != nil {
		t.Fatalf("parse content type %q: %v", got.ContentType, err)
	}
	if mediaType != "multipart/form-data" || params["boundary"] == "" {
		t.Errorf("content type = %q", got.ContentType)
	}
	for _, want := range []string{`name="imageFile"; filename="a.png"`, "Content-Type: image/png", `name="productJson"`, `{"name":"x"}`} {
		if !strings.Contains(got.Body, want) {
			t.Errorf("multipart body missing %q", want)
		}
	}
}
