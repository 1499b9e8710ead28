package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/apitest"
	"storefront/internal/client"
	"storefront/internal/model"
	"storefront/internal/prefs"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/state"

	"github.com/shopspring/decimal"
)

func newSession(t *testing.T, script string) (*Shell, *apitest.Server, *bytes.Buffer, *state.Store) {
	t.Helper()
	out := &bytes.Buffer{}
	sh, srv, store := newSessionIO(t, strings.NewReader(script), out)
	return sh, srv, out, store
}

func newSessionIO(t *testing.T, in io.Reader, out io.Writer) (*Shell, *apitest.Server, *state.Store) {
	t.Helper()
	srv := apitest.New(t,
		model.Product{ID: 1, Name: "Zen Buds", Brand: "Acme", Price: decimal.RequireFromString("49.90"), Category: model.CategoryHeadphone, StockQuantity: 5, ProductAvailable: true},
		model.Product{ID: 2, Name: "Old Phone", Brand: "Retro", Price: decimal.RequireFromString("5"), Category: model.CategoryMobile, StockQuantity: 0},
	)
	repo := repository.NewProductRepository(client.NewHTTPClient(srv.BaseURL(), nil))
	store := state.NewStore(repo)
	p, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.yaml"))
	if err != nil {
		t.Fatalf("prefs: %v", err)
	}
	sh := New(service.NewProductService(repo, store), service.NewCartService(repo, store), p, in, out)
	return sh, srv, store
}

// watchWriter is a goroutine-safe output that signals once want was written.
type watchWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	want string
	seen chan struct{}
}

func newWatchWriter(want string) *watchWriter {
	return &watchWriter{want: want, seen: make(chan struct{})}
}

func (w *watchWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	if w.want != "" && strings.Contains(w.buf.String(), w.want) {
		close(w.seen)
		w.want = ""
	}
	return n, err
}

func (w *watchWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func runAsync(ctx context.Context, sh *Shell) <-chan error {
	done := make(chan error, 1)
	go func() { done <- sh.Run(ctx) }()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
		return nil
	}
}

func TestSessionCheckout(t *testing.T) {
	sh, srv, out, store := newSession(t, strings.Join([]string{
		"list",
		"add 1",
		"add 1",
		"cart",
		"checkout",
		"y",
		"quit",
	}, "\n"))

	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"ZEN BUDS",
		"Product added to cart.",
		"Shopping Bag",
		"storefront (cart: 2)> ",
		"Total (2 items): $99.80",
		"Confirm Your Purchase",
		"Purchase completed.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if p, _ := srv.Product(1); p.StockQuantity != 3 {
		t.Errorf("server stock = %d, want 3", p.StockQuantity)
	}
	if store.CartCount() != 0 {
		t.Error("cart not cleared")
	}
}

func TestSessionCancelCheckout(t *testing.T) {
	sh, srv, out, store := newSession(t, "add 1\ncheckout\nn\n")

	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Checkout cancelled.") {
		t.Errorf("output:\n%s", out.String())
	}
	if srv.Requests("PUT /api/products/1") != 0 || store.CartCount() != 1 {
		t.Error("cancelled checkout changed state")
	}
}

func TestSessionReportsErrorsInline(t *testing.T) {
	sh, _, out, _ := newSession(t, "add 2\nshow 99\nfrobnicate\nqty 1 x\nlist Books\n")

	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"Old Phone: product is out of stock",
		"Product not found.",
		`Unknown command "frobnicate"`,
		"unknown category",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestSessionDeleteAndTheme(t *testing.T) {
	sh, srv, out, store := newSession(t, "add 1\ndelete 1\ntheme toggle\ntheme\n")

	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := srv.Product(1); ok {
		t.Error("product not deleted on server")
	}
	if store.CartCount() != 0 {
		t.Error("deleted product left in cart")
	}
	text := out.String()
	if !strings.Contains(text, "Product deleted successfully.") || !strings.Contains(text, "Theme: dark") {
		t.Errorf("output:\n%s", text)
	}
}

func TestSearch(t *testing.T) {
	sh, _, out, _ := newSession(t, "search buds\nsearch nothing\n")

	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, `Results for "buds":`) || !strings.Contains(text, "No Product with such Name") {
		t.Errorf("output:\n%s", text)
	}
}

func TestCancelAtPromptEndsSession(t *testing.T) {
	in, feed := io.Pipe()
	defer feed.Close()
	out := newWatchWriter("storefront (cart: 0)> ")
	sh, _, _ := newSessionIO(t, in, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, sh)

	<-out.seen
	cancel()
	if err := waitRun(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestCancelDuringCheckoutConfirm(t *testing.T) {
	in, feed := io.Pipe()
	defer feed.Close()
	out := newWatchWriter("Confirm purchase? [y/N] ")
	sh, srv, store := newSessionIO(t, in, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, sh)
	go func() { _, _ = io.WriteString(feed, "add 1\ncheckout\n") }()

	<-out.seen
	cancel()
	if err := waitRun(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if srv.Requests("PUT /api/products/1") != 0 || store.CartCount() != 1 {
		t.Error("interrupted checkout changed state")
	}
	if strings.Contains(out.String(), "Purchase completed.") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestFailedDeleteReportedOnce(t *testing.T) {
	sh, _, out, _ := newSession(t, "delete 99\n")

	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := strings.Count(out.String(), "Product not found."); n != 1 {
		t.Errorf("not-found reported %d times:\n%s", n, out.String())
	}
}
