package state

import (
	"context"
	"log/slog"
	"sync"

	"storefront/internal/logger"
	"storefront/internal/model"

	"go.opentelemetry.io/otel"
)

var StoreTracer = otel.Tracer("Store")

// ProductLister is the one backend capability the store needs.
type ProductLister interface {
	FindAll(ctx context.Context) ([]model.Product, error)
}

// Store is the session-scoped application state: the product list in server
// order and the cart in insertion order. All accessors return copies.
type Store struct {
	source ProductLister

	mu        sync.RWMutex
	products  []model.Product
	cart      []model.CartItem
	listeners []func()
}

func NewStore(source ProductLister) *Store {
	return &Store{
		source:   source,
		products: []model.Product{},
		cart:     []model.CartItem{},
	}
}

// Refresh replaces the product list with the server's. On failure the previous
// list is kept and the error is returned to the caller.
func (s *Store) Refresh(ctx context.Context) error {
	ctx, span := StoreTracer.Start(ctx, "Store.Refresh")
	defer span.End()

	products, err := s.source.FindAll(ctx)
	if err != nil {
		logger.Error(ctx, "Error fetching products", logger.Err(err))
		return err
	}

	s.mu.Lock()
	s.products = append([]model.Product(nil), products...)
	s.mu.Unlock()

	logger.Debug(ctx, "Products refreshed", slog.Int("count", len(products)))
	s.notify()
	return nil
}

func (s *Store) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Product{}, s.products...)
}

// Product looks the id up in the last fetched list.
func (s *Store) Product(id int64) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

func (s *Store) Cart() []model.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.CartItem{}, s.cart...)
}

// AddToCart increments the line for product.ID or appends a new line with
// quantity 1. Stock is not checked here.
func (s *Store) AddToCart(product model.Product) {
	s.mu.Lock()
	found := false
	for i := range s.cart {
		if s.cart[i].ID == product.ID {
			s.cart[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		s.cart = append(s.cart, model.CartItem{Product: product, Quantity: 1})
	}
	s.mu.Unlock()
	s.notify()
}

// RemoveFromCart drops the line for id. Absent ids are a no-op.
func (s *Store) RemoveFromCart(id int64) {
	s.mu.Lock()
	kept := s.cart[:0:0]
	removed := false
	for _, item := range s.cart {
		if item.ID == id {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	s.cart = kept
	s.mu.Unlock()
	if removed {
		s.notify()
	}
}

// SetQuantity sets an existing line's quantity. qty <= 0 removes the line.
// It reports whether a line for id exists.
func (s *Store) SetQuantity(id int64, qty int) bool {
	if qty <= 0 {
		_, ok := s.CartItem(id)
		s.RemoveFromCart(id)
		return ok
	}

	s.mu.Lock()
	found := false
	for i := range s.cart {
		if s.cart[i].ID == id {
			s.cart[i].Quantity = qty
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.notify()
	}
	return found
}

func (s *Store) CartItem(id int64) (model.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.cart {
		if item.ID == id {
			return item, true
		}
	}
	return model.CartItem{}, false
}

func (s *Store) ClearCart() {
	s.mu.Lock()
	s.cart = []model.CartItem{}
	s.mu.Unlock()
	s.notify()
}

// CartCount is the sum of line quantities.
func (s *Store) CartCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.cart {
		n += item.Quantity
	}
	return n
}

// OnChange registers fn to run after every mutation. Listeners run on the
// mutating goroutine without the lock held.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}
