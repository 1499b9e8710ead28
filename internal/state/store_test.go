package state

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

type fakeLister struct {
	products []model.Product
	err      error
	calls    int
}

func (f *fakeLister) FindAll(context.Context) ([]model.Product, error) {
	f.calls++
	return f.products, f.err
}

func product(id int64, price string, stock int) model.Product {
	return model.Product{ID: id, Name: "p", Price: decimal.RequireFromString(price), StockQuantity: stock, ProductAvailable: true}
}

func TestAddToCartTwiceIncrements(t *testing.T) {
	s := NewStore(&fakeLister{})
	p := product(1, "10.00", 5)

	s.AddToCart(p)
	s.AddToCart(p)

	cart := s.Cart()
	if len(cart) != 1 {
		t.Fatalf("expected one line, got %d", len(cart))
	}
	if cart[0].Quantity != 2 {
		t.Errorf("quantity = %d, want 2", cart[0].Quantity)
	}
	if s.CartCount() != 2 {
		t.Errorf("count = %d", s.CartCount())
	}
	if got := cart[0].LineTotal().StringFixed(2); got != "20.00" {
		t.Errorf("total = %s", got)
	}
}

func TestCartKeepsInsertionOrder(t *testing.T) {
	s := NewStore(&fakeLister{})
	s.AddToCart(product(3, "1", 1))
	s.AddToCart(product(1, "1", 1))
	s.AddToCart(product(2, "1", 1))

	var ids []int64
	for _, item := range s.Cart() {
		ids = append(ids, item.ID)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 1 || ids[2] != 2 {
		t.Errorf("order = %v", ids)
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	s := NewStore(&fakeLister{})
	s.AddToCart(product(1, "1", 1))

	changes := 0
	s.OnChange(func() { changes++ })
	s.RemoveFromCart(42)

	if len(s.Cart()) != 1 {
		t.Error("cart changed")
	}
	if changes != 0 {
		t.Errorf("listeners ran %d times for a no-op", changes)
	}

	s.RemoveFromCart(1)
	if len(s.Cart()) != 0 || changes != 1 {
		t.Errorf("remove: cart=%d changes=%d", len(s.Cart()), changes)
	}
}

func TestSetQuantity(t *testing.T) {
	s := NewStore(&fakeLister{})
	s.AddToCart(product(1, "2.50", 10))

	if !s.SetQuantity(1, 4) {
		t.Fatal("expected existing line")
	}
	if item, _ := s.CartItem(1); item.Quantity != 4 {
		t.Errorf("quantity = %d", item.Quantity)
	}
	if s.SetQuantity(9, 1) {
		t.Error("unknown id reported as present")
	}
	if !s.SetQuantity(1, 0) {
		t.Error("zero should report the removed line")
	}
	if _, ok := s.CartItem(1); ok {
		t.Error("zero quantity should remove the line")
	}
}

func TestCartReturnsCopy(t *testing.T) {
	s := NewStore(&fakeLister{})
	s.AddToCart(product(1, "1", 1))

	cart := s.Cart()
	cart[0].Quantity = 99
	if item, _ := s.CartItem(1); item.Quantity != 1 {
		t.Error("mutating the returned slice changed the store")
	}
}

func TestRefresh(t *testing.T) {
	src := &fakeLister{products: []model.Product{product(1, "1", 1), product(2, "1", 1)}}
	s := NewStore(src)

	changes := 0
	s.OnChange(func() { changes++ })
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(s.Products()) != 2 || changes != 1 {
		t.Fatalf("products=%d changes=%d", len(s.Products()), changes)
	}
	if _, ok := s.Product(2); !ok {
		t.Error("expected product 2")
	}

	src.err = errors.New("connection refused")
	src.products = nil
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(s.Products()) != 2 {
		t.Error("failed refresh should keep the previous list")
	}
}

func TestClearCart(t *testing.T) {
	s := NewStore(&fakeLister{})
	s.AddToCart(product(1, "1", 1))
	s.ClearCart()
	if len(s.Cart()) != 0 || s.CartCount() != 0 {
		t.Error("cart not cleared")
	}
}
