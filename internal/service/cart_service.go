package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"storefront/internal/logger"
	"storefront/internal/model"
	"storefront/internal/state"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

var CartServiceTracer = otel.Tracer("CartService")

var (
	ErrUnavailable   = errors.New("product is out of stock")
	ErrStockExceeded = errors.New("cannot add more than available stock")
	ErrNotInCart     = errors.New("product is not in the cart")
	ErrEmptyCart     = errors.New("cart is empty")
)

type ProductUpdater interface {
	Update(ctx context.Context, id int64, product *model.Product) (*model.Product, error)
}

type CheckoutLine struct {
	Item      model.CartItem
	LineTotal decimal.Decimal
}

type CheckoutSummary struct {
	Lines []CheckoutLine
	Count int
	Total decimal.Decimal
}

// CartService holds the cart rules the views apply on top of the store.
type CartService struct {
	repo  ProductUpdater
	store *state.Store
}

func NewCartService(repo ProductUpdater, store *state.Store) *CartService {
	return &CartService{repo: repo, store: store}
}

// Add refuses products flagged unavailable. Repeated adds are not capped by
// stock, matching the store.
func (s *CartService) Add(p model.Product) error {
	if !p.ProductAvailable {
		return fmt.Errorf("%s: %w", p.Name, ErrUnavailable)
	}
	s.store.AddToCart(p)
	return nil
}

func (s *CartService) Remove(id int64) {
	s.store.RemoveFromCart(id)
}

// Increase bumps a line by one, capped at the product's stock quantity.
func (s *CartService) Increase(id int64) error {
	item, ok := s.store.CartItem(id)
	if !ok {
		return ErrNotInCart
	}
	return s.SetQuantity(id, item.Quantity+1)
}

// Decrease lowers a line by one and never below one.
func (s *CartService) Decrease(id int64) error {
	item, ok := s.store.CartItem(id)
	if !ok {
		return ErrNotInCart
	}
	if item.Quantity <= 1 {
		return nil
	}
	s.store.SetQuantity(id, item.Quantity-1)
	return nil
}

// SetQuantity sets a line's quantity; qty <= 0 removes it.
func (s *CartService) SetQuantity(id int64, qty int) error {
	item, ok := s.store.CartItem(id)
	if !ok {
		return ErrNotInCart
	}
	if qty > item.StockQuantity {
		return fmt.Errorf("%s (stock %d): %w", item.Name, item.StockQuantity, ErrStockExceeded)
	}
	s.store.SetQuantity(id, qty)
	return nil
}

func (s *CartService) Summary() CheckoutSummary {
	items := s.store.Cart()
	sum := CheckoutSummary{Lines: make([]CheckoutLine, 0, len(items)), Total: decimal.Zero}
	for _, item := range items {
		line := item.LineTotal()
		sum.Lines = append(sum.Lines, CheckoutLine{Item: item, LineTotal: line})
		sum.Count += item.Quantity
		sum.Total = sum.Total.Add(line)
	}
	return sum
}

// Checkout decrements each product's stock on the server by its cart quantity,
// then clears the cart and refreshes the list. Lines are checked against stock
// before anything is sent; the first failed update stops checkout and leaves
// the cart as it was.
func (s *CartService) Checkout(ctx context.Context) (CheckoutSummary, error) {
	ctx, span := CartServiceTracer.Start(ctx, "CartService.Checkout")
	defer span.End()

	sum := s.Summary()
	if len(sum.Lines) == 0 {
		return sum, ErrEmptyCart
	}

	for _, line := range sum.Lines {
		if line.Item.Quantity > line.Item.StockQuantity {
			return sum, fmt.Errorf("%s (stock %d): %w", line.Item.Name, line.Item.StockQuantity, ErrStockExceeded)
		}
	}

	for _, line := range sum.Lines {
		p := line.Item.Product
		p.StockQuantity -= line.Item.Quantity
		if _, err := s.repo.Update(ctx, p.ID, &p); err != nil {
			logger.Error(ctx, "Error during checkout", slog.Int64("id", p.ID), logger.Err(err))
			return sum, fmt.Errorf("checkout %s: %w", p.Name, err)
		}
	}

	logger.Info(ctx, "Checkout completed",
		slog.Int("items", sum.Count),
		slog.String("total", sum.Total.StringFixed(2)),
	)
	s.store.ClearCart()
	_ = s.store.Refresh(ctx)
	return sum, nil
}
