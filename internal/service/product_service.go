package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"storefront/internal/logger"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/state"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

var ProductServiceTracer = otel.Tracer("ProductService")

// imageFetchLimit bounds concurrent image requests while building a listing.
const imageFetchLimit = 8

type ProductRepository interface {
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	FindByCategory(ctx context.Context, category model.Category) ([]model.Product, error)
	Search(ctx context.Context, keyword string) ([]model.Product, error)
	Image(ctx context.Context, id int64) (model.Image, error)
	Insert(ctx context.Context, product *model.Product, image model.Image) (*model.Product, error)
	Update(ctx context.Context, id int64, product *model.Product) (*model.Product, error)
	Delete(ctx context.Context, id int64) error
}

// Listing is one product grid tile.
type Listing struct {
	model.Product
	Image model.Image
}

// Detail is the product page. Placeholder is set when the product has no image.
type Detail struct {
	Product     model.Product
	Image       model.Image
	Placeholder bool
}

type ProductService struct {
	repo  ProductRepository
	store *state.Store
}

func NewProductService(repo ProductRepository, store *state.Store) *ProductService {
	return &ProductService{repo: repo, store: store}
}

func (s *ProductService) Store() *state.Store {
	return s.store
}

// Listing refreshes the shared product list and attaches each product's image.
// An empty category keeps every product. Images that fail to load are replaced
// by the fallback image.
func (s *ProductService) Listing(ctx context.Context, category model.Category) ([]Listing, error) {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Listing")
	defer span.End()

	if err := s.store.Refresh(ctx); err != nil {
		return nil, err
	}

	products := s.store.Products()
	listings := make([]Listing, 0, len(products))
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		listings = append(listings, Listing{Product: p})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imageFetchLimit)
	for i := range listings {
		i := i
		g.Go(func() error {
			listings[i].Image = s.imageOrFallback(gctx, listings[i].ID)
			return nil
		})
	}
	_ = g.Wait()

	return listings, nil
}

func (s *ProductService) imageOrFallback(ctx context.Context, id int64) model.Image {
	img, err := s.repo.Image(ctx, id)
	if err != nil {
		logger.Warn(ctx, "Error fetching image for product", slog.Int64("id", id), logger.Err(err))
		return FallbackImage()
	}
	return img
}

// Detail fetches one product and, when it has one, its image.
func (s *ProductService) Detail(ctx context.Context, id int64) (*Detail, error) {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Detail")
	defer span.End()

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Detail{Product: *p}
	if !p.HasImage() {
		d.Image = FallbackImage()
		d.Placeholder = true
		return d, nil
	}
	d.Image = s.imageOrFallback(ctx, id)
	return d, nil
}

// Image returns the stored image bytes without substituting a fallback. The
// image endpoint carries no name, so Filename comes from the product's
// imageName.
func (s *ProductService) Image(ctx context.Context, id int64) (model.Image, error) {
	img, err := s.repo.Image(ctx, id)
	if err != nil {
		return img, err
	}
	if img.Filename == "" {
		if p, err := s.Lookup(ctx, id); err == nil {
			img.Filename = p.ImageName
		}
	}
	return img, nil
}

// Create validates the form and the image, uploads both, then refreshes the
// shared list. Nothing is sent when validation fails.
func (s *ProductService) Create(ctx context.Context, p *model.Product, img *model.Image) (*model.Product, error) {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Create")
	defer span.End()

	if err := merge(ValidateProduct(p), ValidateImage(img)); err != nil {
		logger.Info(ctx, "Rejected product form", logger.Err(err))
		return nil, err
	}

	created, err := s.repo.Insert(ctx, p, *img)
	if err != nil {
		logger.Error(ctx, "Error adding product", logger.Err(err))
		return nil, err
	}
	logger.Info(ctx, "Product added", slog.Int64("id", created.ID), slog.String("name", created.Name))

	_ = s.store.Refresh(ctx)
	return created, nil
}

func (s *ProductService) Update(ctx context.Context, id int64, p *model.Product) (*model.Product, error) {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Update")
	defer span.End()

	if err := ValidateProduct(p); err != nil {
		logger.Info(ctx, "Rejected product form", logger.Err(err))
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, p)
	if err != nil {
		logger.Error(ctx, "Error updating product", slog.Int64("id", id), logger.Err(err))
		return nil, err
	}
	logger.Info(ctx, "Product updated", slog.Int64("id", id))

	_ = s.store.Refresh(ctx)
	return updated, nil
}

// Delete removes the product on the server, drops it from the cart and
// refreshes the shared list.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Delete")
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		logger.Error(ctx, "Error deleting product", slog.Int64("id", id), logger.Err(err))
		return err
	}
	logger.Info(ctx, "Product deleted", slog.Int64("id", id))

	s.store.RemoveFromCart(id)
	_ = s.store.Refresh(ctx)
	return nil
}

// Search sends nothing for a blank keyword.
func (s *ProductService) Search(ctx context.Context, keyword string) ([]model.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []model.Product{}, nil
	}
	return s.repo.Search(ctx, keyword)
}

func (s *ProductService) ByCategory(ctx context.Context, category model.Category) ([]model.Product, error) {
	return s.repo.FindByCategory(ctx, category)
}

// Lookup prefers the shared list and falls back to the server.
func (s *ProductService) Lookup(ctx context.Context, id int64) (model.Product, error) {
	if p, ok := s.store.Product(id); ok {
		return p, nil
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	return *p, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
