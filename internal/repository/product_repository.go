package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/client"
	"storefront/internal/logger"
	"storefront/internal/model"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var ProductRepositoryTracer = otel.Tracer("ProductRepository")

var ErrNotFound = errors.New("product not found")

// Multipart field names the backend binds on create.
const (
	FieldImageFile   = "imageFile"
	FieldProductJSON = "productJson"
)

// ProductRepository reads and writes products through the remote product API.
type ProductRepository struct {
	client *client.HTTPClient
}

func NewProductRepository(c *client.HTTPClient) *ProductRepository {
	return &ProductRepository{client: c}
}

func productPath(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}

func (r *ProductRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.FindAll")
	defer span.End()
	logger.Debug(ctx, "Repository")

	var products []model.Product
	if _, err := r.client.Get(ctx, "/products", &products); err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	if products == nil {
		products = []model.Product{}
	}
	span.SetAttributes(attribute.Int("product.count", len(products)))
	return products, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.FindByID")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", id))
	logger.Debug(ctx, "Repository", slog.Int64("id", id))

	var product model.Product
	resp, err := r.client.Get(ctx, productPath(id), &product)
	if err != nil {
		if client.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch product %d: %w", id, err)
	}
	if len(resp.RawBody) == 0 {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return &product, nil
}

func (r *ProductRepository) FindByCategory(ctx context.Context, category model.Category) ([]model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.FindByCategory")
	defer span.End()
	span.SetAttributes(attribute.String("product.category", string(category)))
	logger.Debug(ctx, "Repository", slog.String("category", string(category)))

	var products []model.Product
	if _, err := r.client.Get(ctx, "/products/category/"+url.PathEscape(string(category)), &products); err != nil {
		return nil, fmt.Errorf("fetch category %s: %w", category, err)
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

// Search returns the server's keyword matches in server order. The backend
// answers 204 when nothing matches.
func (r *ProductRepository) Search(ctx context.Context, keyword string) ([]model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.Search")
	defer span.End()
	span.SetAttributes(attribute.String("search.keyword", keyword))
	logger.Debug(ctx, "Repository", slog.String("keyword", keyword))

	var products []model.Product
	_, err := r.client.Get(ctx, "/products/search", &products, client.WithQuery("keyword", keyword))
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

func (r *ProductRepository) Image(ctx context.Context, id int64) (model.Image, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.Image")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", id))
	logger.Debug(ctx, "Repository", slog.Int64("id", id))

	var data []byte
	resp, err := r.client.Get(ctx, productPath(id)+"/image", &data, client.WithHeader("Accept", "image/*"))
	if err != nil {
		if client.StatusCode(err) == http.StatusNotFound {
			return model.Image{}, fmt.Errorf("image for product %d: %w", id, ErrNotFound)
		}
		return model.Image{}, fmt.Errorf("fetch image for product %d: %w", id, err)
	}
	if len(data) == 0 {
		return model.Image{}, fmt.Errorf("image for product %d: empty body", id)
	}
	return model.Image{
		ContentType: resp.Headers.Get(client.HeaderContentType),
		Data:        data,
	}, nil
}

// Insert uploads the product and its image in one multipart request.
func (r *ProductRepository) Insert(ctx context.Context, product *model.Product, image model.Image) (*model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.Insert")
	defer span.End()
	logger.Debug(ctx, "Repository", slog.String("name", product.Name))

	productJSON, err := json.Marshal(product)
	if err != nil {
		return nil, fmt.Errorf("encode product: %w", err)
	}

	body := client.NewMultipart().
		AddFile(client.FilePart{
			Field:       FieldImageFile,
			Filename:    image.Filename,
			ContentType: image.ContentType,
			Data:        image.Data,
		}).
		AddField(FieldProductJSON, string(productJSON))

	var created model.Product
	if _, err := r.client.Post(ctx, "/products", body, &created); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	span.SetAttributes(attribute.Int64("product.id", created.ID))
	return &created, nil
}

func (r *ProductRepository) Update(ctx context.Context, id int64, product *model.Product) (*model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.Update")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", id))
	logger.Debug(ctx, "Repository", slog.Int64("id", id))

	var raw []byte
	resp, err := r.client.Put(ctx, productPath(id), product, &raw)
	if err != nil {
		if client.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}

	// The backend may answer with a plain-text acknowledgement instead of the
	// stored product; the sent product is the result then.
	updated := *product
	updated.ID = id
	if len(raw) > 0 && strings.HasPrefix(resp.Headers.Get(client.HeaderContentType), client.ContentTypeJSON) {
		if err := json.Unmarshal(raw, &updated); err != nil {
			return nil, fmt.Errorf("parse updated product %d: %w", id, err)
		}
	}
	return &updated, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", id))
	logger.Debug(ctx, "Repository", slog.Int64("id", id))

	if _, err := r.client.Delete(ctx, productPath(id), nil); err != nil {
		if client.StatusCode(err) == http.StatusNotFound {
			return fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return nil
}
