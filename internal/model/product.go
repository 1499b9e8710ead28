package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// The API sends and expects plain JSON numbers for price.
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID               int64           `json:"id,omitempty"`
	Name             string          `json:"name" validate:"required"`
	Brand            string          `json:"brand" validate:"required"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price" validate:"min=0"`
	Category         Category        `json:"category" validate:"required,category"`
	StockQuantity    int             `json:"stockQuantity" validate:"min=0"`
	ReleaseDate      Date            `json:"releaseDate"`
	ProductAvailable bool            `json:"productAvailable"`
	ImageName        string          `json:"imageName,omitempty"`
}

// HasImage reports whether the server stored an image for the product.
func (p Product) HasImage() bool {
	return strings.TrimSpace(p.ImageName) != ""
}

// CartItem is one cart line: a product copy and a positive quantity.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// LineTotal is unit price times quantity.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}
