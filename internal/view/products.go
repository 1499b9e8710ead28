package view

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"storefront/internal/model"
	"storefront/internal/service"
)

const (
	MsgNoProducts      = "Error fetching products or no products available."
	MsgProductNotFound = "Product not found."
	MsgNoSearchResults = "No Product with such Name"
)

func availability(p model.Product) string {
	if p.ProductAvailable {
		return "Add to Cart"
	}
	return "Out of Stock"
}

func imageLabel(img model.Image) string {
	if img.Fallback || len(img.Data) == 0 {
		return "unavailable"
	}
	ct := img.ContentType
	if ct == "" {
		ct = "image"
	}
	return fmt.Sprintf("%s %s", ct, formatSize(img.Size()))
}

// Grid renders the product listing. An empty listing shows the fallback
// message, the same as a failed fetch.
func (r *Renderer) Grid(listings []service.Listing) {
	if len(listings) == 0 {
		r.printf("%s\n", r.paint(r.pal.Bad, MsgNoProducts))
		return
	}

	tw := r.table()
	fmt.Fprintln(tw, "ID\tNAME\tBRAND\tPRICE\tCATEGORY\tIMAGE\tSTATUS")
	for _, l := range listings {
		status := r.paint(r.pal.Good, availability(l.Product))
		if !l.ProductAvailable {
			status = r.paint(r.pal.Muted, availability(l.Product))
		}
		fmt.Fprintf(tw, "%d\t%s\t~ %s\t%s\t%s\t%s\t%s\n",
			l.ID,
			strings.ToUpper(l.Name),
			l.Brand,
			FormatPrice(l.Price),
			l.Category,
			imageLabel(l.Image),
			status,
		)
	}
	_ = tw.Flush()
}

// ProductList renders products without images, for search and category results.
func (r *Renderer) ProductList(products []model.Product) {
	tw := r.table()
	fmt.Fprintln(tw, "ID\tNAME\tBRAND\tPRICE\tCATEGORY\t")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", p.ID, p.Name, p.Brand, FormatPrice(p.Price), p.Category)
	}
	_ = tw.Flush()
}

func (r *Renderer) SearchResults(keyword string, products []model.Product) {
	if len(products) == 0 {
		r.printf("%s\n", r.paint(r.pal.Muted, MsgNoSearchResults))
		return
	}
	r.printf("Results for %q:\n", keyword)
	r.ProductList(products)
}

func (r *Renderer) Detail(d *service.Detail) {
	p := d.Product
	r.printf("%s  %s\n", r.paint(r.pal.Muted, string(p.Category)), r.paint(r.pal.Muted, "Listed: "+p.ReleaseDate.String()))
	r.printf("%s\n", r.paint(r.pal.Title, p.Name))
	r.printf("%s\n\n", p.Brand)
	r.printf("PRODUCT DESCRIPTION:\n%s\n\n", p.Description)
	r.printf("Price: %s   [%s]\n", FormatPrice(p.Price), availability(p))
	r.printf("Stock Available: %s\n", r.paint(r.pal.Good, fmt.Sprint(p.StockQuantity)))
	switch {
	case d.Placeholder:
		r.printf("Image: none\n")
	default:
		label := imageLabel(d.Image)
		if p.ImageName != "" {
			label = p.ImageName + " (" + label + ")"
		}
		r.printf("Image: %s\n", label)
	}
}

func (r *Renderer) NotFound() {
	r.printf("%s\n", MsgProductNotFound)
}

// ValidationErrors prints each rejected field, sorted by name; other errors
// print as they are.
func (r *Renderer) ValidationErrors(err error) {
	var ve *service.ValidationError
	if !errors.As(err, &ve) {
		r.Error("%v", err)
		return
	}
	keys := make([]string, 0, len(ve.Fields))
	for k := range ve.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r.Error("Please fix the following and submit again:")
	for _, k := range keys {
		r.printf("  - %s\n", ve.Fields[k])
	}
}

func (r *Renderer) Categories() {
	for _, c := range model.Categories {
		r.printf("%s\n", c)
	}
}
