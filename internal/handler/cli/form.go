package cli

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/shopspring/decimal"
)

// productForm binds the add/update flags. Values stay strings until apply so
// that every bad field is reported together.
type productForm struct {
	fs *flag.FlagSet

	name        string
	brand       string
	description string
	price       string
	category    string
	stock       string
	release     string
	available   bool
	image       string
}

func newProductForm(fs *flag.FlagSet, withImage bool) *productForm {
	f := &productForm{fs: fs}
	fs.StringVar(&f.name, "name", "", "product name")
	fs.StringVar(&f.brand, "brand", "", "brand")
	fs.StringVar(&f.description, "description", "", "description")
	fs.StringVar(&f.price, "price", "", "price, e.g. 19.99")
	fs.StringVar(&f.category, "category", "", "one of "+categoryNames())
	fs.StringVar(&f.stock, "stock", "", "stock quantity")
	fs.StringVar(&f.release, "release", "", "release date, YYYY-MM-DD")
	fs.BoolVar(&f.available, "available", false, "product is available")
	if withImage {
		fs.StringVar(&f.image, "image", "", "JPG or PNG file, at most 5MB")
	}
	return f
}

func categoryNames() string {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// apply copies the flags onto p. With onlySet, flags left off the command line
// keep p's current value.
func (f *productForm) apply(p *model.Product, onlySet bool) error {
	set := map[string]bool{}
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	use := func(name string) bool { return !onlySet || set[name] }

	bad := map[string]string{}
	if use("name") {
		p.Name = strings.TrimSpace(f.name)
	}
	if use("brand") {
		p.Brand = strings.TrimSpace(f.brand)
	}
	if use("description") {
		p.Description = f.description
	}
	if use("price") {
		if strings.TrimSpace(f.price) == "" {
			p.Price = decimal.Zero
		} else if d, err := decimal.NewFromString(strings.TrimSpace(f.price)); err != nil {
			bad["price"] = "price must be a number"
		} else {
			p.Price = d
		}
	}
	if use("category") {
		if c, err := model.ParseCategory(f.category); err == nil {
			p.Category = c
		} else {
			p.Category = model.Category(strings.TrimSpace(f.category))
		}
	}
	if use("stock") {
		if strings.TrimSpace(f.stock) == "" {
			p.StockQuantity = 0
		} else if n, err := strconv.Atoi(strings.TrimSpace(f.stock)); err != nil {
			bad["stockQuantity"] = "stockQuantity must be a whole number"
		} else {
			p.StockQuantity = n
		}
	}
	if use("release") {
		if strings.TrimSpace(f.release) == "" {
			p.ReleaseDate = model.Date{}
		} else if d, err := model.ParseDate(f.release); err != nil {
			bad["releaseDate"] = "releaseDate must be YYYY-MM-DD"
		} else {
			p.ReleaseDate = d
		}
	}
	if use("available") {
		p.ProductAvailable = f.available
	}

	if len(bad) == 0 {
		return nil
	}
	return &service.ValidationError{Fields: bad}
}

// readImage loads the -image file. A missing flag yields an empty image, which
// validation reports.
func (f *productForm) readImage() (*model.Image, error) {
	if f.image == "" {
		return &model.Image{}, nil
	}
	data, err := os.ReadFile(f.image)
	if err != nil {
		return &model.Image{}, &service.ValidationError{Fields: map[string]string{"imageFile": "cannot read " + f.image}}
	}
	return &model.Image{Filename: filepath.Base(f.image), Data: data}, nil
}

// combine folds the parse errors and the rule checks into one report.
func combine(errs ...error) error {
	fields := map[string]string{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ve *service.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		for k, v := range ve.Fields {
			if _, seen := fields[k]; !seen {
				fields[k] = v
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &service.ValidationError{Fields: fields}
}
