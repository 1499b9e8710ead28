package service

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"storefront/internal/model"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MaxImageSize is the largest upload accepted, 5 MB.
const MaxImageSize = 5 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// ValidationError lists field -> message for every rule a form broke. No
// request is sent for a form that fails validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		// min/max on decimal compare its float value.
		validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
			d, ok := v.Interface().(decimal.Decimal)
			if !ok {
				return nil
			}
			f, _ := d.Float64()
			return f
		}, decimal.Decimal{})
		_ = validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return model.Category(fl.Field().String()).Valid()
		})
	})
	return validate
}

// ValidateProduct checks the fields both the add and the update form require.
func ValidateProduct(p *model.Product) error {
	err := validatorInstance().Struct(p)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &ValidationError{Fields: map[string]string{"_": err.Error()}}
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = messageForTag(fe.Field(), fe.Tag(), fe.Param())
	}
	return &ValidationError{Fields: fields}
}

func messageForTag(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "min":
		if param == "0" {
			return field + " must be non-negative"
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "category":
		names := make([]string, len(model.Categories))
		for i, c := range model.Categories {
			names[i] = string(c)
		}
		return field + " must be one of " + strings.Join(names, ", ")
	default:
		return field + " is invalid"
	}
}

// ValidateImage accepts JPEG or PNG content up to MaxImageSize. The type is
// detected from the bytes and stored back into ContentType.
func ValidateImage(img *model.Image) error {
	if img == nil || len(img.Data) == 0 {
		return &ValidationError{Fields: map[string]string{"imageFile": "Please select an image file"}}
	}
	mt := mimetype.Detect(img.Data)
	if !allowedImageTypes[mt.String()] {
		return &ValidationError{Fields: map[string]string{"imageFile": "Only JPG and PNG images are allowed"}}
	}
	if img.Size() > MaxImageSize {
		return &ValidationError{Fields: map[string]string{"imageFile": "File size should be less than 5MB"}}
	}
	img.ContentType = mt.String()
	if img.Filename == "" {
		img.Filename = "image" + mt.Extension()
	}
	return nil
}

// merge folds b's fields into a; either may be nil.
func merge(a, b error) error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	var va, vb *ValidationError
	if !errors.As(a, &va) || !errors.As(b, &vb) {
		return errors.Join(a, b)
	}
	for k, v := range vb.Fields {
		va.Fields[k] = v
	}
	return va
}
