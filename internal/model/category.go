package model

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryLaptop      Category = "Laptop"
	CategoryHeadphone   Category = "Headphone"
	CategoryMobile      Category = "Mobile"
	CategoryElectronics Category = "Electronics"
	CategoryToys        Category = "Toys"
	CategoryFashion     Category = "Fashion"
)

// Categories in the order the navigation shows them.
var Categories = []Category{
	CategoryLaptop,
	CategoryHeadphone,
	CategoryMobile,
	CategoryElectronics,
	CategoryToys,
	CategoryFashion,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches case-insensitively and returns the canonical spelling.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, known := range Categories {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}
