package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"Laptop", CategoryLaptop, false},
		{"headphone", CategoryHeadphone, false},
		{"  TOYS ", CategoryToys, false},
		{"Books", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseCategory(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDateUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain date", `"2024-03-15"`, "2024-03-15"},
		{"jackson timestamp", `"2024-03-15T00:00:00.000+00:00"`, "2024-03-15"},
		{"rfc3339", `"2024-03-15T10:20:30Z"`, "2024-03-15"},
		{"epoch millis", `1710460800000`, "2024-03-15"},
		{"null", `null`, ""},
		{"empty", `""`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			if err := json.Unmarshal([]byte(tt.raw), &d); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.raw, err)
			}
			if d.String() != tt.want {
				t.Errorf("got %q, want %q", d.String(), tt.want)
			}
		})
	}

	var d Date
	if err := json.Unmarshal([]byte(`"15/03/2024"`), &d); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func TestProductJSON(t *testing.T) {
	p := Product{
		Name:          "Zen Buds",
		Brand:         "Acme",
		Price:         decimal.RequireFromString("49.90"),
		Category:      CategoryHeadphone,
		StockQuantity: 3,
		ReleaseDate:   NewDate(2024, time.January, 2),
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"price":49.9`, `"releaseDate":"2024-01-02"`, `"stockQuantity":3`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, `"id"`) {
		t.Errorf("zero id should be omitted: %s", s)
	}

	var zero Product
	b, _ = json.Marshal(zero)
	if !strings.Contains(string(b), `"releaseDate":null`) {
		t.Errorf("zero date should be null: %s", b)
	}
}

func TestLineTotal(t *testing.T) {
	item := CartItem{Product: Product{Price: decimal.RequireFromString("19.99")}, Quantity: 3}
	if got := item.LineTotal().StringFixed(2); got != "59.97" {
		t.Errorf("LineTotal = %s, want 59.97", got)
	}
}

func TestHasImage(t *testing.T) {
	if (Product{}).HasImage() {
		t.Error("empty image name should report no image")
	}
	if !(Product{ImageName: "a.png"}).HasImage() {
		t.Error("expected image")
	}
}
