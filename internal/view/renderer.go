// Package view renders storefront screens as text.
package view

import (
	"fmt"
	"io"
	"text/tabwriter"

	"storefront/internal/prefs"

	"github.com/shopspring/decimal"
)

// Palette holds the ANSI sequences for one theme. The light palette is empty
// so plain terminals and pipes get clean text.
type Palette struct {
	Title string
	Muted string
	Good  string
	Bad   string
	Reset string
}

var palettes = map[prefs.Theme]Palette{
	prefs.ThemeLight: {},
	prefs.ThemeDark: {
		Title: "\x1b[1;97m",
		Muted: "\x1b[90m",
		Good:  "\x1b[32m",
		Bad:   "\x1b[31m",
		Reset: "\x1b[0m",
	},
}

type Renderer struct {
	w   io.Writer
	pal Palette
}

func NewRenderer(w io.Writer, theme prefs.Theme) *Renderer {
	return &Renderer{w: w, pal: palettes[theme]}
}

func (r *Renderer) SetTheme(theme prefs.Theme) {
	r.pal = palettes[theme]
}

func (r *Renderer) paint(code, s string) string {
	if code == "" {
		return s
	}
	return code + s + r.pal.Reset
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

func (r *Renderer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
}

// Message prints an inline notice, the terminal stand-in for an alert.
func (r *Renderer) Message(format string, args ...any) {
	r.printf(format+"\n", args...)
}

// Error prints a failed operation in the error colour.
func (r *Renderer) Error(format string, args ...any) {
	r.printf("%s\n", r.paint(r.pal.Bad, fmt.Sprintf(format, args...)))
}

// FormatPrice renders a price with two decimals.
func FormatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
