// Package palette holds the closed category table shared by the scene
// generator and the renderer. Both sides must be handed the same Table or
// category filtering stops matching what was generated.
package palette

import (
	"image/color"
	"strconv"
	"strings"

	"fivem/resonance/internal/errors"
)

// FallbackColor is used for any category outside the table.
const FallbackColor = "#ffffff"

// Category is one entry of the closed set.
type Category struct {
	Label string `json:"label" mapstructure:"label"`
	Color string `json:"color" mapstructure:"color"`
}

// Table maps category labels to colors and appearance ranks. Rank is the
// position in the table; labels outside it rank after every known label.
type Table struct {
	categories []Category
	index      map[string]int
	fallback   string
}

// Default returns the survey's five switch categories in reveal order.
func Default() *Table {
	t, _ := New([]Category{
		{Label: "安心", Color: "#0ea5e9"},
		{Label: "挑戦", Color: "#f97316"},
		{Label: "確信", Color: "#eab308"},
		{Label: "充足", Color: "#4ade80"},
		{Label: "静観", Color: "#ffffff"},
	}, FallbackColor)
	return t
}

// New builds a table. Labels must be unique and non-empty and every color must
// parse as #rgb or #rrggbb.
func New(categories []Category, fallback string) (*Table, error) {
	if fallback == "" {
		fallback = FallbackColor
	}
	if _, err := ParseHex(fallback); err != nil {
		return nil, errors.Wrap(err, "fallback color")
	}
	t := &Table{
		categories: make([]Category, 0, len(categories)),
		index:      make(map[string]int, len(categories)),
		fallback:   fallback,
	}
	for _, c := range categories {
		label := strings.TrimSpace(c.Label)
		if label == "" {
			return nil, errors.New("category label must not be empty")
		}
		if _, dup := t.index[label]; dup {
			return nil, errors.Newf("duplicate category %q", label)
		}
		if _, err := ParseHex(c.Color); err != nil {
			return nil, errors.Wrapf(err, "category %q", label)
		}
		t.index[label] = len(t.categories)
		t.categories = append(t.categories, Category{Label: label, Color: c.Color})
	}
	return t, nil
}

// Categories returns a copy of the table entries in rank order.
func (t *Table) Categories() []Category {
	out := make([]Category, len(t.categories))
	copy(out, t.categories)
	return out
}

// Known reports whether label is part of the closed set.
func (t *Table) Known(label string) bool {
	_, ok := t.index[strings.TrimSpace(label)]
	return ok
}

// Color returns the color bound to label, or the fallback color.
func (t *Table) Color(label string) string {
	if i, ok := t.index[strings.TrimSpace(label)]; ok {
		return t.categories[i].Color
	}
	return t.fallback
}

// Rank returns the appearance rank of label. Unknown labels sort last.
func (t *Table) Rank(label string) int {
	if i, ok := t.index[strings.TrimSpace(label)]; ok {
		return i
	}
	return len(t.categories)
}

// Fallback returns the color used for unknown categories.
func (t *Table) Fallback() string {
	return t.fallback
}

// ParseHex parses "#rgb" or "#rrggbb" into an opaque color.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, errors.Newf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, errors.Newf("invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// MustParseHex is ParseHex for compile-time constants.
func MustParseHex(s string) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}
