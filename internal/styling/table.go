package styling

import "strings"

// Table maps plain-text rune offsets to the style string active there. The
// table is sparse: only visible characters have entries, and render-time
// lookups at a word's first character cover the whole token.
type Table map[int]string

// BuildTable indexes recovered character styles by offset.
func BuildTable(chars []CharStyle) Table {
	t := make(Table, len(chars))
	for _, c := range chars {
		t[c.Offset] = c.Style
	}
	return t
}

// At returns the style string at the given offset, if any.
func (t Table) At(offset int) (string, bool) {
	s, ok := t[offset]
	return s, ok
}

// Declarations is a parsed inline-style string: property to value.
type Declarations map[string]string

// ParseDeclarations parses a serialized inline style ("a: b; c: d") into a
// property map. Malformed items are dropped.
func ParseDeclarations(style string) Declarations {
	d := make(Declarations)
	for _, item := range strings.Split(style, ";") {
		key, value, ok := strings.Cut(item, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		d[key] = value
	}
	return d
}

// Bold reports whether the declarations request bold weight.
func (d Declarations) Bold() bool {
	w := d["font-weight"]
	return w == "bold" || w == "700" || w == "800" || w == "900"
}

// Italic reports whether the declarations request italic style.
func (d Declarations) Italic() bool {
	return d["font-style"] == "italic"
}

// Underline reports whether the declarations request underlining.
func (d Declarations) Underline() bool {
	return strings.Contains(d["text-decoration"], "underline")
}

// Color returns the foreground color declaration, if present.
func (d Declarations) Color() (string, bool) {
	c, ok := d["color"]
	return c, ok
}

// Background returns the background color declaration, if present.
func (d Declarations) Background() (string, bool) {
	c, ok := d["background-color"]
	return c, ok
}
