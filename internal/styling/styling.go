// Package styling re-derives per-character inline styles from rich-text
// markup so the plain-text projection can be re-rendered with its original
// formatting.
package styling

import (
	"strings"
	"unicode"

	"github.com/nattapol/readalong/internal/document"
)

// CharStyle records one visible character's position in the plain-text
// projection and the inline style active at that position.
type CharStyle struct {
	Char   rune
	Offset int // rune offset in the plain text
	Style  string
}

// Recover walks the document tree and matches each visible character to its
// position in plain, recording the ancestor-derived style string.
//
// Matching is character identity against the first unused occurrence, which
// can mis-attribute styles in pathological repeated-character documents; an
// accepted approximation. Characters that cannot be matched are skipped
// rather than reported as errors.
func Recover(root document.Node, plain string) []CharStyle {
	plainRunes := []rune(plain)

	// Visible (non-whitespace) characters of the plain text, with a used
	// flag so repeated characters consume distinct positions.
	var visible []rune
	for _, r := range plainRunes {
		if !unicode.IsSpace(r) {
			visible = append(visible, r)
		}
	}
	used := make([]bool, len(visible))

	var out []CharStyle
	searchFrom := 0

	var walk func(n document.Node, ancestors []document.Node)
	walk = func(n document.Node, ancestors []document.Node) {
		if n.Kind() == document.KindText {
			if strings.TrimSpace(n.Text()) == "" {
				return
			}
			style := styleFromAncestors(ancestors)
			for _, r := range n.Text() {
				if unicode.IsSpace(r) {
					continue
				}
				if !claim(visible, used, r) {
					continue
				}
				off := indexRuneFrom(plainRunes, r, searchFrom)
				if off < 0 {
					continue
				}
				out = append(out, CharStyle{Char: r, Offset: off, Style: style})
				searchFrom = off + 1
			}
			return
		}
		for _, c := range n.Children() {
			walk(c, append(ancestors, n))
		}
	}
	walk(root, nil)

	return out
}

// RecoverHTML parses src and recovers styles against plain.
func RecoverHTML(src, plain string) ([]CharStyle, error) {
	root, err := document.ParseHTML(src)
	if err != nil {
		return nil, err
	}
	return Recover(root, plain), nil
}

// claim marks the first unused occurrence of r as used and reports whether
// one existed.
func claim(visible []rune, used []bool, r rune) bool {
	for i, v := range visible {
		if v == r && !used[i] {
			used[i] = true
			return true
		}
	}
	return false
}

// indexRuneFrom returns the rune offset of the first occurrence of r in
// runes at or after from, or -1.
func indexRuneFrom(runes []rune, r rune, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(runes); i++ {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// styleFromAncestors serializes the inline style active under the given
// ancestor chain, outermost first: explicit style attributes plus
// declarations implied by bold/italic/underline tags.
func styleFromAncestors(ancestors []document.Node) string {
	var parts []string
	for _, a := range ancestors {
		if a.Kind() != document.KindElement {
			continue
		}
		if v, ok := a.Attr("style"); ok && v != "" {
			parts = append(parts, v)
		}
		switch a.Tag() {
		case "b", "strong":
			parts = append(parts, "font-weight: bold;")
		case "i", "em":
			parts = append(parts, "font-style: italic;")
		case "u":
			parts = append(parts, "text-decoration: underline;")
		}
	}
	return strings.Join(parts, " ")
}
