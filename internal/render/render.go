// Package render draws the plain-text projection with recovered styles and
// highlight state applied.
package render

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/nattapol/readalong/internal/styling"
	"github.com/nattapol/readalong/internal/textrange"
)

// Options carries the caller-owned colors.
type Options struct {
	TextColor     string
	TextHighlight string
}

// Segment is a run of the plain text between range boundaries.
type Segment struct {
	Text        string
	Start       int // rune offset of the segment in the plain text
	Highlighted bool
	// RangeIndex is the position of the covering range in the sorted range
	// list, or -1 for unhighlighted segments.
	RangeIndex int
}

// Segments splits plain at highlight boundaries. Ranges must be sorted and
// non-overlapping, the invariant textrange.Merge maintains.
func Segments(plain string, ranges []textrange.Range) []Segment {
	runes := []rune(plain)
	var segs []Segment
	current := 0

	for i, r := range ranges {
		start, end := r.Start, r.End
		if start < 0 {
			start = 0
		}
		if end > len(runes) {
			end = len(runes)
		}
		if start >= end {
			continue
		}
		if current < start {
			segs = append(segs, Segment{
				Text:       string(runes[current:start]),
				Start:      current,
				RangeIndex: -1,
			})
		}
		segs = append(segs, Segment{
			Text:        string(runes[start:end]),
			Start:       start,
			Highlighted: true,
			RangeIndex:  i,
		})
		current = end
	}

	if current < len(runes) {
		segs = append(segs, Segment{
			Text:       string(runes[current:]),
			Start:      current,
			RangeIndex: -1,
		})
	}
	return segs
}

// ANSI renders the styled, highlighted text for a terminal.
//
// speakingIndex is the currently voiced range, or -1. While nothing is being
// voiced every highlighted segment carries the highlight background; during
// playback only the active segment does.
func ANSI(plain string, ranges []textrange.Range, table styling.Table, speakingIndex int, opts Options) string {
	var sb strings.Builder

	for _, seg := range Segments(plain, ranges) {
		background := false
		if seg.Highlighted {
			if speakingIndex < 0 {
				background = true
			} else {
				background = seg.RangeIndex == speakingIndex
			}
		}
		sb.WriteString(renderSegment(seg, table, background, opts))
	}
	return sb.String()
}

// renderSegment styles a segment word by word. A token's style is looked up
// at its first character's offset; whitespace runs separate tokens and stay
// unstyled.
func renderSegment(seg Segment, table styling.Table, background bool, opts Options) string {
	var sb strings.Builder
	offset := seg.Start

	for _, token := range splitTokens(seg.Text) {
		tokenLen := len([]rune(token))
		if strings.TrimSpace(token) == "" {
			if background {
				sb.WriteString(baseStyle(background, opts).Render(token))
			} else {
				sb.WriteString(token)
			}
			offset += tokenLen
			continue
		}

		style := baseStyle(background, opts)
		if raw, ok := table.At(offset); ok {
			decl := styling.ParseDeclarations(raw)
			if decl.Bold() {
				style = style.Bold(true)
			}
			if decl.Italic() {
				style = style.Italic(true)
			}
			if decl.Underline() {
				style = style.Underline(true)
			}
			// Highlighted segments keep the caller's text color so the
			// highlight stays readable.
			if c, ok := decl.Color(); ok && !background {
				style = style.Foreground(lipgloss.Color(c))
			}
		}

		sb.WriteString(style.Render(token))
		offset += tokenLen
	}
	return sb.String()
}

func baseStyle(background bool, opts Options) lipgloss.Style {
	style := lipgloss.NewStyle()
	if background {
		style = style.
			Background(lipgloss.Color(opts.TextHighlight)).
			Foreground(lipgloss.Color(opts.TextColor))
	}
	return style
}

// splitTokens splits text into alternating word and whitespace runs,
// preserving the whitespace.
func splitTokens(text string) []string {
	var tokens []string
	var current strings.Builder
	var inSpace bool

	for i, r := range text {
		isSpace := unicode.IsSpace(r)
		if i > 0 && isSpace != inSpace {
			tokens = append(tokens, current.String())
			current.Reset()
		}
		inSpace = isSpace
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
