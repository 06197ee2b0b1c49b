// Package textrange maintains sets of highlighted character ranges over a
// plain-text projection and keeps them consistent across edits.
package textrange

import "sort"

// Range is a half-open [Start, End) interval of rune offsets into the
// plain-text projection.
type Range struct {
	Start int
	End   int
}

// Len returns the number of runes covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Valid reports whether the range is well-formed.
func (r Range) Valid() bool {
	return r.Start >= 0 && r.Start < r.End
}

// Merge inserts [start, end) into ranges, maintaining the sorted,
// pairwise-non-overlapping invariant.
//
// An existing range fully containing the new one makes the call a no-op.
// Existing ranges fully contained in the new one are dropped. Overlapping or
// touching ranges are absorbed, expanding the new range to the union, so one
// insertion can swallow a chain of existing ranges. The input slice is never
// mutated.
func Merge(ranges []Range, start, end int) []Range {
	kept := make([]Range, 0, len(ranges)+1)

	for _, r := range ranges {
		switch {
		case start >= r.Start && end <= r.End:
			// New range already covered.
			return ranges
		case r.Start >= start && r.End <= end:
			// Existing range swallowed by the new one.
			continue
		case start <= r.End && end >= r.Start:
			// Overlap or touch: absorb into the new range.
			if r.Start < start {
				start = r.Start
			}
			if r.End > end {
				end = r.End
			}
		default:
			kept = append(kept, r)
		}
	}

	kept = append(kept, Range{Start: start, End: end})
	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}

// Remove deletes the exact-match range from the set.
func Remove(ranges []Range, target Range) []Range {
	kept := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r == target {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// Slice returns the substring of text covered by r. Offsets are rune
// offsets; out-of-bounds ranges are clamped.
func (r Range) Slice(text string) string {
	runes := []rune(text)
	start, end := r.Start, r.End
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}
