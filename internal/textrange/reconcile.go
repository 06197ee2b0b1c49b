package textrange

import "github.com/sergi/go-diff/diffmatchpatch"

var differ = diffmatchpatch.New()

// Reconcile updates ranges after the plain text changed from oldText to
// newText.
//
// The edited region is located by the common prefix of the two strings and a
// shrinking common suffix that never crosses the prefix. Any range touching
// the edited region is dropped rather than repaired: a partial overlap means
// the user edited inside the highlight and guessing which portion survives is
// worse than starting over. Ranges entirely after the edited region shift by
// the length delta; ranges entirely before it are untouched.
func Reconcile(oldText, newText string, ranges []Range) []Range {
	if oldText == newText {
		return ranges
	}

	oldRunes := []rune(oldText)
	newRunes := []rune(newText)

	// DiffCommonPrefix counts runes, matching our offset unit.
	diffStart := differ.DiffCommonPrefix(oldText, newText)

	oldEnd := len(oldRunes) - 1
	newEnd := len(newRunes) - 1
	for oldEnd >= diffStart && newEnd >= diffStart && oldRunes[oldEnd] == newRunes[newEnd] {
		oldEnd--
		newEnd--
	}

	changeLength := len(newRunes) - len(oldRunes)

	kept := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		switch {
		case overlapsEdit(r, diffStart, oldEnd):
			// Edited inside the highlight: drop it.
			continue
		case r.Start > oldEnd:
			kept = append(kept, Range{Start: r.Start + changeLength, End: r.End + changeLength})
		default:
			kept = append(kept, r)
		}
	}
	return kept
}

// overlapsEdit reports whether r touches the closed edit region
// [diffStart, oldEnd]: it starts inside, ends inside, or fully spans it.
func overlapsEdit(r Range, diffStart, oldEnd int) bool {
	if diffStart <= r.Start && r.Start <= oldEnd {
		return true
	}
	if diffStart <= r.End && r.End <= oldEnd {
		return true
	}
	return r.Start < diffStart && r.End > oldEnd
}
