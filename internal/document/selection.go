package document

// Selection is a range anchored inside the document tree, in the shape the
// editor boundary reports: container nodes plus intra-node rune offsets.
type Selection struct {
	StartNode   Node
	StartOffset int
	EndNode     Node
	EndOffset   int
	// Text is the selected text as reported by the editor. It drives the
	// post-normalization correction pass.
	Text string
}

// Offsets is a resolved [Start, End) rune-offset pair over the projection.
type Offsets struct {
	Start int
	End   int
}

// Resolve translates a selection into offsets over the projection.
//
// Containers that are not text leaves resolve to their first descendant text
// leaf. An unresolvable container contributes offset 0: a silent
// degraded-accuracy fallback, not an error. The computed window is then
// corrected against the selection's own text, since space normalization can
// shift offsets away from naive intra-node arithmetic.
func (p *Projection) Resolve(sel Selection) Offsets {
	start := p.anchorOffset(sel.StartNode) + sel.StartOffset
	end := p.anchorOffset(sel.EndNode) + sel.EndOffset

	start, end = AdjustOffsets(p.Text, start, end, sel.Text)
	return Offsets{Start: start, End: end}
}

// anchorOffset returns the projection offset of the nearest text leaf at or
// under n, or 0 when none exists.
func (p *Projection) anchorOffset(n Node) int {
	leaf := firstTextLeaf(n)
	if leaf == nil {
		return 0
	}
	off, ok := p.starts[leaf]
	if !ok {
		return 0
	}
	return off
}

// firstTextLeaf returns n itself when it is a text leaf, otherwise the first
// text leaf found by forward depth-first search.
func firstTextLeaf(n Node) Node {
	if n == nil {
		return nil
	}
	if n.Kind() == KindText {
		return n
	}
	for _, c := range n.Children() {
		if leaf := firstTextLeaf(c); leaf != nil {
			return leaf
		}
	}
	return nil
}

// AdjustOffsets re-locates the expected selected substring inside the
// [start, end) window of full and shifts both bounds to its first
// occurrence. Comparison ignores invisible characters. When the substring
// cannot be found the unadjusted bounds are returned.
func AdjustOffsets(full string, start, end int, expected string) (int, int) {
	runes := []rune(full)

	lo, hi := start, end
	if lo < 0 {
		lo = 0
	}
	if hi > len(runes) {
		hi = len(runes)
	}
	if lo >= hi {
		return start, end
	}

	slice := stripInvisible(string(runes[lo:hi]))
	want := stripInvisible(expected)
	if want == "" {
		return start, end
	}

	leading := runeIndex([]rune(slice), []rune(want))
	if leading < 0 {
		return start, end
	}

	adjStart := start + leading
	return adjStart, adjStart + len([]rune(expected))
}

// runeIndex returns the rune index of the first occurrence of needle in
// haystack, or -1.
func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
