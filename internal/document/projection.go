package document

import "strings"

// BlockSeparator is inserted between paragraph-level blocks in the
// plain-text projection.
const BlockSeparator = "\n\n"

// blockTags are the tags treated as paragraph-level blocks.
var blockTags = map[string]bool{
	"p":   true,
	"div": true,
}

// Projection is the flattened plain-text extraction of a document, plus an
// index from each text leaf to its starting rune offset. The index is only
// valid for the tree the projection was built from.
type Projection struct {
	Text   string
	starts map[Node]int
}

// Project flattens root into a plain-text projection.
//
// Outermost block elements are visited in document order; every text leaf
// under a block contributes its normalized content, and BlockSeparator is
// appended after each block. A trailing separator is trimmed. Text outside
// any block is only considered when the document has no blocks at all, in
// which case the whole tree counts as a single block.
func Project(root Node) *Projection {
	p := &Projection{starts: make(map[Node]int)}

	blocks := collectBlocks(root)
	if len(blocks) == 0 {
		blocks = []Node{root}
	}

	var sb strings.Builder
	offset := 0
	for _, block := range blocks {
		walkText(block, func(n Node) {
			norm := NormalizeSpace(n.Text())
			p.starts[n] = offset
			sb.WriteString(norm)
			offset += len([]rune(norm))
		})
		sb.WriteString(BlockSeparator)
		offset += len([]rune(BlockSeparator))
	}

	text := sb.String()
	if strings.HasSuffix(text, BlockSeparator) {
		text = text[:len(text)-len(BlockSeparator)]
	}
	p.Text = text
	return p
}

// Start returns the starting rune offset of the given text leaf.
func (p *Projection) Start(n Node) (int, bool) {
	off, ok := p.starts[n]
	return off, ok
}

// Len returns the projection length in runes.
func (p *Projection) Len() int {
	return len([]rune(p.Text))
}

// collectBlocks returns the outermost block-level elements in document
// order. It does not descend into a block looking for nested blocks.
func collectBlocks(root Node) []Node {
	var blocks []Node
	var walk func(Node)
	walk = func(n Node) {
		if n.Kind() == KindElement && blockTags[n.Tag()] {
			blocks = append(blocks, n)
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	// The root itself never counts as a block; it is the container.
	for _, c := range root.Children() {
		walk(c)
	}
	return blocks
}

// walkText visits every text leaf under n in document order.
func walkText(n Node, visit func(Node)) {
	if n.Kind() == KindText {
		visit(n)
		return
	}
	for _, c := range n.Children() {
		walkText(c, visit)
	}
}

// NormalizeSpace converts non-breaking spaces to regular spaces and strips
// zero-width spaces.
func NormalizeSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0': // NBSP
			return ' '
		case '\u200b': // zero-width space
			return -1
		}
		return r
	}, s)
}

// stripInvisible removes zero-width and non-breaking characters for
// content comparison.
func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00a0':
			return -1
		}
		return r
	}, s)
}
