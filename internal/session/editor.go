package session

import (
	"strings"
	"sync"

	"github.com/nattapol/readalong/internal/document"
)

// Content formats accepted by Editor.Content.
const (
	FormatHTML = "html"
	FormatText = "text"
)

// Editor is the narrow boundary to the content-editing surface. The session
// drives it through these calls and nothing else.
type Editor interface {
	// Content returns the document in the given format, FormatHTML or
	// FormatText.
	Content(format string) string
	// SetContent replaces the document with the given HTML.
	SetContent(html string) error
	// Root returns the editor's document tree. Selections reported by
	// Selection are anchored to nodes of this tree, so projections must be
	// built from it rather than from a reparse of the content.
	Root() document.Node
	// Selection returns the current selection, reporting false when there
	// is none.
	Selection() (document.Selection, bool)
	// OnChange registers a listener fired after every content change.
	OnChange(fn func())
}

// Mention is an inline token naming a person, carried in the markup as a
// span with a data-mention-id attribute.
type Mention struct {
	ID   string
	Name string
}

// MemoryEditor is an in-memory Editor backed by a parsed document tree. It
// serves tests and the demo binary in place of a real editing surface.
type MemoryEditor struct {
	mu        sync.Mutex
	html      string
	root      document.Node
	proj      *document.Projection
	sel       *document.Selection
	listeners []func()
}

// NewMemoryEditor creates an editor holding the given HTML.
func NewMemoryEditor(html string) (*MemoryEditor, error) {
	e := &MemoryEditor{}
	if err := e.setContent(html); err != nil {
		return nil, err
	}
	return e, nil
}

// Content returns the document as HTML or as projected plain text.
func (e *MemoryEditor) Content(format string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if format == FormatText {
		return e.proj.Text
	}
	return e.html
}

// SetContent replaces the document and fires the change listeners. Any
// selection is discarded.
func (e *MemoryEditor) SetContent(html string) error {
	if err := e.setContent(html); err != nil {
		return err
	}
	e.notify()
	return nil
}

func (e *MemoryEditor) setContent(html string) error {
	root, err := document.ParseHTML(html)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.html = html
	e.root = root
	e.proj = document.Project(root)
	e.sel = nil
	e.mu.Unlock()
	return nil
}

// Selection returns the current selection, if any.
func (e *MemoryEditor) Selection() (document.Selection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sel == nil {
		return document.Selection{}, false
	}
	return *e.sel, true
}

// OnChange registers a content-change listener.
func (e *MemoryEditor) OnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

func (e *MemoryEditor) notify() {
	e.mu.Lock()
	listeners := make([]func(), len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Root returns the parsed document tree.
func (e *MemoryEditor) Root() document.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

// SelectRange sets the selection to the [start, end) rune window of the
// projected plain text, anchoring it to the underlying text nodes the way a
// real selection would be reported.
func (e *MemoryEditor) SelectRange(start, end int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	runes := []rune(e.proj.Text)
	if start < 0 || end > len(runes) || start >= end {
		return false
	}

	startNode, startOff := e.locate(start)
	endNode, endOff := e.locate(end)
	if startNode == nil || endNode == nil {
		return false
	}

	e.sel = &document.Selection{
		StartNode:   startNode,
		StartOffset: startOff,
		EndNode:     endNode,
		EndOffset:   endOff,
		Text:        string(runes[start:end]),
	}
	return true
}

// SelectText selects the first occurrence of text in the projected plain
// text.
func (e *MemoryEditor) SelectText(text string) bool {
	e.mu.Lock()
	plain := e.proj.Text
	e.mu.Unlock()

	idx := strings.Index(plain, text)
	if idx < 0 {
		return false
	}
	start := len([]rune(plain[:idx]))
	return e.SelectRange(start, start+len([]rune(text)))
}

// SelectAll selects the entire document.
func (e *MemoryEditor) SelectAll() bool {
	e.mu.Lock()
	length := len([]rune(e.proj.Text))
	e.mu.Unlock()
	return e.SelectRange(0, length)
}

// ClearSelection drops the selection.
func (e *MemoryEditor) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel = nil
}

// Mentions returns the mention tokens present in the document, in tree
// order.
func (e *MemoryEditor) Mentions() []Mention {
	e.mu.Lock()
	root := e.root
	e.mu.Unlock()

	var mentions []Mention
	var walk func(n document.Node)
	walk = func(n document.Node) {
		if id, ok := n.Attr("data-mention-id"); ok {
			mentions = append(mentions, Mention{ID: id, Name: nodeText(n)})
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(root)
	return mentions
}

// locate maps a projection offset to the text node containing it and the
// offset within that node. Callers hold e.mu.
func (e *MemoryEditor) locate(offset int) (document.Node, int) {
	var best document.Node
	bestStart := -1

	var walk func(n document.Node)
	walk = func(n document.Node) {
		if n.Kind() == document.KindText {
			if start, ok := e.proj.Start(n); ok && start <= offset && start > bestStart {
				best = n
				bestStart = start
			}
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(e.root)

	if best == nil {
		return nil, 0
	}
	return best, offset - bestStart
}

func nodeText(n document.Node) string {
	if n.Kind() == document.KindText {
		return n.Text()
	}
	var b strings.Builder
	for _, c := range n.Children() {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
