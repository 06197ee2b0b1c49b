// Package document flattens a rich-text document into a plain-text
// projection and resolves selections against it.
//
// The algorithms operate on a minimal tree interface rather than a concrete
// HTML DOM, so they can be tested against synthetic fixtures. The production
// path parses HTML with golang.org/x/net/html and adapts it to the same
// interface.
package document

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// Kind discriminates tree node types.
type Kind int

const (
	// KindElement is a markup element with a tag and children.
	KindElement Kind = iota
	// KindText is a text leaf.
	KindText
)

// ErrNoBody is returned when parsed HTML has no body element.
var ErrNoBody = errors.New("document has no body element")

// Node is the minimal document shape the projection, selection, and style
// algorithms need: a tree of elements with text leaves.
//
// Implementations must be comparable (pointer-backed) because nodes are used
// as map keys in the offset index.
type Node interface {
	Kind() Kind
	// Tag returns the lowercase tag name for elements, "" for text leaves.
	Tag() string
	// Text returns the content of a text leaf, "" for elements.
	Text() string
	Children() []Node
	// Attr returns the value of the named attribute, if present.
	Attr(name string) (string, bool)
}

// TreeNode is a synthetic Node implementation for fixtures and the in-memory
// editor.
type TreeNode struct {
	kind     Kind
	tag      string
	text     string
	attrs    map[string]string
	children []Node
}

// NewText creates a text leaf.
func NewText(text string) *TreeNode {
	return &TreeNode{kind: KindText, text: text}
}

// NewElement creates an element node with the given children.
func NewElement(tag string, children ...Node) *TreeNode {
	return &TreeNode{kind: KindElement, tag: strings.ToLower(tag), children: children}
}

// SetAttr sets an attribute and returns the node for chaining.
func (n *TreeNode) SetAttr(name, value string) *TreeNode {
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[name] = value
	return n
}

// Append adds children to the node and returns it.
func (n *TreeNode) Append(children ...Node) *TreeNode {
	n.children = append(n.children, children...)
	return n
}

func (n *TreeNode) Kind() Kind       { return n.kind }
func (n *TreeNode) Tag() string      { return n.tag }
func (n *TreeNode) Text() string     { return n.text }
func (n *TreeNode) Children() []Node { return n.children }

func (n *TreeNode) Attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// htmlNode adapts a golang.org/x/net/html node tree. The wrapper tree is
// built once at parse time so node identity is stable across walks.
type htmlNode struct {
	kind     Kind
	tag      string
	text     string
	attrs    []html.Attribute
	children []Node
}

func (n *htmlNode) Kind() Kind       { return n.kind }
func (n *htmlNode) Tag() string      { return n.tag }
func (n *htmlNode) Text() string     { return n.text }
func (n *htmlNode) Children() []Node { return n.children }

func (n *htmlNode) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// ParseHTML parses an HTML fragment or document and returns its body as a
// Node tree. Comments and other non-content nodes are dropped.
func ParseHTML(src string) (Node, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, err
	}

	body := findElement(doc, "body")
	if body == nil {
		return nil, ErrNoBody
	}

	return wrapHTML(body), nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func wrapHTML(n *html.Node) *htmlNode {
	switch n.Type {
	case html.TextNode:
		return &htmlNode{kind: KindText, text: n.Data}
	case html.ElementNode, html.DocumentNode:
		wrapped := &htmlNode{
			kind:  KindElement,
			tag:   strings.ToLower(n.Data),
			attrs: n.Attr,
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := wrapHTML(c); child != nil {
				wrapped.children = append(wrapped.children, child)
			}
		}
		return wrapped
	default:
		return nil
	}
}
