// Package dom is the document tree the binder works against: a
// golang.org/x/net/html node tree plus the few browser capabilities the
// binder needs (fragment parsing, selector lookup, text and attribute
// mutation, event listeners, serialization).
//
// A Document is not safe for concurrent use.
package dom

import (
	"bytes"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/wrap/internal/errors"
)

// Document owns a parsed tree and the event listeners registered on it.
type Document struct {
	root      *html.Node
	listeners map[*html.Node][]*registration
}

// NewDocument parses markup as a complete HTML document.
func NewDocument(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, errors.NewParseError(errors.ErrCodeInvalidMarkup, "failed to parse document", err)
	}

	return NewDocumentFromNode(root), nil
}

// NewDocumentFromNode wraps an existing tree.
func NewDocumentFromNode(root *html.Node) *Document {
	return &Document{
		root:      root,
		listeners: make(map[*html.Node][]*registration),
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the first <body> element, or nil.
func (d *Document) Body() *html.Node {
	var body *html.Node
	Walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})

	return body
}

// QuerySelector returns the first element matching sel in document order,
// or nil when nothing matches.
func (d *Document) QuerySelector(sel string) (*html.Node, error) {
	compiled, err := cascadia.Compile(sel)
	if err != nil {
		return nil, errors.ErrInvalidSelector(sel, err)
	}

	return compiled.MatchFirst(d.root), nil
}

// Render writes the whole document.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the whole document, ignoring write errors.
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)

	return buf.String()
}

// ParseFragment parses markup the way assigning innerHTML on a detached
// <div> would and returns that div holding the parsed nodes.
func ParseFragment(markup string) (*html.Node, error) {
	container := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	}

	nodes, err := html.ParseFragment(strings.NewReader(markup), container)
	if err != nil {
		return nil, errors.NewParseError(errors.ErrCodeInvalidMarkup, "failed to parse fragment", err)
	}
	for _, n := range nodes {
		AppendChild(container, n)
	}

	return container, nil
}

// Walk visits every descendant of root in pre-order (parent before
// children, siblings left to right). Returning false from fn stops the walk.
// root itself is not visited.
func Walk(root *html.Node, fn func(*html.Node) bool) {
	walk(root, fn)
}

func walk(n *html.Node, fn func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !fn(c) {
			return false
		}
		if !walk(c, fn) {
			return false
		}
	}

	return true
}

// ChildNodes returns a snapshot of n's children. Moving the returned nodes
// does not disturb the iteration.
func ChildNodes(n *html.Node) []*html.Node {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}

	return children
}

// AppendChild moves child to the end of parent, detaching it first.
func AppendChild(parent, child *html.Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
}

// Text returns the text content of n: the data of a text node, or the
// concatenated text of all descendant text nodes of an element.
func Text(n *html.Node) string {
	switch n.Type {
	case html.TextNode, html.CommentNode:
		return n.Data
	}

	var sb strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})

	return sb.String()
}

// SetText replaces the text content of n. Elements lose all their children
// and receive a single text node.
func SetText(n *html.Node, s string) {
	switch n.Type {
	case html.TextNode, html.CommentNode:
		n.Data = s
		return
	}

	for _, c := range ChildNodes(n) {
		n.RemoveChild(c)
	}
	if s != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

// Attr returns the value of the non-namespaced attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	return AttrNS(n, "", key)
}

// AttrNS returns the value of the attribute namespace:key.
func AttrNS(n *html.Node, namespace, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == namespace && a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}

// SetAttr sets a non-namespaced attribute, adding it if missing.
func SetAttr(n *html.Node, key, val string) {
	SetAttrNS(n, "", key, val)
}

// SetAttrNS sets namespace:key, adding it if missing.
func SetAttrNS(n *html.Node, namespace, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == namespace && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Namespace: namespace, Key: key, Val: val})
}

// RemoveAttr deletes every attribute named key without a namespace.
func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// ElementPath returns the element-child indices leading from root to n.
func ElementPath(root, n *html.Node) ([]int, bool) {
	var path []int
	for cur := n; cur != root; cur = cur.Parent {
		if cur == nil || cur.Parent == nil {
			return nil, false
		}
		idx := 0
		for s := cur.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				idx++
			}
		}
		path = append(path, idx)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path, true
}

// ElementAt resolves a path produced by ElementPath, or returns nil.
func ElementAt(root *html.Node, path []int) *html.Node {
	cur := root
	for _, want := range path {
		if want < 0 {
			return nil
		}
		var next *html.Node
		idx := 0
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if idx == want {
				next = c
				break
			}
			idx++
		}
		if next == nil {
			return nil
		}
		cur = next
	}

	return cur
}

// OuterHTML renders n itself.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)

	return buf.String()
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}

	return buf.String()
}
