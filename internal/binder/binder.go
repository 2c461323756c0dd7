// Package binder instantiates an HTML fragment into a document and keeps
// track of the {{placeholder}} markers in its text and attribute values, so
// that pushing a new value rewrites only the nodes that reference it.
// Elements carrying an attribute named @name declare an event hook that
// callers attach listeners to with Handle.SetEvent.
//
// A Handle is not safe for concurrent use; callers that share one across
// goroutines must serialize access, together with access to its Document.
package binder

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/conneroisu/wrap/internal/dom"
	"github.com/conneroisu/wrap/internal/errors"
	"github.com/conneroisu/wrap/internal/logging"
)

// Container says where the instantiated fragment goes.
type Container interface {
	resolve(doc *dom.Document) (*html.Node, error)
}

type selectorContainer string

func (s selectorContainer) resolve(doc *dom.Document) (*html.Node, error) {
	n, err := doc.QuerySelector(string(s))
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, errors.ErrContainerNotFound(string(s))
	}

	return n, nil
}

type nodeContainer struct{ n *html.Node }

func (c nodeContainer) resolve(*dom.Document) (*html.Node, error) {
	if c.n == nil {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed, "container node is nil")
	}

	return c.n, nil
}

// Selector resolves the container as the first element matching sel.
func Selector(sel string) Container {
	return selectorContainer(sel)
}

// Node uses n as the container.
func Node(n *html.Node) Container {
	return nodeContainer{n: n}
}

// Callback receives a fired event and the handle's live value store.
type Callback func(ev *dom.Event, values *Values)

// Change describes one rewritten target. Attr is empty for text nodes.
type Change struct {
	Name      string
	Node      *html.Node
	Namespace string
	Attr      string
	Value     string
}

// Option configures Bind.
type Option func(*Handle)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(h *Handle) {
		if logger != nil {
			h.logger = logger.WithComponent("binder")
		}
	}
}

// WithObserver registers fn to be called after every target rewrite.
func WithObserver(fn func(Change)) Option {
	return func(h *Handle) {
		h.observers = append(h.observers, fn)
	}
}

// WithFormatter sets the formatter used by Handle.Set.
func WithFormatter(f Formatter) Option {
	return func(h *Handle) {
		if f != nil {
			h.format = f
		}
	}
}

type target interface {
	write(s string)
	change() Change
}

type textTarget struct{ node *html.Node }

func (t textTarget) write(s string) { dom.SetText(t.node, s) }

func (t textTarget) change() Change { return Change{Node: t.node} }

// attrTarget addresses an attribute by name on its element, never by
// position, since attribute slices can be rewritten around it.
type attrTarget struct {
	elem      *html.Node
	namespace string
	key       string
}

func (t attrTarget) write(s string) { dom.SetAttrNS(t.elem, t.namespace, t.key, s) }

func (t attrTarget) change() Change {
	return Change{Node: t.elem, Namespace: t.namespace, Attr: t.key}
}

type binding struct {
	target target
	plan   Plan
}

// Handle updates the placeholders and events of one bound fragment.
type Handle struct {
	doc       *dom.Document
	container *html.Node
	values    *Values
	bindings  map[string][]*binding
	events    map[string][]*html.Node
	eventSeq  []string
	observers []func(Change)
	format    Formatter
	logger    logging.Logger
}

// Bind parses fragment, indexes its placeholders and @event declarations,
// moves its top-level nodes to the end of container, and returns the handle
// that updates them.
//
// Nothing is moved when the container cannot be resolved.
func Bind(doc *dom.Document, container Container, fragment string, opts ...Option) (*Handle, error) {
	if doc == nil {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed, "document is nil")
	}
	if container == nil {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed, "container is nil")
	}

	h := &Handle{
		doc:      doc,
		values:   newValues(),
		bindings: make(map[string][]*binding),
		events:   make(map[string][]*html.Node),
		format:   DefaultFormatter,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}

	parent, err := container.resolve(doc)
	if err != nil {
		return nil, err
	}
	h.container = parent

	detached, err := dom.ParseFragment(fragment)
	if err != nil {
		return nil, err
	}

	dom.Walk(detached, func(n *html.Node) bool {
		switch n.Type {
		case html.TextNode:
			if plan, ok := Scan(n.Data); ok {
				h.register(textTarget{node: n}, plan)
			}
		case html.ElementNode:
			h.scanAttributes(n)
		}
		return true
	})

	for _, n := range dom.ChildNodes(detached) {
		dom.AppendChild(parent, n)
	}

	h.logger.Debug(context.Background(), "Fragment bound",
		"placeholders", h.values.Len(),
		"events", len(h.eventSeq))

	return h, nil
}

func (h *Handle) scanAttributes(n *html.Node) {
	declared := false
	for _, a := range n.Attr {
		if strings.HasPrefix(a.Key, "@") {
			h.declareEvent(strings.TrimPrefix(a.Key, "@"), n)
			declared = true
			continue
		}
		if plan, ok := Scan(a.Val); ok {
			h.register(attrTarget{elem: n, namespace: a.Namespace, key: a.Key}, plan)
		}
	}

	if declared {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if !strings.HasPrefix(a.Key, "@") {
				kept = append(kept, a)
			}
		}
		n.Attr = kept
	}
}

func (h *Handle) register(t target, plan Plan) {
	b := &binding{target: t, plan: plan}
	for _, name := range plan.Names() {
		h.values.declare(name)
	}
	for _, name := range plan.Distinct() {
		h.bindings[name] = append(h.bindings[name], b)
	}
}

func (h *Handle) declareEvent(name string, n *html.Node) {
	if _, ok := h.events[name]; !ok {
		h.eventSeq = append(h.eventSeq, name)
	}
	h.events[name] = append(h.events[name], n)
}

// SetValue stores value under name and rewrites every text node and
// attribute whose plan references name, using the current values of all
// names in that plan. Unknown names are ignored.
func (h *Handle) SetValue(name, value string) {
	entries, ok := h.bindings[name]
	if !ok {
		h.logger.Debug(context.Background(), "Ignoring unknown placeholder", "name", name)
		return
	}

	h.values.set(name, value)

	for _, b := range entries {
		text := b.plan.Render(h.values.Lookup)
		b.target.write(text)
		if len(h.observers) > 0 {
			c := b.target.change()
			c.Name = name
			c.Value = text
			for _, fn := range h.observers {
				fn(c)
			}
		}
	}
}

// SetValues applies SetValue for each entry in sorted name order.
func (h *Handle) SetValues(values map[string]string) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		h.SetValue(name, values[name])
	}
}

// SetPairs applies SetValue for each pair in the given order.
func (h *Handle) SetPairs(pairs ...Pair) {
	for _, p := range pairs {
		h.SetValue(p.Name, p.Value)
	}
}

// Set formats v with the handle's Formatter and stores it under name.
func (h *Handle) Set(name string, v any) {
	h.SetValue(name, h.format(v))
}

// SetEvent attaches a capture-phase listener for eventType to every element
// that declared @name. The callback receives the event and the live value
// store. Unknown names are ignored. Listeners are never removed.
func (h *Handle) SetEvent(name, eventType string, cb Callback) {
	nodes, ok := h.events[name]
	if !ok {
		h.logger.Debug(context.Background(), "Ignoring unknown event", "name", name)
		return
	}
	if cb == nil {
		return
	}

	values := h.values
	for _, n := range nodes {
		h.doc.AddEventListener(n, eventType, func(ev *dom.Event) {
			cb(ev, values)
		}, true)
	}
}

// Values returns the live value store.
func (h *Handle) Values() *Values {
	return h.values
}

// Container returns the node the fragment was moved into.
func (h *Handle) Container() *html.Node {
	return h.container
}

// Document returns the document the handle writes to.
func (h *Handle) Document() *dom.Document {
	return h.doc
}

// Placeholders returns the discovered placeholder names in first-seen order.
func (h *Handle) Placeholders() []string {
	return h.values.Names()
}

// Bindings returns how many targets are rewritten when name changes.
func (h *Handle) Bindings(name string) int {
	return len(h.bindings[name])
}

// Events returns the declared event names in first-seen order.
func (h *Handle) Events() []string {
	return append([]string(nil), h.eventSeq...)
}

// EventNodes returns the elements that declared @name.
func (h *Handle) EventNodes(name string) []*html.Node {
	return append([]*html.Node(nil), h.events[name]...)
}
