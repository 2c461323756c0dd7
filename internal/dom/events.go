package dom

import "golang.org/x/net/html"

// Phase is the dispatch phase an event is in.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseCapturing
	PhaseAtTarget
	PhaseBubbling
)

// Event is a dispatched event. Detail carries data reported by whoever
// fired it (the live client sends input values here).
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	Phase         Phase
	Bubbles       bool
	Detail        map[string]string

	stopped          bool
	defaultPrevented bool
}

// NewEvent returns a bubbling event of the given type.
func NewEvent(eventType string) *Event {
	return &Event{Type: eventType, Bubbles: true}
}

// StopPropagation prevents the event from reaching further nodes. Listeners
// on the current node still run.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// PreventDefault marks the event as cancelled.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// Listener handles a dispatched event.
type Listener func(*Event)

type registration struct {
	eventType string
	listener  Listener
	capture   bool
}

// AddEventListener registers fn for eventType on node. Capture listeners
// fire while the event travels from the root down to the target.
func (d *Document) AddEventListener(node *html.Node, eventType string, fn Listener, capture bool) {
	if node == nil || fn == nil {
		return
	}
	d.listeners[node] = append(d.listeners[node], &registration{
		eventType: eventType,
		listener:  fn,
		capture:   capture,
	})
}

// EventTypes returns the distinct event types with at least one listener,
// in first-registration order over a pre-order walk of the document.
func (d *Document) EventTypes() []string {
	seen := make(map[string]bool)
	var types []string
	collect := func(n *html.Node) {
		for _, r := range d.listeners[n] {
			if !seen[r.eventType] {
				seen[r.eventType] = true
				types = append(types, r.eventType)
			}
		}
	}

	collect(d.root)
	Walk(d.root, func(n *html.Node) bool {
		collect(n)
		return true
	})

	return types
}

// Dispatch fires ev at target: capture listeners on the ancestors from the
// root down, every listener on the target in registration order, then, for
// bubbling events, non-capture listeners on the ancestors back up to the
// root. It returns false if a listener called PreventDefault.
func (d *Document) Dispatch(target *html.Node, ev *Event) bool {
	if target == nil || ev == nil {
		return true
	}
	ev.Target = target
	ev.stopped = false

	var ancestors []*html.Node
	for p := target.Parent; p != nil; p = p.Parent {
		ancestors = append(ancestors, p)
	}

	ev.Phase = PhaseCapturing
	for i := len(ancestors) - 1; i >= 0 && !ev.stopped; i-- {
		d.invoke(ancestors[i], ev, func(r *registration) bool { return r.capture })
	}

	if !ev.stopped {
		ev.Phase = PhaseAtTarget
		d.invoke(target, ev, func(*registration) bool { return true })
	}

	if ev.Bubbles {
		ev.Phase = PhaseBubbling
		for i := 0; i < len(ancestors) && !ev.stopped; i++ {
			d.invoke(ancestors[i], ev, func(r *registration) bool { return !r.capture })
		}
	}

	ev.Phase = PhaseNone
	ev.CurrentTarget = nil

	return !ev.defaultPrevented
}

func (d *Document) invoke(node *html.Node, ev *Event, accept func(*registration) bool) {
	regs := append([]*registration(nil), d.listeners[node]...)
	ev.CurrentTarget = node
	for _, r := range regs {
		if r.eventType != ev.Type || !accept(r) {
			continue
		}
		r.listener(ev)
	}
}
