package server

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/wrap/internal/binder"
	"github.com/conneroisu/wrap/internal/config"
	"github.com/conneroisu/wrap/internal/dom"
	"github.com/conneroisu/wrap/internal/errors"
	"github.com/conneroisu/wrap/internal/logging"
	"github.com/conneroisu/wrap/internal/scene"
	"github.com/conneroisu/wrap/internal/websocket"
)

// session is one browser's private scene. Every access to the scene holds mu.
type session struct {
	client *websocket.Client
	server *Server
	logger logging.Logger

	mu     sync.Mutex
	scene  *scene.Scene
	dirty  bool
	closed bool
}

func (s *Server) newSession(c *websocket.Client) (websocket.Session, error) {
	sess := &session{
		client: c,
		server: s,
		logger: s.logger.With("session", c.ID()),
	}

	sc, err := scene.Build(context.Background(), s.currentSpec(), sess.logger, binder.WithObserver(sess.observe))
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.scene = sc
	sess.greet()

	return sess, nil
}

// observe runs under mu, from inside SetValue.
func (s *session) observe(binder.Change) {
	s.dirty = true
}

func (s *session) greet() {
	container := s.scene.Spec().Container
	if container == "" {
		container = config.DefaultContainer
	}

	s.client.Send(websocket.Message{
		Type:      websocket.TypeHello,
		Session:   s.client.ID(),
		Container: container,
		Events:    s.scene.Doc.EventTypes(),
	})
	s.client.Send(websocket.RenderMessage(s.scene.InnerHTML()))
}

// Receive dispatches a browser event at the element the path names and
// pushes the container if any binding changed.
func (s *session) Receive(msg websocket.Message) error {
	if msg.Type != websocket.TypeEvent {
		return errors.NewValidationError(errors.ErrCodeInvalidMessage,
			fmt.Sprintf("unsupported message type %q", msg.Type))
	}
	if msg.Event == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidMessage, "event message without an event type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	target := dom.ElementAt(s.scene.Handle.Container(), msg.Path)
	if target == nil {
		return errors.NewValidationError(errors.ErrCodeNodeNotFound, "no element at event path").
			WithContext("path", msg.Path)
	}

	syncFormState(target, msg.Detail)

	ev := dom.NewEvent(msg.Event)
	ev.Detail = msg.Detail

	op := s.logger.StartOperation("dispatch")
	s.dirty = false
	s.scene.Doc.Dispatch(target, ev)
	op.End(context.Background())
	s.logger.Debug(context.Background(), "Dispatched browser event", "event", msg.Event, "changed", s.dirty)

	if s.dirty {
		s.client.Send(websocket.RenderMessage(s.scene.InnerHTML()))
	}

	return nil
}

// Reload rebuilds the scene from the server's current spec, keeping the
// values this session has set, and sends a fresh hello and render.
func (s *session) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	next, err := s.scene.Rebuild(context.Background(), s.server.currentSpec(), s.logger, binder.WithObserver(s.observe))
	if err != nil {
		return err
	}
	s.scene = next
	s.greet()

	return nil
}

func (s *session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// syncFormState copies the control state the browser reported onto the
// element, so renders pushed back to the page keep what the user typed.
func syncFormState(n *html.Node, detail map[string]string) {
	value, hasValue := detail["value"]

	switch n.DataAtom {
	case atom.Input:
		if hasValue {
			dom.SetAttr(n, "value", value)
		}
		kind, _ := dom.Attr(n, "type")
		kind = strings.ToLower(kind)
		if checked, ok := detail["checked"]; ok && (kind == "checkbox" || kind == "radio") {
			if checked == "true" {
				dom.SetAttr(n, "checked", "")
			} else {
				dom.RemoveAttr(n, "checked")
			}
		}
	case atom.Textarea:
		if !hasValue {
			return
		}
		if c := n.FirstChild; c != nil && c.Type == html.TextNode && c.NextSibling == nil {
			dom.SetText(c, value)
		} else {
			dom.SetText(n, value)
		}
	case atom.Select:
		if !hasValue {
			return
		}
		dom.Walk(n, func(c *html.Node) bool {
			if c.DataAtom != atom.Option {
				return true
			}
			optionValue, ok := dom.Attr(c, "value")
			if !ok {
				optionValue = strings.TrimSpace(dom.Text(c))
			}
			if optionValue == value {
				dom.SetAttr(c, "selected", "")
			} else {
				dom.RemoveAttr(c, "selected")
			}
			return true
		})
	}
}
