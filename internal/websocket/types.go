package websocket

import (
	"sync"

	"github.com/coder/websocket"
)

// Message types exchanged with the browser client.
const (
	TypeHello  = "hello"
	TypeRender = "render"
	TypeEvent  = "event"
	TypeError  = "error"
)

// Message is the single JSON envelope used in both directions. Which fields
// are set depends on Type.
type Message struct {
	Type      string            `json:"type"`
	Session   string            `json:"session,omitempty"`
	Container string            `json:"container,omitempty"`
	Events    []string          `json:"events,omitempty"`
	HTML      *string           `json:"html,omitempty"`
	Event     string            `json:"event,omitempty"`
	Path      []int             `json:"path,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// RenderMessage builds a render message carrying html.
func RenderMessage(html string) Message {
	return Message{Type: TypeRender, HTML: &html}
}

// ErrorMessage builds an error message.
func ErrorMessage(err error) Message {
	return Message{Type: TypeError, Error: err.Error()}
}

// Session is the per-connection state owned by the application.
type Session interface {
	// Receive handles one message read from the client.
	Receive(msg Message) error
	// Reload rebuilds the session after its sources changed.
	Reload() error
	// Close releases the session once the connection is gone.
	Close()
}

// SessionFactory creates the session for a newly accepted client. It may
// queue messages with Client.Send before the write loop starts.
type SessionFactory func(c *Client) (Session, error)

// Client represents a WebSocket client connection
type Client struct {
	id        string
	conn      *websocket.Conn
	send      chan Message
	done      chan struct{}
	closeOnce sync.Once
	session   Session
}

// ID returns the client's session id.
func (c *Client) ID() string {
	return c.id
}

// Send queues msg for the write loop. It reports false when the client is
// closed or its buffer is full.
func (c *Client) Send(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() bool {
	closed := false
	c.closeOnce.Do(func() {
		close(c.done)
		closed = true
	})

	return closed
}
