// Package websocket manages the live connections of the preview server.
// A single hub goroutine owns the client set; each client has a read loop
// and a write loop, and all of them stop when the manager shuts down.
package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/conneroisu/wrap/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

// Manager handles WebSocket connection management and session reloads.
//
// Invariants:
//   - clients is only accessed with clientsMutex held
//   - ctx and cancel are never nil after construction
//   - a client's session is closed exactly once, on unregister or shutdown
type Manager struct {
	clients      map[string]*Client
	clientsMutex sync.RWMutex

	register   chan *Client
	unregister chan *Client
	reload     chan struct{}

	factory        SessionFactory
	originPatterns []string
	logger         logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	hubDone      chan struct{}
}

// NewManager creates a manager and starts its hub. originPatterns are
// host patterns accepted in the Origin header in addition to the request
// host itself.
func NewManager(factory SessionFactory, originPatterns []string, logger logging.Logger) *Manager {
	if factory == nil {
		panic("websocket: session factory cannot be nil")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	ctx, cancel := context.WithCancel(context.Background())
	wm := &Manager{
		clients:        make(map[string]*Client),
		register:       make(chan *Client, 32),
		unregister:     make(chan *Client, 32),
		reload:         make(chan struct{}, 1),
		factory:        factory,
		originPatterns: originPatterns,
		logger:         logger.WithComponent("websocket"),
		ctx:            ctx,
		cancel:         cancel,
		hubDone:        make(chan struct{}),
	}

	go wm.runHub()

	return wm
}

// HandleWebSocket upgrades the request, creates the client's session and
// serves the connection until it closes.
func (wm *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: wm.originPatterns,
	})
	if err != nil {
		wm.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Message, sendBuffer),
		done: make(chan struct{}),
	}

	session, err := wm.factory(client)
	if err != nil {
		wm.logger.Error(wm.ctx, err, "Failed to create session", "client", client.id)
		_ = conn.Close(websocket.StatusInternalError, "session unavailable")
		return
	}
	client.session = session

	select {
	case wm.register <- client:
	case <-wm.ctx.Done():
		session.Close()
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go wm.writeToClient(client)
	wm.readFromClient(client)

	select {
	case wm.unregister <- client:
	case <-wm.ctx.Done():
		wm.closeClient(client, websocket.StatusGoingAway, "server shutdown")
	}
}

// Reload asks every session to rebuild. Requests made while one is pending
// are coalesced.
func (wm *Manager) Reload() {
	select {
	case wm.reload <- struct{}{}:
	default:
	}
}

func (wm *Manager) runHub() {
	defer close(wm.hubDone)

	for {
		select {
		case client := <-wm.register:
			wm.registerClient(client)

		case client := <-wm.unregister:
			wm.unregisterClient(client)

		case <-wm.reload:
			wm.reloadClients()

		case <-wm.ctx.Done():
			return
		}
	}
}

func (wm *Manager) registerClient(client *Client) {
	wm.clientsMutex.Lock()
	wm.clients[client.id] = client
	total := len(wm.clients)
	wm.clientsMutex.Unlock()

	wm.logger.Info(wm.ctx, "WebSocket client connected", "client", client.id, "total", total)
}

func (wm *Manager) unregisterClient(client *Client) {
	wm.clientsMutex.Lock()
	_, exists := wm.clients[client.id]
	delete(wm.clients, client.id)
	total := len(wm.clients)
	wm.clientsMutex.Unlock()

	if exists {
		wm.closeClient(client, websocket.StatusNormalClosure, "")
		wm.logger.Info(wm.ctx, "WebSocket client disconnected", "client", client.id, "total", total)
	}
}

func (wm *Manager) closeClient(client *Client, code websocket.StatusCode, reason string) {
	if !client.close() {
		return
	}
	client.session.Close()
	if err := client.conn.Close(code, reason); err != nil {
		wm.logger.Debug(wm.ctx, "Close after disconnect", "client", client.id, "error", err)
	}
}

func (wm *Manager) reloadClients() {
	for _, client := range wm.snapshot() {
		if err := client.session.Reload(); err != nil {
			wm.logger.Warn(wm.ctx, err, "Session reload failed", "client", client.id)
			client.Send(ErrorMessage(err))
		}
	}
}

func (wm *Manager) snapshot() []*Client {
	wm.clientsMutex.RLock()
	defer wm.clientsMutex.RUnlock()

	clients := make([]*Client, 0, len(wm.clients))
	for _, client := range wm.clients {
		clients = append(clients, client)
	}

	return clients
}

func (wm *Manager) readFromClient(client *Client) {
	for {
		var msg Message
		if err := wsjson.Read(wm.ctx, client.conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && wm.ctx.Err() == nil {
				wm.logger.Debug(wm.ctx, "WebSocket read ended", "client", client.id, "error", err)
			}
			return
		}

		if err := client.session.Receive(msg); err != nil {
			wm.logger.Warn(wm.ctx, err, "Rejected client message", "client", client.id, "type", msg.Type)
			client.Send(ErrorMessage(err))
		}
	}
}

func (wm *Manager) writeToClient(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-client.send:
			ctx, cancel := context.WithTimeout(wm.ctx, writeWait)
			err := wsjson.Write(ctx, client.conn, msg)
			cancel()
			if err != nil {
				wm.logger.Debug(wm.ctx, "WebSocket write failed", "client", client.id, "error", err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(wm.ctx, writeWait)
			err := client.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-client.done:
			return

		case <-wm.ctx.Done():
			return
		}
	}
}

// ConnectedClients returns the number of connected clients
func (wm *Manager) ConnectedClients() int {
	wm.clientsMutex.RLock()
	defer wm.clientsMutex.RUnlock()
	return len(wm.clients)
}

// Shutdown closes every connection and stops the hub.
func (wm *Manager) Shutdown(ctx context.Context) error {
	wm.shutdownOnce.Do(func() {
		for _, client := range wm.snapshot() {
			wm.closeClient(client, websocket.StatusGoingAway, "server shutdown")
		}

		wm.cancel()
		select {
		case <-wm.hubDone:
		case <-ctx.Done():
		}

		// Clients registered while the first pass ran.
		for _, client := range wm.snapshot() {
			wm.closeClient(client, websocket.StatusGoingAway, "server shutdown")
		}

		wm.clientsMutex.Lock()
		wm.clients = make(map[string]*Client)
		wm.clientsMutex.Unlock()

		wm.logger.Info(ctx, "WebSocket manager shut down")
	})

	return ctx.Err()
}

// IsShutdown reports whether Shutdown has been called.
func (wm *Manager) IsShutdown() bool {
	return wm.ctx.Err() != nil
}
