package notifications

import (
	"context"
	"errors"
	"sync"

	"inkd/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per session (browser tabs)
	maxConnsPerSession = 8
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrSessionConnLimit = errors.New("session connection limit reached")
	ErrServerConnLimit  = errors.New("server connection limit reached")
	ErrHubClosed        = errors.New("hub is shut down")
)

// Hub maps sessionID -> connected push clients.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	closed     bool
	notifier   *Notifier
	onActivity func(sessionID string)
}

// NewHub creates a hub. A notifier with Redis makes Publish fan out across replicas.
func NewHub(n *Notifier) *Hub {
	return &Hub{
		conns:    make(map[string]map[*Client]struct{}),
		notifier: n,
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "push hub" }

// OnActivity sets a callback for client activity, used to keep sessions warm.
func (h *Hub) OnActivity(fn func(sessionID string)) {
	h.mu.Lock()
	h.onActivity = fn
	h.mu.Unlock()
}

// Register a connection for a session. Returns the Client or error if limits exceeded.
func (h *Hub) Register(sessionID, userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrServerConnLimit
	}

	m, ok := h.conns[sessionID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[sessionID] = m
	}
	if len(m) >= maxConnsPerSession {
		return nil, ErrSessionConnLimit
	}

	client := NewClient(h, conn, sessionID, userID)
	client.OnActivity = h.onActivity
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()
	observability.NewWSLogger(h.Name()).LogConnect(context.Background(), userID, sessionID)
	return client, nil
}

// UnregisterClient removes a client and closes its send channel.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.SessionID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	h.totalConns--
	observability.WebSocketConnectionsTotal.Dec()
	close(client.Send)
	if len(m) == 0 {
		delete(h.conns, client.SessionID)
	}
}

// Connected reports whether a session has at least one live connection.
func (h *Hub) Connected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[sessionID]) > 0
}

// Deliver sends message to every connection of sessionID on this replica.
func (h *Hub) Deliver(sessionID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[sessionID] {
		c.TrySend(message)
	}
}

// Publish routes a session event through Redis when available, so whichever
// replica holds the connection delivers it, and straight to Deliver otherwise.
func (h *Hub) Publish(ctx context.Context, sessionID string, eventType string, message []byte) {
	observability.WebSocketEventsTotal.WithLabelValues(eventType).Inc()
	if h.notifier.Enabled() {
		err := h.notifier.PublishPush(ctx, sessionID, string(message))
		if err == nil {
			return
		}
		observability.NewWSLogger(h.Name()).LogError(ctx, sessionID, err, eventType)
	}
	h.Deliver(sessionID, message)
}

// StartWiring forwards Redis push messages to local connections.
func (h *Hub) StartWiring(ctx context.Context) error {
	return h.notifier.StartPushSubscriber(ctx, func(channel, payload string) {
		sid, ok := SessionFromChannel(channel)
		if !ok {
			observability.Log().Warn("invalid push channel", "channel", channel)
			return
		}
		h.Deliver(sid, []byte(payload))
	})
}

// Disconnect closes every connection of a session, e.g. after sign-out.
func (h *Hub) Disconnect(sessionID string) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.conns[sessionID]))
	for c := range h.conns[sessionID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	// Closing Send makes WritePump send the close frame; only it writes to the conn.
	for _, c := range clients {
		h.UnregisterClient(c)
	}
}

// Shutdown gracefully closes all websocket connections
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var clients []*Client
	for _, m := range h.conns {
		for c := range m {
			clients = append(clients, c)
		}
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.UnregisterClient(client)
	}
	return nil
}
