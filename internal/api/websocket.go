package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gymhub/backoffice-core/internal/audit"
	"github.com/gymhub/backoffice-core/internal/infrastructure/config"
	"github.com/gymhub/backoffice-core/internal/infrastructure/logging"
	"github.com/gymhub/backoffice-core/internal/infrastructure/telemetry"
	"github.com/gymhub/backoffice-core/internal/presence"
)

// WebSocket constants.
const (
	// WSTypeOnline is the presence snapshot event pushed to every peer
	// on each membership change.
	WSTypeOnline = "online"

	WSTypePing  = "ping"
	WSTypePong  = "pong"
	WSTypeError = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// WSMessage represents a message sent to/from a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// OnlinePayload carries the full online-operator snapshot. Always a
// complete list, never a diff, so a lost message cannot leave peers
// with a stale view past the next membership change.
type OnlinePayload struct {
	OnlineUserIDs []string `json:"onlineUserIds"`
}

// Hub manages WebSocket connections and broadcasts presence snapshots.
type Hub struct {
	cfg       config.WebSocketConfig
	logger    *logging.Logger
	registry  *presence.Registry
	audit     audit.Repository  // optional
	telemetry *telemetry.Client // optional
	clients   map[*WSClient]struct{}
	mu        sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// connID identifies this connection handle; operatorID is the
	// identity decoded at handshake time and never re-verified.
	connID     string
	operatorID string
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub backed by the presence registry.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, registry *presence.Registry, trail audit.Repository, tel *telemetry.Client) *Hub {
	return &Hub{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		audit:     trail,
		telemetry: tel,
		clients:   make(map[*WSClient]struct{}),
	}
}

// Run starts the hub's main loop. It blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub and its handle to the presence
// registry, then pushes the updated snapshot to every peer. The snapshot
// goes out even when the operator was already online from another
// device, so a freshly connected client always receives the list.
//
// The registry mutation, its snapshot, and the channel enqueues all
// happen under the hub lock so snapshots are delivered in mutation
// order; a later state can never be overwritten by an older one.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	online, _ := h.registry.Connect(client.connID, client.operatorID)
	h.broadcastLocked(online)
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("presence client connected",
		"operator_id", client.operatorID,
		"clients", clientCount,
	)
	h.recordEvent(audit.ActionWSConnect, client.operatorID)
}

// Unregister removes a client from the hub and its handle from the
// presence registry, then pushes the updated snapshot, with the same
// mutation-order delivery guarantee as Register.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	if _, existed := h.clients[client]; !existed {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)

	online, _ := h.registry.Disconnect(client.connID)
	h.broadcastLocked(online)
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("presence client disconnected",
		"operator_id", client.operatorID,
		"clients", clientCount,
	)
	h.recordEvent(audit.ActionWSDisconnect, client.operatorID)
}

// recordEvent appends a presence event to the session trail.
func (h *Hub) recordEvent(action, operatorID string) {
	if h.audit == nil {
		return
	}
	ev := &audit.Event{
		Action:     action,
		OperatorID: operatorID,
		Source:     "websocket",
	}
	if err := h.audit.Create(context.Background(), ev); err != nil {
		h.logger.Warn("recording presence event failed", "error", err)
	}
}

// broadcastLocked enqueues an online-operator snapshot to every peer.
// Caller holds h.mu, which is what orders deliveries: the snapshot was
// taken under the registry lock by the same critical section that
// mutated it, and no other goroutine can interleave an older snapshot
// after this one. trySend never blocks, so holding the lock across the
// enqueue loop is safe.
func (h *Hub) broadcastLocked(online []string) {
	if h.telemetry != nil {
		h.telemetry.WriteOnlineGauge(len(online))
	}

	msg := WSMessage{
		Type:      WSTypeOnline,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   OnlinePayload{OnlineUserIDs: online},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal presence snapshot", "error", err)
		return
	}

	for client := range h.clients {
		client.trySend(data)
	}
	h.logger.Debug("presence snapshot sent", "online", len(online), "recipients", len(h.clients))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		h.registry.Disconnect(client.connID)
		delete(h.clients, client)
	}
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
//
// Authentication is synchronous at handshake time: the client presents
// its access token as a query parameter (browsers cannot set headers on
// upgrade requests). A missing token is unauthorized, an invalid or
// expired one forbidden; either way the connection is never established.
// The decoded identity sticks to the connection for its lifetime.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeUnauthorized(w, "token query parameter is required")
		return
	}

	claims, err := s.authSvc.VerifyAccess(token)
	if err != nil {
		s.logger.Warn("websocket handshake rejected", "error", err)
		writeForbidden(w, "invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:        s.hub,
		conn:       conn,
		send:       make(chan []byte, wsSendBufferSize),
		connID:     uuid.NewString(),
		operatorID: claims.Subject,
	}

	s.hub.Register(client)

	// Start read/write pumps
	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection alive
		// even if browser doesn't respond to protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message. The presence
// channel is push-only apart from application-level pings.
func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during broadcast)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// sendResponse sends a response message to the client.
// Routes through trySend to safely handle closed channels during shutdown.
func (c *WSClient) sendResponse(id, msgType string, payload any) {
	msg := WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
