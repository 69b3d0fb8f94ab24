package realtime

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charlesng35/innkeep/pkg/logger"
	"github.com/charlesng35/innkeep/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	defaultBufferSize = 64
)

// Message is the JSON frame delivered to subscribers.
type Message struct {
	Stream string         `json:"stream"`
	Event  string         `json:"event"`
	Data   any            `json:"data,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

type controlMessage struct {
	Action  string   `json:"action"`
	Streams []string `json:"streams"`
}

// Authorizer decides whether a user may listen on a stream. It is consulted
// on every subscribe, including control messages sent after the upgrade, and
// again before each delivery so that revoked access stops the stream.
type Authorizer func(ctx context.Context, userID uint, stream string) bool

// Hub fans messages out to websocket clients grouped by stream and user.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]map[uint]map[*connection]struct{}
	upgrader      websocket.Upgrader
	log           *zap.Logger
}

func NewHub() *Hub {
	return &Hub{
		subscriptions: make(map[string]map[uint]map[*connection]struct{}),
		log:           logger.WithModule("realtime"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				originHost := hostWithoutPort(origin)
				return originHost == hostWithoutPort(r.Host) || isLoopback(originHost)
			},
		},
	}
}

// Serve upgrades the request and blocks until the client disconnects. A nil
// authorizer permits every stream.
func (h *Hub) Serve(userID uint, streams []string, authorize Authorizer, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	ctx := context.WithoutCancel(r.Context())
	client := newConnection(ctx, h, socket, userID, authorize)
	metrics.RealtimeConnections.Inc()
	h.subscribe(ctx, client, streams)

	go client.writeLoop()
	client.readLoop(ctx)
}

// BroadcastStream delivers a message to every subscriber of stream that is
// still authorized for it.
func (h *Hub) BroadcastStream(stream string, message Message) {
	stream = normalizeStream(stream)
	if stream == "" {
		return
	}
	h.deliver(stream, h.subscribers(stream, 0), message)
}

// BroadcastToUser delivers a message only to the given user's connections.
func (h *Hub) BroadcastToUser(stream string, userID uint, message Message) {
	stream = normalizeStream(stream)
	if stream == "" || userID == 0 {
		return
	}
	h.deliver(stream, h.subscribers(stream, userID), message)
}

// subscribers snapshots the connections on stream, limited to userID when it
// is non-zero.
func (h *Hub) subscribers(stream string, userID uint) []*connection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var clients []*connection
	for id, conns := range h.subscriptions[stream] {
		if userID != 0 && id != userID {
			continue
		}
		for client := range conns {
			clients = append(clients, client)
		}
	}
	return clients
}

// deliver re-checks each user once per message. Denied connections lose the
// subscription instead of the frame being queued.
func (h *Hub) deliver(stream string, clients []*connection, message Message) {
	message.Stream = stream
	allowed := make(map[uint]bool, len(clients))
	for _, client := range clients {
		ok, seen := allowed[client.userID]
		if !seen {
			ok = client.authorize == nil || client.authorize(client.ctx, client.userID, stream)
			allowed[client.userID] = ok
		}
		if !ok {
			h.log.Debug("stream access revoked", zap.String("stream", stream), zap.Uint("user_id", client.userID))
			h.unsubscribe(client, []string{stream})
			continue
		}
		h.enqueue(client, message)
	}
}

// Subscribers counts connections listening on stream.
func (h *Hub) Subscribers(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.subscriptions[normalizeStream(stream)] {
		total += len(clients)
	}
	return total
}

func (h *Hub) subscribe(ctx context.Context, client *connection, streams []string) []string {
	var accepted []string
	for _, stream := range uniqueStreams(streams) {
		if client.authorize != nil && !client.authorize(ctx, client.userID, stream) {
			h.log.Debug("stream subscription denied", zap.String("stream", stream), zap.Uint("user_id", client.userID))
			continue
		}
		accepted = append(accepted, stream)
	}
	if len(accepted) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range accepted {
		if _, exists := client.streams[stream]; exists {
			continue
		}
		if h.subscriptions[stream] == nil {
			h.subscriptions[stream] = make(map[uint]map[*connection]struct{})
		}
		if h.subscriptions[stream][client.userID] == nil {
			h.subscriptions[stream][client.userID] = make(map[*connection]struct{})
		}
		client.streams[stream] = struct{}{}
		h.subscriptions[stream][client.userID][client] = struct{}{}
	}
	return accepted
}

func (h *Hub) unsubscribe(client *connection, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range uniqueStreams(streams) {
		h.removeSubscriptionLocked(client, stream)
	}
}

func (h *Hub) unregister(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for stream := range client.streams {
		h.removeSubscriptionLocked(client, stream)
	}
}

func (h *Hub) removeSubscriptionLocked(client *connection, stream string) {
	delete(client.streams, stream)

	clientsByUser, ok := h.subscriptions[stream]
	if !ok {
		return
	}
	userClients := clientsByUser[client.userID]
	delete(userClients, client)
	if len(userClients) == 0 {
		delete(clientsByUser, client.userID)
	}
	if len(clientsByUser) == 0 {
		delete(h.subscriptions, stream)
	}
}

// enqueue must not block; slow clients are disconnected.
func (h *Hub) enqueue(client *connection, message Message) {
	if !client.offer(message) {
		h.log.Warn("dropping slow realtime client", zap.Uint("user_id", client.userID))
		go client.close()
	}
}

type connection struct {
	ctx       context.Context
	hub       *Hub
	socket    *websocket.Conn
	userID    uint
	streams   map[string]struct{}
	authorize Authorizer

	sendMu sync.Mutex
	send   chan Message
	closed bool
	once   sync.Once
}

func newConnection(ctx context.Context, hub *Hub, socket *websocket.Conn, userID uint, authorize Authorizer) *connection {
	return &connection{
		ctx:       ctx,
		hub:       hub,
		socket:    socket,
		userID:    userID,
		streams:   make(map[string]struct{}),
		authorize: authorize,
		send:      make(chan Message, defaultBufferSize),
	}
}

func (c *connection) offer(message Message) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *connection) readLoop(ctx context.Context) {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("realtime connection closed", zap.Uint("user_id", c.userID), zap.Error(err))
			}
			return
		}
		if len(payload) == 0 {
			continue
		}

		var ctrl controlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			c.hub.log.Debug("invalid control payload", zap.Uint("user_id", c.userID), zap.Error(err))
			continue
		}

		switch strings.ToLower(strings.TrimSpace(ctrl.Action)) {
		case "subscribe":
			accepted := c.hub.subscribe(ctx, c, ctrl.Streams)
			c.offer(Message{Event: "subscribed", Data: accepted})
		case "unsubscribe":
			c.hub.unsubscribe(c, ctrl.Streams)
		case "ping":
			c.offer(Message{Event: "pong"})
		default:
			c.offer(Message{Event: "error", Data: "unsupported action"})
		}
	}
}

func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()
		_ = c.socket.Close()
		metrics.RealtimeConnections.Dec()
	})
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	host = strings.TrimSuffix(host, "/")
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}

func normalizeStream(stream string) string {
	return strings.ToLower(strings.TrimSpace(stream))
}

func uniqueStreams(streams []string) []string {
	seen := make(map[string]struct{}, len(streams))
	var result []string
	for _, stream := range streams {
		if stream = normalizeStream(stream); stream == "" {
			continue
		}
		if _, ok := seen[stream]; ok {
			continue
		}
		seen[stream] = struct{}{}
		result = append(result, stream)
	}
	return result
}
