package api

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/devtrack/internal/device"
	"github.com/nerrad567/devtrack/internal/infrastructure/config"
	"github.com/nerrad567/devtrack/internal/infrastructure/logging"
	"github.com/nerrad567/devtrack/internal/metrics"
)

// Live feed frame types.
const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	framePing        = "ping"
	framePong        = "pong"
	frameEvent       = "event"
	frameResponse    = "response"
	frameError       = "error"
)

const (
	feedSendBuffer = 256

	defaultFeedMessageSize = 8192
	defaultFeedPing        = 30 * time.Second
	defaultFeedPongWait    = 10 * time.Second
)

// feedChannels are the event types a client can follow.
var feedChannels = []string{
	string(device.EventUpdated),
	string(device.EventRenamed),
}

// feedFrame is every message the server writes to the feed.
type feedFrame struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// feedRequest is a message read from a client.
type feedRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// channelList is the payload of subscribe and unsubscribe requests.
type channelList struct {
	Channels []string `json:"channels"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub fans registry events out to live feed clients.
type Hub struct {
	logger *logging.Logger

	maxMessage int64
	pingEvery  time.Duration
	pongWait   time.Duration

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
}

// NewHub creates a hub. Zero settings fall back to an 8 KiB read limit, a
// 30s ping interval and a 10s pong wait.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	h := &Hub{
		logger:     logger,
		maxMessage: defaultFeedMessageSize,
		pingEvery:  defaultFeedPing,
		pongWait:   defaultFeedPongWait,
		clients:    make(map[*feedClient]struct{}),
	}
	if cfg.MaxMessageSize > 0 {
		h.maxMessage = int64(cfg.MaxMessageSize)
	}
	if cfg.PingInterval > 0 {
		h.pingEvery = time.Duration(cfg.PingInterval) * time.Second
	}
	if cfg.PongTimeout > 0 {
		h.pongWait = time.Duration(cfg.PongTimeout) * time.Second
	}
	return h
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*feedClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.shutdown()
		metrics.WebSocketClients.Dec()
	}
}

// Broadcast sends one event to every client following channel.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(feedFrame{
		Type:      frameEvent,
		EventType: channel,
		Timestamp: timestamp(),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to encode feed event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	recipients := make([]*feedClient, 0, len(h.clients))
	for c := range h.clients {
		recipients = append(recipients, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range recipients {
		if c.follows(channel) && c.enqueue(data) {
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("feed event sent", "channel", channel, "recipients", sent)
	}
}

// ClientCount returns the number of connected feed clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *feedClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Inc()
	h.logger.Debug("feed client connected", "clients", n)
}

// remove drops c from the hub. Repeated calls are no-ops.
func (h *Hub) remove(c *feedClient) {
	h.mu.Lock()
	_, found := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !found {
		return
	}
	c.shutdown()
	metrics.WebSocketClients.Dec()
	h.logger.Debug("feed client disconnected", "clients", n)
}

// handleWebSocket upgrades the request and serves the live feed.
// The feed is read-only and needs no credentials.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newFeedClient(s.hub, conn)
	s.hub.add(c)

	go c.writeLoop()
	go c.readLoop()
}

// feedClient is one live feed connection.
//
// Frames are queued on send and written by writeLoop. done is closed once
// when the client leaves the hub; queueing after that is a no-op, so the
// send channel itself is never closed.
type feedClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	done     chan struct{}
	doneOnce sync.Once

	mu       sync.RWMutex
	channels map[string]bool
}

func newFeedClient(hub *Hub, conn *websocket.Conn, channels ...string) *feedClient {
	c := &feedClient{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, feedSendBuffer),
		done:     make(chan struct{}),
		channels: make(map[string]bool),
	}
	for _, ch := range channels {
		c.channels[ch] = true
	}
	return c
}

func (c *feedClient) shutdown() {
	c.doneOnce.Do(func() { close(c.done) })
}

// enqueue queues a frame without blocking. Frames for a full buffer or a
// departed client are dropped.
func (c *feedClient) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *feedClient) follows(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channels[channel]
}

func (c *feedClient) readLoop() {
	defer c.hub.remove(c)

	deadline := c.hub.pingEvery + c.hub.pongWait
	c.conn.SetReadLimit(c.hub.maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(deadline)) //nolint:errcheck // a failed deadline surfaces on read
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("feed read failed", "error", err)
			}
			return
		}
		// Browsers do not always answer protocol pings; application frames
		// count as liveness too.
		c.conn.SetReadDeadline(time.Now().Add(deadline)) //nolint:errcheck // a failed deadline surfaces on read
		c.handle(data)
	}
}

func (c *feedClient) writeLoop() {
	ticker := time.NewTicker(c.hub.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(c.hub.pongWait)) //nolint:errcheck // a failed deadline surfaces on write
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data := <-c.send:
			if write(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		case <-c.done:
			write(websocket.CloseMessage, nil) //nolint:errcheck // peer may already be gone
			return
		}
	}
}

func (c *feedClient) handle(data []byte) {
	var req feedRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply("", frameError, errorPayload("invalid JSON message"))
		return
	}

	switch req.Type {
	case frameSubscribe, frameUnsubscribe:
		c.changeChannels(req)
	case framePing:
		c.reply(req.ID, framePong, nil)
	default:
		c.reply(req.ID, frameError, errorPayload("unknown message type: "+req.Type))
	}
}

// changeChannels applies a subscribe or unsubscribe request. An empty list
// means every channel; one unknown channel rejects the whole request.
func (c *feedClient) changeChannels(req feedRequest) {
	var list channelList
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &list); err != nil {
			c.reply(req.ID, frameError, errorPayload("invalid "+req.Type+" payload"))
			return
		}
	}
	if len(list.Channels) == 0 {
		list.Channels = feedChannels
	}
	for _, ch := range list.Channels {
		if !slices.Contains(feedChannels, ch) {
			c.reply(req.ID, frameError, errorPayload("unknown channel: "+ch))
			return
		}
	}

	follow := req.Type == frameSubscribe
	c.mu.Lock()
	for _, ch := range list.Channels {
		if follow {
			c.channels[ch] = true
		} else {
			delete(c.channels, ch)
		}
	}
	c.mu.Unlock()

	key := req.Type + "d"
	c.hub.logger.Debug("feed channels changed", key, list.Channels)
	c.reply(req.ID, frameResponse, map[string][]string{key: list.Channels})
}

func (c *feedClient) reply(id, frameType string, payload any) {
	data, err := json.Marshal(feedFrame{
		Type:      frameType,
		ID:        id,
		Timestamp: timestamp(),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.enqueue(data)
}

func errorPayload(message string) map[string]string {
	return map[string]string{"message": message}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
