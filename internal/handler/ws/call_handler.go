package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/repository/redis"
	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/signaling"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/constants"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/env"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/jwt"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/logger"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no origin
			return true
		}
		for allowed := range GetAllowedOrigins() {
			if origin == allowed {
				return true
			}
		}
		return false
	},
}

// GetAllowedOrigins returns the set of origins permitted to open sockets
func GetAllowedOrigins() map[string]bool {
	allowed := map[string]bool{
		"http://localhost:3000": true,
		"http://localhost:8080": true,
		"http://127.0.0.1:3000": true,
		"http://127.0.0.1:8080": true,
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			allowed[strings.TrimSpace(origin)] = true
		}
	}
	return allowed
}

// Hub owns the WebSocket side of signaling: it upgrades connections,
// registers them with the connection registry, and feeds inbound frames to
// the relay. Register/unregister flow through channels so registry bookkeeping
// and the Redis bridge run on one goroutine.
type Hub struct {
	registry *signaling.Registry
	router   *signaling.Router
	relay    *signaling.Relay

	jwtManager *jwt.JWTManager
	presence   *redis.PresenceRepository // optional
	bridge     *redis.SignalBridge       // optional
	metrics    *metrics.Metrics          // optional

	register   chan *Client
	unregister chan *Client

	// subscription cancels per user for the Redis bridge
	mu                  sync.Mutex
	subscriptionCancels map[int64]context.CancelFunc

	maxConnections int
	semaphore      chan struct{}
}

// Client is one live WebSocket connection for an authenticated user
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	userID  int64
	channel signaling.Channel

	connectedAt time.Time

	closeMu sync.Mutex
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// UserID implements signaling.Peer
func (c *Client) UserID() int64 { return c.userID }

// Channel implements signaling.Peer
func (c *Client) Channel() signaling.Channel { return c.channel }

// Enqueue implements signaling.Peer: it offers a frame to the send buffer
// without blocking
func (c *Client) Enqueue(frame []byte) bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend marks the client closed and closes its send buffer once
func (c *Client) closeSend() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// reply delivers a frame to this connection only
func (c *Client) reply(payload interface{}) {
	frame, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal reply frame",
			zap.Int64("user_id", c.userID),
			zap.Error(err))
		return
	}
	c.Enqueue(frame)
}

// NewHub creates the hub and starts its bookkeeping loop. presence, bridge,
// and m may be nil.
func NewHub(registry *signaling.Registry, router *signaling.Router, relay *signaling.Relay, jwtManager *jwt.JWTManager, presence *redis.PresenceRepository, bridge *redis.SignalBridge, m *metrics.Metrics) *Hub {
	maxConns := env.GetInt("WS_MAX_CONNECTIONS", 1000)

	hub := &Hub{
		registry:            registry,
		router:              router,
		relay:               relay,
		jwtManager:          jwtManager,
		presence:            presence,
		bridge:              bridge,
		metrics:             m,
		register:            make(chan *Client),
		unregister:          make(chan *Client),
		subscriptionCancels: make(map[int64]context.CancelFunc),
		maxConnections:      maxConns,
		semaphore:           make(chan struct{}, maxConns),
	}

	go hub.run()

	return hub
}

// run handles hub bookkeeping
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			n := h.registry.Register(client)
			if h.metrics != nil {
				h.metrics.IncrementWebSocketConnections()
			}
			if n == 1 {
				h.userOnline(client.userID)
			}

		case client := <-h.unregister:
			n := h.registry.Unregister(client)
			client.closeSend()
			client.cancel()
			if h.metrics != nil {
				h.metrics.DecrementWebSocketConnections()
			}
			if n == 0 {
				h.userOffline(client.userID)
			}
		}
	}
}

// userOnline runs when a user's first connection registers: presence is
// marked and the Redis bridge starts feeding cross-process frames into the
// local router.
func (h *Hub) userOnline(userID int64) {
	if h.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
		if err := h.presence.SetUserOnline(ctx, userID); err != nil {
			logger.Warn("failed to mark user online",
				zap.Int64("user_id", userID),
				zap.Error(err))
		}
		cancel()
	}

	if h.bridge != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.mu.Lock()
		h.subscriptionCancels[userID] = cancel
		h.mu.Unlock()
		go h.bridge.Subscribe(ctx, userID, func(frame []byte) {
			h.router.SendRaw(userID, frame)
		})
	}
}

// userOffline runs when a user's last connection unregisters
func (h *Hub) userOffline(userID int64) {
	if h.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
		if err := h.presence.SetUserOffline(ctx, userID); err != nil {
			logger.Warn("failed to mark user offline",
				zap.Int64("user_id", userID),
				zap.Error(err))
		}
		cancel()
	}

	h.mu.Lock()
	if cancel, ok := h.subscriptionCancels[userID]; ok {
		cancel()
		delete(h.subscriptionCancels, userID)
	}
	h.mu.Unlock()
}

// ServeWS handles WebSocket upgrade requests.
// GET /v1/calls/ws?channel=voice&token=...
func (h *Hub) ServeWS(c *gin.Context) {
	// Connection cap
	select {
	case h.semaphore <- struct{}{}:
	default:
		logger.Warn("WebSocket connection rejected: max connections reached",
			zap.Int("max_connections", h.maxConnections))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server at capacity, please try again later"})
		return
	}
	release := func() { <-h.semaphore }

	userID, ok := h.authenticate(c)
	if !ok {
		release()
		return
	}

	channel := signaling.Channel(c.DefaultQuery("channel", string(signaling.ChannelChat)))
	switch channel {
	case signaling.ChannelChat, signaling.ChannelVoice, signaling.ChannelVideo:
	default:
		release()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		release()
		if h.metrics != nil {
			h.metrics.RecordWebSocketError("upgrade_failed")
		}
		logger.Warn("WebSocket upgrade failed",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, 256),
		userID:      userID,
		channel:     channel,
		connectedAt: time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}

	h.register <- client

	go client.writePump()
	go func() {
		defer release()
		client.readPump()
	}()
}

// authenticate resolves the user for the WebSocket handshake. Browser
// WebSocket clients cannot set headers, so the token is taken from the token
// query parameter first, then from a standard Bearer header.
func (h *Hub) authenticate(c *gin.Context) (int64, bool) {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(int64); ok {
			return id, true
		}
	}

	token := c.Query("token")
	if token == "" {
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if token == "" || h.jwtManager == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return 0, false
	}
	return claims.UserID, true
}

// readPump reads frames from the socket and hands them to the relay
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				if c.hub.metrics != nil {
					c.hub.metrics.RecordWebSocketError("unexpected_close")
				}
				logger.Debug("WebSocket connection closed",
					zap.Int64("user_id", c.userID),
					zap.Error(err))
			}
			break
		}

		if c.hub.metrics != nil {
			c.hub.metrics.RecordWebSocketMessage("signaling", "in")
		}

		c.hub.relay.HandleMessage(c.ctx, c.userID, message, c.reply)
	}
}

// writePump writes frames to the socket and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

			if c.hub.metrics != nil {
				c.hub.metrics.RecordWebSocketMessage("signaling", "out")
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
