package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// Client represents a WebSocket client connection owned by one user
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	userID string
	// Topics this client may subscribe to, fixed at connect time
	allowed []string
}

// NewClient creates a Client for user. Admins may follow AdminTopic.
func NewClient(hub *Hub, conn *websocket.Conn, user *models.User, logger *slog.Logger) *Client {
	allowed := []string{UserTopic(user.Email)}
	if user.IsAdmin() {
		allowed = append(allowed, AdminTopic)
	}
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		logger:  logger,
		userID:  user.ID,
		allowed: allowed,
	}
}

// Serve registers a client for conn and starts its pumps
func (h *Hub) Serve(conn *websocket.Conn, user *models.User) *Client {
	client := NewClient(h, conn, user, h.logger)
	h.Register(client)
	go client.WritePump()
	go client.ReadPump()
	return client
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				if c.logger != nil {
					c.logger.Error("websocket read error", slog.Any("error", err))
				}
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming subscription changes
func (c *Client) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid message format")
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		if !c.mayFollow(msg.Topic) {
			c.sendError("topic not permitted")
			return
		}
		c.hub.Subscribe(c, msg.Topic)

	case MessageTypeUnsubscribe:
		if msg.Topic == "" {
			c.sendError("topic is required")
			return
		}
		c.hub.Unsubscribe(c, msg.Topic)

	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) mayFollow(topic string) bool {
	for _, allowed := range c.allowed {
		if allowed == topic {
			return true
		}
	}
	return false
}

// sendError sends an error message to the client
func (c *Client) sendError(errMsg string) {
	msg := WSMessage{
		Type:  MessageTypeError,
		Error: errMsg,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer full, skip
	}
}
