// Package websocket pushes mail changes to connected console sessions.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSubscribe    MessageType = "subscribe"
	MessageTypeUnsubscribe  MessageType = "unsubscribe"
	MessageTypeEmailCreated MessageType = "email.created"
	MessageTypeEmailUpdated MessageType = "email.updated"
	MessageTypeError        MessageType = "error"
)

// AdminTopic receives every mail change
const AdminTopic = "admins"

// UserTopic is the topic for mail sent by or addressed to email
func UserTopic(email string) string {
	return "user:" + strings.ToLower(strings.TrimSpace(email))
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type  MessageType   `json:"type"`
	Topic string        `json:"topic,omitempty"`
	Email *EmailPayload `json:"email,omitempty"`
	Error string        `json:"error,omitempty"`
}

// EmailPayload is the summary pushed for a mail change
type EmailPayload struct {
	ID               string                  `json:"id"`
	Sender           string                  `json:"sender"`
	Recipient        string                  `json:"recipient"`
	Subject          string                  `json:"subject"`
	Direction        models.Direction        `json:"direction"`
	RiskScore        float64                 `json:"risk_score"`
	ThreatLevel      models.ThreatLevel      `json:"threat_level"`
	ProcessingStatus models.ProcessingStatus `json:"processing_status"`
	Timestamp        string                  `json:"timestamp"`
}

// NewEmailPayload summarizes an email for live delivery
func NewEmailPayload(email *models.Email) *EmailPayload {
	return &EmailPayload{
		ID:               email.ID,
		Sender:           email.Sender,
		Recipient:        email.Recipient,
		Subject:          email.Subject,
		Direction:        email.Direction,
		RiskScore:        email.RiskScore,
		ThreatLevel:      email.ThreatLevel,
		ProcessingStatus: email.ProcessingStatus,
		Timestamp:        email.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// Hub maintains the set of active clients and their topic subscriptions
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Topic subscriptions: topic -> set of clients
	topics map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest
	broadcast   chan *broadcastMessage

	// Disconnect every client of a user
	drop chan string

	// Closed when Run returns
	done chan struct{}

	mu     sync.RWMutex
	logger *slog.Logger
}

type subscriptionRequest struct {
	client *Client
	topic  string
}

type broadcastMessage struct {
	topics  []string
	message []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		topics:      make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *subscriptionRequest),
		unsubscribe: make(chan *subscriptionRequest),
		broadcast:   make(chan *broadcastMessage, 256),
		drop:        make(chan string, 16),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.remove(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			for _, topic := range client.allowed {
				h.add(client, topic)
			}
			h.mu.Unlock()
			h.debug("client registered", slog.String("user_id", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.debug("client unregistered", slog.String("user_id", client.userID))

		case req := <-h.subscribe:
			h.mu.Lock()
			if h.clients[req.client] {
				h.add(req.client, req.topic)
			}
			h.mu.Unlock()

		case req := <-h.unsubscribe:
			h.mu.Lock()
			h.removeFrom(req.client, req.topic)
			h.mu.Unlock()

		case userID := <-h.drop:
			h.mu.Lock()
			for client := range h.clients {
				if client.userID == userID {
					h.remove(client)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			// A client on several matching topics gets the message once
			delivered := make(map[*Client]bool)
			for _, topic := range msg.topics {
				for client := range h.topics[topic] {
					if delivered[client] {
						continue
					}
					delivered[client] = true
					select {
					case client.send <- msg.message:
					default:
						// Client buffer full, skip
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// add and remove require h.mu held for writing
func (h *Hub) add(client *Client, topic string) {
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][client] = true
}

func (h *Hub) removeFrom(client *Client, topic string) {
	if subscribers, ok := h.topics[topic]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	for topic := range h.topics {
		h.removeFrom(client, topic)
	}
}

// Register adds a client to the hub and subscribes it to its allowed topics.
// After Run has returned the client's send channel is closed instead.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribe subscribes a client to a topic
func (h *Hub) Subscribe(client *Client, topic string) {
	select {
	case h.subscribe <- &subscriptionRequest{client: client, topic: topic}:
	case <-h.done:
	}
}

// Unsubscribe unsubscribes a client from a topic
func (h *Hub) Unsubscribe(client *Client, topic string) {
	select {
	case h.unsubscribe <- &subscriptionRequest{client: client, topic: topic}:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients on topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// EmailChanged pushes a mail change to its sender, its recipient and the admins
func (h *Hub) EmailChanged(event string, email *models.Email) {
	msg := WSMessage{
		Type:  MessageType(event),
		Email: NewEmailPayload(email),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal broadcast message", slog.Any("error", err))
		}
		return
	}

	select {
	case h.broadcast <- &broadcastMessage{
		topics:  []string{UserTopic(email.Recipient), UserTopic(email.Sender), AdminTopic},
		message: data,
	}:
	default:
		if h.logger != nil {
			h.logger.Warn("broadcast queue full, dropping event",
				slog.String("event", event),
				slog.String("email_id", email.ID))
		}
	}
}

// RoleChanged disconnects the user's clients so they reconnect with topics
// matching the new role.
func (h *Hub) RoleChanged(userID string, _ models.Role) {
	select {
	case h.drop <- userID:
	default:
		if h.logger != nil {
			h.logger.Warn("drop queue full, client keeps stale topics", slog.String("user_id", userID))
		}
	}
}

func (h *Hub) debug(msg string, attrs ...any) {
	if h.logger != nil {
		h.logger.Debug(msg, attrs...)
	}
}
