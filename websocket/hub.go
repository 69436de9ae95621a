package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/HSouheill/leadbridge_admin/metrics"
	"github.com/HSouheill/leadbridge_admin/models"
	"go.uber.org/zap"
)

const (
	NotificationTypeConnected = "connected"
	NotificationTypePong      = "pong"
)

var ErrOperatorNotConnected = errors.New("operator not connected")

// Hub keeps the connected operator consoles and fans out engine events to them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewHub(m *metrics.Metrics, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    m,
		logger:     logger,
	}
}

// Run starts the hub's event loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			online := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetOperatorsOnline(online)

			h.enqueue(client, models.Notification{
				Type:       NotificationTypeConnected,
				Message:    "WebSocket connection established",
				OperatorID: client.OperatorID,
				At:         time.Now().UTC(),
			})
			h.logger.Debug("operator connected", zap.String("operator_id", client.OperatorID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			online := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetOperatorsOnline(online)
			h.logger.Debug("operator disconnected", zap.String("operator_id", client.OperatorID))

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.metrics.SetOperatorsOnline(0)
			return
		}
	}
}

// Connected returns how many consoles are registered.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish broadcasts an event to every connected operator. Slow consoles miss the event
// rather than stall the caller.
func (h *Hub) Publish(eventType, message string, data interface{}) {
	payload, err := json.Marshal(models.Notification{Type: eventType, Message: message, Data: data, At: time.Now().UTC()})
	if err != nil {
		h.logger.Error("failed to encode feed event", zap.String("type", eventType), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			h.logger.Warn("operator feed buffer full, event dropped",
				zap.String("operator_id", client.OperatorID), zap.String("type", eventType))
		}
	}
}

// SendToOperator delivers a notification to every console of one operator.
func (h *Hub) SendToOperator(operatorID string, notification models.Notification) error {
	if notification.At.IsZero() {
		notification.At = time.Now().UTC()
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := false
	for client := range h.clients {
		if client.OperatorID != operatorID {
			continue
		}
		select {
		case client.send <- payload:
			sent = true
		default:
		}
	}
	if !sent {
		return ErrOperatorNotConnected
	}
	return nil
}

func (h *Hub) enqueue(client *Client, n models.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
