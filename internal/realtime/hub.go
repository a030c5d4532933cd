package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Broker fans user events out across API instances.
type Broker interface {
	PublishUserEvent(ctx context.Context, userID uuid.UUID, event string, payload []byte) error
	SubscribeUser(userID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains user_id -> set of connections. A user may hold several tabs open,
// so every connection of that user receives the event.
type Hub struct {
	users  map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func()
	mu     sync.RWMutex
	logger *zap.Logger
	broker Broker
}

// NewHub creates a hub. With a nil broker events are delivered to local connections only.
func NewHub(logger *zap.Logger, broker Broker) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		users:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		broker: broker,
	}
}

// Register adds a connection. The first connection of a user opens the broker subscription.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[string]*Client)
		if h.broker != nil {
			userID := c.UserID
			cancel, err := h.broker.SubscribeUser(userID, func(event string, payload []byte) {
				h.deliver(userID, event, payload)
			})
			if err != nil {
				h.logger.Warn("user subscription failed", zap.String("user_id", userID.String()), zap.Error(err))
			} else {
				h.subs[userID] = cancel
			}
		}
	}
	h.users[c.UserID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.String("user_id", c.UserID.String()))
}

// Unregister removes a connection and drops the subscription when the user has none left.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.users[c.UserID]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.users, c.UserID)
			if cancel, ok := h.subs[c.UserID]; ok {
				cancel()
				delete(h.subs, c.UserID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID), zap.String("user_id", c.UserID.String()))
}

// Connections returns the number of open connections for a user on this instance.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// PublishToUser sends event to every connection of userID. With a broker the event goes
// through Redis only, so the subscription delivers it once on every instance including this one.
func (h *Hub) PublishToUser(ctx context.Context, userID uuid.UUID, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	if h.broker != nil {
		return h.broker.PublishUserEvent(ctx, userID, event, data)
	}
	h.deliver(userID, event, data)
	return nil
}

func (h *Hub) deliver(userID uuid.UUID, event string, data []byte) {
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.users[userID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("client buffer full, dropping event", zap.String("client_id", c.ID), zap.String("event", event))
		}
	}
}
