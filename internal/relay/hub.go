package relay

import (
	"context"
	"sync"

	"github.com/shinyyama/boilagbe-backend/internal/metrics"
	"github.com/shinyyama/boilagbe-backend/internal/model"
	"go.uber.org/zap"
)

// Fanout carries a delivery to every instance, each of which delivers to its own connections.
type Fanout interface {
	Publish(ctx context.Context, userID string, payload []byte) error
}

// Hub tracks live push connections by user identity. A user may hold any number of
// connections and every one of them receives the user's events.
type Hub struct {
	mu      sync.RWMutex
	users   map[string]map[*Client]struct{}
	conns   map[*Client]struct{}
	fanout  Fanout
	sendBuf int
	logger  *zap.Logger
	closed  bool
}

func NewHub(logger *zap.Logger, sendBuf int) *Hub {
	if sendBuf <= 0 {
		sendBuf = 32
	}
	return &Hub{
		users:   make(map[string]map[*Client]struct{}),
		conns:   make(map[*Client]struct{}),
		sendBuf: sendBuf,
		logger:  logger.Named("relay"),
	}
}

// SetFanout routes publishes through f instead of delivering in-process only.
func (h *Hub) SetFanout(f Fanout) {
	h.mu.Lock()
	h.fanout = f
	h.mu.Unlock()
}

func (h *Hub) attach(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[c] = struct{}{}
	metrics.RelayConnections.Inc()
	return true
}

// Authenticate binds c to userID, moving it away from any previous identity.
func (h *Hub) Authenticate(c *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	if c.userID != "" {
		h.removeLocked(c.userID, c)
	}
	c.userID = userID
	set, ok := h.users[userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[userID] = set
	}
	set[c] = struct{}{}
	h.logger.Debug("connection authenticated",
		zap.String("conn", c.id),
		zap.String("user", userID),
		zap.Int("userConns", len(set)))
}

func (h *Hub) removeLocked(userID string, c *Client) {
	set := h.users[userID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, userID)
	}
}

// Unregister forgets c. It is safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	if c.userID != "" {
		h.removeLocked(c.userID, c)
	}
	metrics.RelayConnections.Dec()
}

// Online returns how many connections are registered for userID.
func (h *Hub) Online(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Count returns the number of open connections, authenticated or not.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Deliver hands payload to every local connection of userID without blocking and
// returns how many accepted it. A connection with a full buffer misses the event.
func (h *Hub) Deliver(userID string, payload []byte) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		metrics.RelayPushes.WithLabelValues("offline").Inc()
		return 0
	}
	delivered := 0
	for _, c := range targets {
		if c.enqueue(payload) {
			delivered++
			metrics.RelayPushes.WithLabelValues("delivered").Inc()
			continue
		}
		metrics.RelayPushes.WithLabelValues("dropped").Inc()
		h.logger.Warn("send buffer full; event dropped", zap.String("conn", c.id), zap.String("user", userID))
	}
	return delivered
}

// PublishMessage pushes a receiveMessage event to msg's receiver. Fire-and-forget:
// an offline receiver simply picks the message up from history later.
func (h *Hub) PublishMessage(ctx context.Context, msg *model.Message) {
	payload, err := Encode(EventReceiveMessage, msg)
	if err != nil {
		h.logger.Error("encode receiveMessage", zap.Uint64("message", msg.ID), zap.Error(err))
		return
	}
	h.mu.RLock()
	fanout := h.fanout
	h.mu.RUnlock()

	if fanout != nil {
		err := fanout.Publish(ctx, msg.ReceiverID, payload)
		if err == nil {
			return
		}
		h.logger.Warn("fanout publish failed; delivering locally", zap.Uint64("message", msg.ID), zap.Error(err))
	}
	h.Deliver(msg.ReceiverID, payload)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.conns))
	for c := range h.conns {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.shutdown()
	}
	h.logger.Info("relay hub closed", zap.Int("connections", len(clients)))
}
