package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/restaurant-ops/backend/internal/model"
)

// DefaultHeartbeatInterval is the probe period when none is configured.
// A connection is evicted after missing two consecutive ticks.
const DefaultHeartbeatInterval = 30 * time.Second

// Config holds hub settings.
type Config struct {
	HeartbeatInterval time.Duration
}

// Hub owns the connection registry, dispatches inbound event frames, fans
// out broadcasts, and reaps dead connections. One Hub serves the whole
// process.
type Hub struct {
	registry *Registry
	logger   *slog.Logger
	interval time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Hub. The heartbeat does not run until Start is called.
func New(cfg Config, logger *slog.Logger) *Hub {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		registry: NewRegistry(),
		logger:   logger,
		interval: cfg.HeartbeatInterval,
		done:     make(chan struct{}),
	}
}

// Start launches the heartbeat monitor goroutine.
func (h *Hub) Start() {
	go h.heartbeatLoop()
}

// Close stops the heartbeat and closes every registered client.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
	for _, c := range h.registry.Snapshot() {
		h.Evict(c)
		c.closeTransport()
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	return h.registry.Count()
}

// Admit registers an authenticated connection under its role.
func (h *Hub) Admit(c *Client) {
	h.registry.Add(c)
	h.logger.Info("client connected",
		"connId", c.ID(),
		"userId", c.UserID(),
		"role", c.Role(),
		"clients", h.registry.Count(),
	)
}

// Evict removes a connection from the registry and closes its send queue.
// It is a no-op if the connection was already evicted, so the transport
// close handler and the heartbeat monitor may race freely.
func (h *Hub) Evict(c *Client) {
	if h.registry.Remove(c) {
		h.logger.Info("client disconnected",
			"connId", c.ID(),
			"userId", c.UserID(),
			"role", c.Role(),
			"clients", h.registry.Count(),
		)
	}
	c.Close()
}

// heartbeatLoop probes every registered connection each tick and evicts
// the ones that never answered the previous probe.
func (h *Hub) heartbeatLoop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

// sweep runs one heartbeat tick over a registry snapshot. A connection
// gets one full tick to answer its ping before the next tick evicts it.
func (h *Hub) sweep() {
	for _, c := range h.registry.Snapshot() {
		if !c.Alive() {
			h.logger.Warn("heartbeat eviction",
				"connId", c.ID(),
				"userId", c.UserID(),
				"role", c.Role(),
			)
			c.closeTransport()
			h.Evict(c)
			continue
		}

		c.SetAlive(false)
		if err := c.probe(writeWait); err != nil {
			h.logger.Debug("heartbeat probe failed", "connId", c.ID(), "error", err)
		}
	}
}

// Dispatch decodes and routes one inbound frame from a client. Decode and
// validation failures are replied to the sender only; nothing here ends
// the connection except a client with missing metadata.
func (h *Hub) Dispatch(c *Client, raw []byte) {
	if c.UserID() == "" || c.Role() == "" {
		// Unreachable through admission, enforced defensively.
		h.closeForProtocolViolation(c)
		return
	}

	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.reply(c, ErrorMessage{Type: MessageTypeError, Message: "Invalid message format"})
		return
	}

	h.logger.Debug("message received",
		"connId", c.ID(),
		"userId", c.UserID(),
		"role", c.Role(),
		"type", msg.Type,
	)

	switch msg.Type {
	case MessageTypeOrderStatusUpdate:
		h.handleOrderStatusUpdate(c, &msg)
	case MessageTypeOrderCreated:
		h.handleOrderCreated(c, &msg)
	case MessageTypePing:
		h.reply(c, PongMessage{Type: MessageTypePong})
	default:
		h.reply(c, ErrorMessage{
			Type:    MessageTypeError,
			Message: fmt.Sprintf("Unknown message type: %s", msg.Type),
		})
	}
}

// handleOrderStatusUpdate relays a status transition. Only chef staff may
// move orders through the pipeline.
func (h *Hub) handleOrderStatusUpdate(c *Client, msg *inboundMessage) {
	if c.Role() != model.StaffRoleChef {
		h.reply(c, ErrorMessage{Type: MessageTypeError, Message: "Only chef staff can update order status"})
		return
	}
	if msg.OrderID == "" || msg.Status == "" {
		h.reply(c, ErrorMessage{Type: MessageTypeError, Message: "Missing orderId or status in request"})
		return
	}

	ts := timestamp()
	h.BroadcastToAll(OrdersUpdatedEvent{
		Type:      MessageTypeOrdersUpdated,
		OrderID:   msg.OrderID,
		Status:    msg.Status,
		UpdatedBy: c.UserID(),
		Timestamp: ts,
	})
	h.reply(c, OrderStatusConfirmation{
		Type:      MessageTypeStatusConfirmed,
		OrderID:   msg.OrderID,
		Status:    msg.Status,
		Timestamp: ts,
	})
}

// handleOrderCreated relays a new order to every connection. The order
// payload passes through verbatim; only its _id is read back for the
// confirmation.
func (h *Hub) handleOrderCreated(c *Client, msg *inboundMessage) {
	if len(msg.Order) == 0 || string(msg.Order) == "null" {
		h.reply(c, ErrorMessage{Type: MessageTypeError, Message: "Missing order data in request"})
		return
	}

	ts := timestamp()
	h.BroadcastToAll(OrderCreatedEvent{
		Type:      MessageTypeOrderCreated,
		Order:     msg.Order,
		CreatedBy: c.UserID(),
		Timestamp: ts,
	})

	var ref struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(msg.Order, &ref); err != nil {
		h.logger.Debug("order payload has no readable _id", "connId", c.ID(), "error", err)
	}
	h.reply(c, OrderCreationConfirmation{
		Type:      MessageTypeCreationConfirmed,
		OrderID:   ref.ID,
		Timestamp: ts,
	})
}

// BroadcastToAll serializes the event once and delivers it to every
// registered connection of every role. Closed or stalled targets are
// skipped; reaping them is the heartbeat's job, not the broadcaster's.
func (h *Hub) BroadcastToAll(event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal broadcast event", "error", err)
		return
	}

	for _, c := range h.registry.Snapshot() {
		if c.IsClosed() {
			continue
		}
		c.Send(data)
	}
}

// reply sends an event to the originating connection only.
func (h *Hub) reply(c *Client, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal reply", "connId", c.ID(), "error", err)
		return
	}
	c.Send(data)
}

// closeForProtocolViolation terminates a connection that reached dispatch
// without resolved metadata.
func (h *Hub) closeForProtocolViolation(c *Client) {
	h.logger.Error("client metadata missing at dispatch", "connId", c.ID())
	sendClose(c, "Client metadata not found")
	c.closeTransport()
	h.Evict(c)
}
