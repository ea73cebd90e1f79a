package hub

import (
	"encoding/json"
	"time"
)

// MessageType represents the type of a hub event frame.
type MessageType string

const (
	// Client -> Server message types
	MessageTypeOrderCreated      MessageType = "order_created"
	MessageTypeOrderStatusUpdate MessageType = "order_status_update"
	MessageTypePing              MessageType = "ping"

	// Server -> Client message types
	MessageTypeOrdersUpdated     MessageType = "orders_updated"
	MessageTypeCreationConfirmed MessageType = "order_creation_confirmation"
	MessageTypeStatusConfirmed   MessageType = "order_status_update_confirmation"
	MessageTypePong              MessageType = "pong"
	MessageTypeError             MessageType = "error"
)

// inboundMessage is the envelope for client frames. Order payloads stay
// opaque; the hub only checks presence and peeks at the order id.
type inboundMessage struct {
	Type    MessageType     `json:"type"`
	Order   json.RawMessage `json:"order,omitempty"`
	OrderID string          `json:"orderId,omitempty"`
	Status  string          `json:"status,omitempty"`
}

// OrderCreatedEvent is broadcast to every connection when an order arrives.
type OrderCreatedEvent struct {
	Type      MessageType     `json:"type"`
	Order     json.RawMessage `json:"order"`
	CreatedBy string          `json:"createdBy"`
	Timestamp string          `json:"timestamp"`
}

// OrderCreationConfirmation is sent to the originating connection only.
type OrderCreationConfirmation struct {
	Type      MessageType `json:"type"`
	OrderID   string      `json:"orderId"`
	Timestamp string      `json:"timestamp"`
}

// OrdersUpdatedEvent is broadcast to every connection on a status change.
type OrdersUpdatedEvent struct {
	Type      MessageType `json:"type"`
	OrderID   string      `json:"orderId"`
	Status    string      `json:"status"`
	UpdatedBy string      `json:"updatedBy"`
	Timestamp string      `json:"timestamp"`
}

// OrderStatusConfirmation is sent to the originating connection only.
type OrderStatusConfirmation struct {
	Type      MessageType `json:"type"`
	OrderID   string      `json:"orderId"`
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
}

// PongMessage answers an application-level ping.
type PongMessage struct {
	Type MessageType `json:"type"`
}

// ErrorMessage reports a recoverable per-message failure to the sender.
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// timestampLayout matches the ISO-8601 millisecond format clients expect.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// timestamp stamps outbound events at the moment of processing.
func timestamp() string {
	return time.Now().UTC().Format(timestampLayout)
}
