package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/restaurant-ops/backend/internal/model"
)

// sendBufferSize is the per-client outbound queue depth. A client that
// cannot drain this many frames is dropped.
const sendBufferSize = 256

// Client represents one admitted staff WebSocket connection. Identity and
// role are fixed at admission; a reconnect produces a new Client.
type Client struct {
	id     string
	userID string
	role   model.StaffRole
	conn   *websocket.Conn
	send   chan []byte

	mu     sync.Mutex
	closed bool
	alive  bool
}

// NewClient creates a new admitted client. conn may be nil in tests.
func NewClient(conn *websocket.Conn, userID string, role model.StaffRole) *Client {
	return &Client{
		id:     uuid.NewString(),
		userID: userID,
		role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		alive:  true,
	}
}

// ID returns the connection id, used for log correlation only.
func (c *Client) ID() string {
	return c.id
}

// UserID returns the principal id resolved at admission.
func (c *Client) UserID() string {
	return c.userID
}

// Role returns the role the connection was admitted under.
func (c *Client) Role() model.StaffRole {
	return c.role
}

// Send queues a frame to be sent to the client.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer full, drop the client
		c.closeLocked()
	}
}

// Close marks the client closed and releases its send queue.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SendChan returns the outbound frame queue for the client.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// Alive reports whether the client answered the last heartbeat probe.
func (c *Client) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

// SetAlive updates the liveness flag. Pong receipt sets it true; the
// heartbeat monitor sets it false when probing.
func (c *Client) SetAlive(alive bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alive = alive
}

// probe sends a WebSocket ping control frame. WriteControl is safe to call
// concurrently with the write pump.
func (c *Client) probe(timeout time.Duration) error {
	if c.conn == nil {
		return nil
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout))
}

// closeTransport force-closes the underlying connection, unblocking the
// read pump. Safe to call more than once and with a nil transport.
func (c *Client) closeTransport() {
	if c.conn == nil {
		return
	}
	c.conn.Close()
}
