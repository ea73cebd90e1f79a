package hub

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/restaurant-ops/backend/internal/auth"
	"github.com/restaurant-ops/backend/internal/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Close reasons are capped by the protocol at 125 bytes.
	maxCloseReason = 123
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// CredentialResolver maps an opaque credential to a principal.
type CredentialResolver interface {
	Resolve(ctx context.Context, credential string) (auth.Principal, error)
}

// Handler admits WebSocket connections into the hub.
type Handler struct {
	hub      *Hub
	resolver CredentialResolver
	logger   *slog.Logger
}

// NewHandler creates a new connection handler.
func NewHandler(h *Hub, resolver CredentialResolver, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{hub: h, resolver: resolver, logger: logger}
}

// HandleConnection upgrades the HTTP request and runs admission. The two
// establishment parameters arrive as URL query values: token (credential)
// and role (chef or waiter).
//
// The requested role, not any role claim inside the credential, decides
// which role-set the connection joins. The two are never cross-checked;
// that mirrors the deployed policy and is a deliberate decision, not an
// oversight.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	token := r.URL.Query().Get("token")
	roleParam := r.URL.Query().Get("role")

	// Refusal reasons must travel in a close frame, so upgrade first.
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	if token == "" {
		h.refuse(conn, "Authentication token required")
		return nil
	}

	role, ok := model.ParseStaffRole(roleParam)
	if !ok {
		h.refuse(conn, "Invalid role specified")
		return nil
	}

	principal, err := h.resolver.Resolve(r.Context(), token)
	if err != nil {
		h.logger.Warn("websocket authentication failed", "error", err)
		h.refuse(conn, err.Error())
		return nil
	}

	client := NewClient(conn, principal.UserID, role)
	h.hub.Admit(client)

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// refuse closes a not-yet-admitted connection with a policy-violation code.
func (h *Handler) refuse(conn *websocket.Conn, reason string) {
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
}

// sendClose delivers a policy-violation close frame to an admitted client.
func sendClose(c *Client, reason string) {
	if c.conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// readPump pumps frames from the WebSocket connection into the dispatcher.
// Frames from one connection dispatch in arrival order.
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.hub.Evict(client)
		client.closeTransport()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetPongHandler(func(string) error {
		client.SetAlive(true)
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "connId", client.ID(), "error", err)
			}
			break
		}

		h.hub.Dispatch(client, message)
	}
}

// writePump pumps queued frames to the WebSocket connection. It is the
// only writer of data frames; heartbeat pings and close frames go out as
// control frames, which gorilla permits concurrently.
func (h *Handler) writePump(client *Client) {
	defer client.closeTransport()

	for {
		message, ok := <-client.SendChan()
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if !ok {
			// The hub closed the client
			client.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		// Each frame carries one JSON document so clients can decode
		// frame-by-frame
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}

		// Drain any queued frames, one document per frame
		n := len(client.SendChan())
		for i := 0; i < n; i++ {
			queued, ok := <-client.SendChan()
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, queued); err != nil {
				return
			}
		}
	}
}
