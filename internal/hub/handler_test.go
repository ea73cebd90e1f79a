package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/restaurant-ops/backend/internal/auth"
	"github.com/restaurant-ops/backend/internal/model"
)

// resolverFunc adapts a function to the CredentialResolver interface.
type resolverFunc func(ctx context.Context, credential string) (auth.Principal, error)

func (f resolverFunc) Resolve(ctx context.Context, credential string) (auth.Principal, error) {
	return f(ctx, credential)
}

// tokenIsUserID resolves any credential to a principal whose id is the
// credential itself. Keeps test wiring out of the way.
func tokenIsUserID(ctx context.Context, credential string) (auth.Principal, error) {
	return auth.Principal{UserID: credential}, nil
}

func startTestServer(t *testing.T, h *Hub, resolver CredentialResolver) *httptest.Server {
	t.Helper()
	handler := NewHandler(h, resolver, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.HandleConnection(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// expectRefusal reads until the server closes the socket and returns the
// close reason.
func expectRefusal(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("expected a close frame, got %v", err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation {
		t.Errorf("expected close code %d, got %d", websocket.ClosePolicyViolation, closeErr.Code)
	}
	return closeErr.Text
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("frame is not valid JSON: %v", err)
	}
	return out
}

func TestAdmissionMissingToken(t *testing.T) {
	h := newTestHub()
	defer h.Close()
	srv := startTestServer(t, h, resolverFunc(tokenIsUserID))

	// No token and an invalid role: the token check must win.
	conn := dial(t, srv, "role=manager")
	if reason := expectRefusal(t, conn); reason != "Authentication token required" {
		t.Errorf("wrong close reason: %q", reason)
	}
	if h.ClientCount() != 0 {
		t.Errorf("refused connection was admitted, %d clients", h.ClientCount())
	}
}

func TestAdmissionInvalidRole(t *testing.T) {
	h := newTestHub()
	defer h.Close()
	srv := startTestServer(t, h, resolverFunc(tokenIsUserID))

	for _, query := range []string{"token=abc", "token=abc&role=manager"} {
		conn := dial(t, srv, query)
		if reason := expectRefusal(t, conn); reason != "Invalid role specified" {
			t.Errorf("query %q: wrong close reason %q", query, reason)
		}
	}
	if h.ClientCount() != 0 {
		t.Errorf("refused connection was admitted, %d clients", h.ClientCount())
	}
}

func TestAdmissionResolverFailure(t *testing.T) {
	h := newTestHub()
	defer h.Close()

	srv := startTestServer(t, h, resolverFunc(func(ctx context.Context, credential string) (auth.Principal, error) {
		return auth.Principal{}, fmt.Errorf("%w: token is not valid", model.ErrUnauthenticated)
	}))

	conn := dial(t, srv, "token=bad&role=chef")
	reason := expectRefusal(t, conn)
	if !strings.Contains(reason, "token is not valid") {
		t.Errorf("close reason should carry the resolver message, got %q", reason)
	}
	if h.ClientCount() != 0 {
		t.Errorf("refused connection was admitted, %d clients", h.ClientCount())
	}
}

func TestOrderFlowOverWebSocket(t *testing.T) {
	h := newTestHub()
	defer h.Close()
	srv := startTestServer(t, h, resolverFunc(tokenIsUserID))

	chef := dial(t, srv, "token=chef-1&role=chef")
	waiter := dial(t, srv, "token=waiter-1&role=waiter")

	// Both must be admitted before the broadcast snapshot is taken.
	waitForClients(t, h, 2)

	if err := waiter.WriteMessage(websocket.TextMessage, []byte(`{"type":"order_created","order":{"_id":"o1"}}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	chefFrame := readFrame(t, chef)
	if chefFrame["type"] != string(MessageTypeOrderCreated) {
		t.Fatalf("chef expected order_created, got %v", chefFrame["type"])
	}
	if chefFrame["createdBy"] != "waiter-1" {
		t.Errorf("expected createdBy waiter-1, got %v", chefFrame["createdBy"])
	}

	waiterBroadcast := readFrame(t, waiter)
	if waiterBroadcast["type"] != string(MessageTypeOrderCreated) {
		t.Fatalf("waiter expected order_created, got %v", waiterBroadcast["type"])
	}
	conf := readFrame(t, waiter)
	if conf["type"] != string(MessageTypeCreationConfirmed) || conf["orderId"] != "o1" {
		t.Errorf("wrong confirmation: %v", conf)
	}
}

func TestHeartbeatKeepsResponsiveClient(t *testing.T) {
	h := New(Config{HeartbeatInterval: 50 * time.Millisecond}, discardLogger())
	h.Start()
	defer h.Close()
	srv := startTestServer(t, h, resolverFunc(tokenIsUserID))

	conn := dial(t, srv, "token=chef-1&role=chef")
	waitForClients(t, h, 1)

	// The dialer answers server pings automatically while reading; an
	// application ping doubles as proof the connection survived several
	// heartbeat periods.
	done := make(chan map[string]interface{}, 1)
	go func() {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				close(done)
				return
			}
			var frame map[string]interface{}
			if json.Unmarshal(data, &frame) == nil {
				done <- frame
				return
			}
		}
	}()

	time.Sleep(300 * time.Millisecond)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("connection died under heartbeat: %v", err)
	}

	frame, ok := <-done
	if !ok || frame["type"] != string(MessageTypePong) {
		t.Fatalf("expected pong after heartbeat periods, got %v", frame)
	}
	if h.ClientCount() != 1 {
		t.Errorf("responsive client was evicted")
	}
}

func TestHeartbeatEvictsSilentClient(t *testing.T) {
	h := New(Config{HeartbeatInterval: 50 * time.Millisecond}, discardLogger())
	h.Start()
	defer h.Close()
	srv := startTestServer(t, h, resolverFunc(tokenIsUserID))

	// Never read: pings are never processed, so no pongs come back.
	dial(t, srv, "token=chef-1&role=chef")
	waitForClients(t, h, 1)

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("silent client was never evicted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", want, h.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
