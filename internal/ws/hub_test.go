package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/apex-pos/api/internal/auth"
	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/events"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, companyID uuid.UUID) *Client {
	return &Client{
		hub:       hub,
		companyID: companyID,
		send:      make(chan []byte, 256),
		log:       zap.NewNop(),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func waitForClients(t *testing.T, hub *Hub, companyID uuid.UUID, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(companyID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, hub.ClientCount(companyID))
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	companyID := uuid.New()
	client := mockClient(hub, companyID)

	hub.register <- client
	waitForClients(t, hub, companyID, 1)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if !hub.rooms[companyID][client] {
		t.Fatal("client not registered in company room")
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := startHub(t)
	companyID := uuid.New()
	client1 := mockClient(hub, companyID)
	client2 := mockClient(hub, companyID)

	hub.register <- client1
	hub.register <- client2
	waitForClients(t, hub, companyID, 2)

	hub.unregister <- client1
	waitForClients(t, hub, companyID, 1)

	hub.unregister <- client2
	waitForClients(t, hub, companyID, 0)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[companyID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
}

func TestPublishIsolatesCompanies(t *testing.T) {
	hub := startHub(t)
	company1, company2 := uuid.New(), uuid.New()

	clients := map[uuid.UUID][]*Client{
		company1: {mockClient(hub, company1), mockClient(hub, company1)},
		company2: {mockClient(hub, company2)},
	}
	for _, list := range clients {
		for _, c := range list {
			hub.register <- c
		}
	}
	waitForClients(t, hub, company1, 2)
	waitForClients(t, hub, company2, 1)

	err := hub.Publish(context.Background(), events.New(events.ComandaClosed, company1, map[string]any{"mesa": 7}))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	for i, c := range clients[company1] {
		select {
		case msg := <-c.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: unmarshal: %v", i, err)
			}
			if received.Type != "comanda.closed" {
				t.Errorf("client%d: type got %q", i, received.Type)
			}
			if string(received.Payload) != `{"mesa":7}` {
				t.Errorf("client%d: payload got %s", i, received.Payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("client%d did not receive message", i)
		}
	}

	select {
	case <-clients[company2][0].send:
		t.Fatal("other company's client should not receive the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	companyID := uuid.New()
	slow := &Client{hub: hub, companyID: companyID, send: make(chan []byte), log: zap.NewNop()}

	hub.register <- slow
	waitForClients(t, hub, companyID, 1)

	hub.BroadcastToCompany(companyID, Event{Type: "order.created", Payload: json.RawMessage(`{}`)})
	waitForClients(t, hub, companyID, 0)

	if _, ok := <-slow.send; ok {
		t.Error("slow client's channel should be closed")
	}
}

func TestPublishAfterShutdown(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := mockClient(hub, uuid.New())
	hub.register <- client
	cancel()
	<-stopped

	if _, ok := <-client.send; ok {
		t.Error("clients should be disconnected on shutdown")
	}

	// Fill the buffer so the only ready case is the closed hub.
	for i := 0; i < cap(hub.broadcast); i++ {
		hub.broadcast <- &companyEvent{}
	}
	err := hub.Publish(context.Background(), events.New(events.OrderCreated, uuid.New(), nil))
	if !errors.Is(err, ErrHubClosed) {
		t.Fatalf("expected ErrHubClosed, got %v", err)
	}
}

// =====================
// ServeWS
// =====================

const testSecret = "test-secret"

type mockResolver struct {
	resolveFn func(ctx context.Context, claims *auth.Claims) (*authz.Context, error)
}

func (m *mockResolver) Resolve(ctx context.Context, claims *auth.Claims) (*authz.Context, error) {
	return m.resolveFn(ctx, claims)
}

func resolverFor(role string) *mockResolver {
	return &mockResolver{resolveFn: func(ctx context.Context, claims *auth.Claims) (*authz.Context, error) {
		return authz.NewContext(authz.DefaultPermissions(), claims.UserID, claims.CompanyID, "Ana", role), nil
	}}
}

func wsServer(hub *Hub, resolver Resolver) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, resolver, testSecret, zap.NewNop(), w, r)
	}))
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orders?token=" + token
}

func TestServeWS_ReceivesCompanyEvents(t *testing.T) {
	hub := startHub(t)
	srv := wsServer(hub, resolverFor("cozinha"))
	defer srv.Close()

	companyID := uuid.New()
	token, err := auth.GenerateToken(testSecret, uuid.New(), companyID, "cozinha")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, companyID, 1)

	if err := hub.Publish(context.Background(), events.New(events.OrderItemStatus, companyID, map[string]string{"status": "ready"})); err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received Event
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("read: %v", err)
	}
	if received.Type != "order.item_status" {
		t.Errorf("type: got %q", received.Type)
	}
}

func TestServeWS_Rejections(t *testing.T) {
	hub := startHub(t)
	failing := &mockResolver{resolveFn: func(ctx context.Context, claims *auth.Claims) (*authz.Context, error) {
		return nil, authz.ErrNoCompany
	}}
	validToken, _ := auth.GenerateToken(testSecret, uuid.New(), uuid.New(), "caixa")

	cases := []struct {
		name     string
		resolver Resolver
		token    string
		status   int
	}{
		{"missing token", resolverFor("caixa"), "", http.StatusUnauthorized},
		{"invalid token", resolverFor("caixa"), "garbage", http.StatusUnauthorized},
		{"unresolvable user", failing, validToken, http.StatusUnauthorized},
		{"role without order.read", resolverFor("visitante"), validToken, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := wsServer(hub, tc.resolver)
			defer srv.Close()

			_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, tc.token), nil)
			if err == nil {
				t.Fatal("expected the handshake to fail")
			}
			if resp == nil || resp.StatusCode != tc.status {
				t.Fatalf("expected status %d, got %v", tc.status, resp)
			}
		})
	}
}
