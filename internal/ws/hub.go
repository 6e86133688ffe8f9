package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex-pos/api/internal/events"
	"github.com/google/uuid"
)

// ErrHubClosed is returned by Publish after Run has returned.
var ErrHubClosed = errors.New("websocket hub closed")

// Event is the message written to websocket clients.
type Event struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// companyEvent routes an event to one company's room.
type companyEvent struct {
	CompanyID uuid.UUID
	Event     Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by company ID
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *companyEvent

	// Closed when Run returns
	done     chan struct{}
	doneOnce sync.Once

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *companyEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop until ctx is cancelled, then disconnects
// every client. Call it as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer h.doneOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for companyID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, companyID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.companyID] == nil {
				h.rooms[client.companyID] = make(map[*Client]bool)
			}
			h.rooms[client.companyID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.CompanyID] {
				select {
				case client.send <- message:
				default:
					// Slow consumer: drop it rather than block the room.
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove deletes client from its room and closes its send channel.
// Caller holds h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.companyID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.companyID)
	}
}

// BroadcastToCompany queues event for every client of companyID.
func (h *Hub) BroadcastToCompany(companyID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &companyEvent{CompanyID: companyID, Event: event}:
	case <-h.done:
	}
}

// Publish implements events.Publisher by broadcasting e to its company's room.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", e.Type, err)
	}
	msg := &companyEvent{
		CompanyID: e.CompanyID,
		Event:     Event{Type: string(e.Type), Payload: payload, OccurredAt: e.OccurredAt},
	}
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of clients connected for companyID.
func (h *Hub) ClientCount(companyID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[companyID])
}
