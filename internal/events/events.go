// Package events carries domain events to the realtime feed and the message
// broker after the originating transaction commits.
package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	OrderCreated    Type = "order.created"
	OrderStatus     Type = "order.status"
	OrderItemStatus Type = "order.item_status"
	ComandaClosed   Type = "comanda.closed"
	TableStatus     Type = "table.status"
)

// RoutingKey maps an event type to its broker routing key, e.g.
// "comanda.closed" -> "comandas.closed".
func (t Type) RoutingKey() string {
	entity, action, ok := strings.Cut(string(t), ".")
	if !ok {
		return string(t)
	}
	return entity + "s." + action
}

type Event struct {
	Type       Type      `json:"type"`
	CompanyID  uuid.UUID `json:"companyId"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

func New(t Type, companyID uuid.UUID, payload any) Event {
	return Event{Type: t, CompanyID: companyID, Payload: payload, OccurredAt: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
