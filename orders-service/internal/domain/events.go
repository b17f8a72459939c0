package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated = "OrderCreated"
	EventOrderUpdated = "OrderUpdated"
	EventOrderDeleted = "OrderDeleted"
)

type Event interface {
	Name() string
	OccurredAt() time.Time
}

type OrderCreated struct {
	Order *Order
	At    time.Time
}

func (e OrderCreated) Name() string          { return EventOrderCreated }
func (e OrderCreated) OccurredAt() time.Time { return e.At }

type OrderUpdated struct {
	Order *Order
	From  OrderStatus
	At    time.Time
}

func (e OrderUpdated) Name() string          { return EventOrderUpdated }
func (e OrderUpdated) OccurredAt() time.Time { return e.At }

type OrderDeleted struct {
	OrderID uuid.UUID
	At      time.Time
}

func (e OrderDeleted) Name() string          { return EventOrderDeleted }
func (e OrderDeleted) OccurredAt() time.Time { return e.At }

// EventBuffer keeps raised events in the order they were raised until the
// unit of work collects them.
type EventBuffer struct {
	events []Event
}

func (b *EventBuffer) raise(e Event) {
	b.events = append(b.events, e)
}

func (b *EventBuffer) Events() []Event {
	return append([]Event(nil), b.events...)
}

func (b *EventBuffer) ClearEvents() {
	b.events = nil
}
