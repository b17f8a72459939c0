// Package dispatcher delivers committed domain events to in-process handlers.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fjod/go_eshop/orders-service/internal/domain"
)

type Handler func(ctx context.Context, event domain.Event) error

type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *slog.Logger
}

func New(log *slog.Logger) *Dispatcher {
	return &Dispatcher{handlers: map[string][]Handler{}, log: log}
}

func (d *Dispatcher) Register(eventName string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], h)
}

// Dispatch runs handlers one at a time in event order. A failing handler is
// logged and does not stop the rest; the changes are already committed.
func (d *Dispatcher) Dispatch(ctx context.Context, events []domain.Event) {
	for _, ev := range events {
		d.mu.RLock()
		handlers := append([]Handler(nil), d.handlers[ev.Name()]...)
		d.mu.RUnlock()

		for _, h := range handlers {
			if err := h(ctx, ev); err != nil {
				d.log.ErrorContext(ctx, "domain event handler failed", "event", ev.Name(), "error", err)
			}
		}
	}
}

// RegisterLogging attaches handlers that record order lifecycle events.
func RegisterLogging(d *Dispatcher, log *slog.Logger) {
	d.Register(domain.EventOrderCreated, func(ctx context.Context, ev domain.Event) error {
		o := ev.(domain.OrderCreated).Order
		log.InfoContext(ctx, "order created", "order_id", o.ID, "customer_id", o.CustomerID,
			"items", len(o.Items), "total", o.TotalPrice().StringFixed(2))
		return nil
	})
	d.Register(domain.EventOrderUpdated, func(ctx context.Context, ev domain.Event) error {
		e := ev.(domain.OrderUpdated)
		log.InfoContext(ctx, "order updated", "order_id", e.Order.ID, "from", e.From.String(), "to", e.Order.Status.String())
		return nil
	})
	d.Register(domain.EventOrderDeleted, func(ctx context.Context, ev domain.Event) error {
		log.InfoContext(ctx, "order deleted", "order_id", ev.(domain.OrderDeleted).OrderID)
		return nil
	})
}
