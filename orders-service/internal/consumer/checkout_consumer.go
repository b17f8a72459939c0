package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fjod/go_eshop/orders-service/internal/domain"
	"github.com/fjod/go_eshop/orders-service/internal/uow"
	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/fjod/go_eshop/pkg/events"
	"github.com/fjod/go_eshop/pkg/messaging"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const GroupID = "orders-service"

var ErrEmptyCheckout = apperr.Invalid("checkout event has no items", map[string]string{"items": "min=1"})

// CheckoutHandler turns checkout events into orders.
type CheckoutHandler struct {
	uow *uow.Factory
	log *slog.Logger
}

func NewCheckoutHandler(f *uow.Factory, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{uow: f, log: log}
}

// Handle is a messaging.Handler.
func (h *CheckoutHandler) Handle(ctx context.Context, m kafka.Message) error {
	if t := messaging.Header(m, messaging.HeaderEventType); t != "" && t != events.CheckoutEventType {
		h.log.DebugContext(ctx, "skipping unrelated event", "event_type", t, "offset", m.Offset)
		return nil
	}

	var ev events.CheckoutEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		return apperr.Wrap(apperr.KindValidation, "malformed checkout event", err)
	}
	return h.Ingest(ctx, ev)
}

// Ingest creates the customer (if new) and the order for one checkout.
// Without an eventId a redelivered event creates a second order.
func (h *CheckoutHandler) Ingest(ctx context.Context, ev events.CheckoutEvent) error {
	if len(ev.Items) == 0 {
		return ErrEmptyCheckout
	}

	customer, err := domain.NewCustomer(ev.CustomerID,
		strings.TrimSpace(ev.FirstName+" "+ev.LastName), ev.EmailAddress)
	if err != nil {
		return err
	}

	addr := domain.Address{
		FirstName:    ev.FirstName,
		LastName:     ev.LastName,
		EmailAddress: ev.EmailAddress,
		AddressLine:  ev.AddressLine,
		Country:      ev.Country,
		State:        ev.State,
		ZipCode:      ev.ZipCode,
	}
	order, err := domain.NewOrder(uuid.New(), customer.ID, ev.UserName+" - "+ev.UserName, addr, addr, domain.Payment{
		CardName:      ev.CardName,
		CardNumber:    ev.CardNumber,
		Expiration:    ev.Expiration,
		CVV:           ev.CVV,
		PaymentMethod: ev.PaymentMethod,
	})
	if err != nil {
		return err
	}
	for _, it := range ev.Items {
		if err := order.AddItem(it.ProductID, it.Quantity, it.Price); err != nil {
			return fmt.Errorf("item %s: %w", it.ProductID, err)
		}
	}

	u := h.uow.New()
	u.AddCustomer(customer)
	u.AddOrder(order)
	if ev.HasEventID() {
		u.MarkEventProcessed(ev.EventID)
	}

	if err := u.SaveChanges(ctx); err != nil {
		if errors.Is(err, uow.ErrEventAlreadyProcessed) {
			h.log.InfoContext(ctx, "checkout already ingested", "event_id", ev.EventID, "user", ev.UserName)
			return nil
		}
		return fmt.Errorf("save order for %s: %w", ev.UserName, err)
	}

	h.log.InfoContext(ctx, "order ingested", "order_id", order.ID, "user", ev.UserName,
		"customer_id", customer.ID, "event_id", ev.EventID)
	return nil
}
