// Package checkout turns a priced cart into a published CheckoutEvent.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_eshop/cart-service/internal/domain"
	"github.com/fjod/go_eshop/cart-service/internal/repository"
	"github.com/fjod/go_eshop/pkg/events"
	"github.com/fjod/go_eshop/pkg/messaging"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrCartNotFound  = repository.ErrCartNotFound
	ErrPublishFailed = messaging.ErrPublishFailed
)

type Mode string

const (
	// ModeDirect publishes then deletes the cart. A crash between the two
	// leaves the cart behind and a retried checkout publishes a second event.
	ModeDirect Mode = "direct"
	// ModeOutbox deletes the cart and stores the event in one transaction;
	// the outbox relay publishes it later.
	ModeOutbox Mode = "outbox"
)

// Request carries the buyer data that is not part of the cart.
type Request struct {
	CustomerID    *uuid.UUID `json:"customerId"`
	FirstName     string     `json:"firstName" validate:"required,max=100"`
	LastName      string     `json:"lastName" validate:"required,max=100"`
	EmailAddress  string     `json:"emailAddress" validate:"required,email"`
	AddressLine   string     `json:"addressLine" validate:"required,max=180"`
	Country       string     `json:"country" validate:"required,max=50"`
	State         string     `json:"state" validate:"max=50"`
	ZipCode       string     `json:"zipCode" validate:"required,max=20"`
	CardName      string     `json:"cardName" validate:"required,max=50"`
	CardNumber    string     `json:"cardNumber" validate:"required,max=24"`
	Expiration    string     `json:"expiration" validate:"required,max=10"`
	CVV           string     `json:"cvv" validate:"required,len=3"`
	PaymentMethod int        `json:"paymentMethod" validate:"gte=0"`
}

// CartStore loads carts from the store of record, not from a cache.
type CartStore interface {
	LoadCart(ctx context.Context, userName string) (*domain.Cart, error)
	DeleteCart(ctx context.Context, userName string) error
	InvalidateCache(ctx context.Context, userName string)
}

type Publisher interface {
	Publish(ctx context.Context, msg messaging.Message) error
}

// OutboxWriter deletes the cart of ev.UserName and records ev atomically.
type OutboxWriter interface {
	Checkout(ctx context.Context, ev events.CheckoutEvent) error
}

type Orchestrator struct {
	carts     CartStore
	publisher Publisher
	outbox    OutboxWriter
	log       *slog.Logger
	outcomes  *prometheus.CounterVec
	now       func() time.Time
}

type Option func(*Orchestrator)

// WithOutbox switches the orchestrator to ModeOutbox.
func WithOutbox(w OutboxWriter) Option {
	return func(o *Orchestrator) { o.outbox = w }
}

// WithOutcomeCounter counts checkouts by mode and outcome.
func WithOutcomeCounter(c *prometheus.CounterVec) Option {
	return func(o *Orchestrator) { o.outcomes = c }
}

func NewOutcomeCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cart",
		Name:      "checkouts_total",
		Help:      "Checkout attempts by mode and outcome.",
	}, []string{"mode", "outcome"})
	reg.MustRegister(c)
	return c
}

func New(carts CartStore, publisher Publisher, log *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		carts:     carts,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Mode() Mode {
	if o.outbox != nil {
		return ModeOutbox
	}
	return ModeDirect
}

// Checkout publishes the user's cart as a CheckoutEvent. The total is the one
// stored with the cart; pricing is not run again. On ErrPublishFailed the
// cart is left untouched.
func (o *Orchestrator) Checkout(ctx context.Context, userName string, req Request) (events.CheckoutEvent, error) {
	cart, err := o.carts.LoadCart(ctx, userName)
	if err != nil {
		o.count(err)
		return events.CheckoutEvent{}, err
	}

	ev := o.buildEvent(cart, req)
	if o.outbox != nil {
		err = o.checkoutOutbox(ctx, ev)
	} else {
		err = o.checkoutDirect(ctx, ev)
	}
	o.count(err)
	if err != nil {
		return events.CheckoutEvent{}, err
	}

	o.log.InfoContext(ctx, "cart checked out", "user", userName, "customer_id", ev.CustomerID,
		"mode", o.Mode(), "total", ev.TotalPrice.String(), "items", len(ev.Items))
	return ev, nil
}

func (o *Orchestrator) checkoutDirect(ctx context.Context, ev events.CheckoutEvent) error {
	err := o.publisher.Publish(ctx, messaging.Message{
		Key:     ev.UserName,
		Type:    events.CheckoutEventType,
		Payload: ev,
	})
	if err != nil {
		o.log.ErrorContext(ctx, "checkout publish failed, cart kept", "user", ev.UserName, "error", err)
		return err
	}

	// The event is out; a failed delete only leaves a stale cart behind.
	if err := o.carts.DeleteCart(ctx, ev.UserName); err != nil {
		o.log.ErrorContext(ctx, "cart delete after checkout failed", "user", ev.UserName, "error", err)
	}
	return nil
}

func (o *Orchestrator) checkoutOutbox(ctx context.Context, ev events.CheckoutEvent) error {
	ev.EventID = uuid.New()
	if err := o.outbox.Checkout(ctx, ev); err != nil {
		return err
	}
	o.carts.InvalidateCache(ctx, ev.UserName)
	return nil
}

func (o *Orchestrator) buildEvent(cart *domain.Cart, req Request) events.CheckoutEvent {
	customerID := uuid.New()
	if req.CustomerID != nil && *req.CustomerID != uuid.Nil {
		customerID = *req.CustomerID
	}

	items := make([]events.CheckoutItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, events.CheckoutItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}

	return events.CheckoutEvent{
		OccurredAt:    o.now().UTC(),
		UserName:      cart.UserName,
		CustomerID:    customerID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		EmailAddress:  req.EmailAddress,
		AddressLine:   req.AddressLine,
		Country:       req.Country,
		State:         req.State,
		ZipCode:       req.ZipCode,
		CardName:      req.CardName,
		CardNumber:    req.CardNumber,
		Expiration:    req.Expiration,
		CVV:           req.CVV,
		PaymentMethod: req.PaymentMethod,
		Items:         items,
		TotalPrice:    cart.TotalAfterDiscount,
	}
}

func (o *Orchestrator) count(err error) {
	if o.outcomes == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrCartNotFound):
		outcome = "cart_not_found"
	case errors.Is(err, ErrPublishFailed):
		outcome = "publish_failed"
	default:
		outcome = "error"
	}
	o.outcomes.WithLabelValues(string(o.Mode()), outcome).Inc()
}
