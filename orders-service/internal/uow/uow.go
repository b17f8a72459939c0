// Package uow saves order aggregates in one transaction and publishes their
// domain events only after the transaction commits.
package uow

import (
	"context"
	"time"

	"github.com/fjod/go_eshop/orders-service/internal/domain"
	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/google/uuid"
)

var ErrEventAlreadyProcessed = apperr.Business("integration event already processed")

type State int

const (
	Added State = iota
	Modified
	Deleted
)

type Change struct {
	Order *domain.Order
	State State
}

// ChangeSet is everything a Committer must write atomically.
type ChangeSet struct {
	Customers []*domain.Customer
	Orders    []Change
	// ProcessedEventID, when set, must be recorded in the same transaction.
	// A duplicate must fail the commit with ErrEventAlreadyProcessed.
	ProcessedEventID uuid.UUID
}

type Committer interface {
	Commit(ctx context.Context, cs ChangeSet) error
}

type EventDispatcher interface {
	Dispatch(ctx context.Context, events []domain.Event)
}

type Factory struct {
	committer  Committer
	dispatcher EventDispatcher
	actor      string
	now        func() time.Time
}

func NewFactory(c Committer, d EventDispatcher, actor string) *Factory {
	return &Factory{committer: c, dispatcher: d, actor: actor, now: time.Now}
}

func (f *Factory) New() *UnitOfWork {
	return &UnitOfWork{committer: f.committer, dispatcher: f.dispatcher, actor: f.actor, now: f.now}
}

type UnitOfWork struct {
	committer  Committer
	dispatcher EventDispatcher
	actor      string
	now        func() time.Time
	cs         ChangeSet
}

// AddCustomer registers a customer to insert unless one with the same id exists.
func (u *UnitOfWork) AddCustomer(c *domain.Customer) {
	u.cs.Customers = append(u.cs.Customers, c)
}

func (u *UnitOfWork) AddOrder(o *domain.Order)    { u.track(o, Added) }
func (u *UnitOfWork) UpdateOrder(o *domain.Order) { u.track(o, Modified) }
func (u *UnitOfWork) DeleteOrder(o *domain.Order) { u.track(o, Deleted) }

func (u *UnitOfWork) MarkEventProcessed(id uuid.UUID) {
	u.cs.ProcessedEventID = id
}

func (u *UnitOfWork) track(o *domain.Order, s State) {
	u.cs.Orders = append(u.cs.Orders, Change{Order: o, State: s})
}

// SaveChanges stamps audit fields, drains the aggregates' event buffers,
// commits, and then dispatches the drained events. When the commit fails
// nothing is dispatched.
func (u *UnitOfWork) SaveChanges(ctx context.Context) error {
	now := u.now().UTC()
	u.stamp(now)
	events := u.collectEvents()

	if err := u.committer.Commit(ctx, u.cs); err != nil {
		return err
	}
	u.cs = ChangeSet{}

	if len(events) > 0 {
		u.dispatcher.Dispatch(ctx, events)
	}
	return nil
}

func (u *UnitOfWork) stamp(now time.Time) {
	for _, c := range u.cs.Customers {
		if c.IsNew() {
			c.StampCreated(now, u.actor)
			c.StampModified(now, u.actor)
		}
	}
	for _, ch := range u.cs.Orders {
		if ch.State == Deleted {
			continue
		}
		o := ch.Order
		if ch.State == Added || o.IsNew() {
			o.StampCreated(now, u.actor)
		}
		o.StampModified(now, u.actor)
		for _, it := range o.Items {
			if it.IsNew() {
				it.StampCreated(now, u.actor)
				it.StampModified(now, u.actor)
			}
		}
	}
}

func (u *UnitOfWork) collectEvents() []domain.Event {
	var events []domain.Event
	seen := map[*domain.Order]bool{}
	for _, ch := range u.cs.Orders {
		if seen[ch.Order] {
			continue
		}
		seen[ch.Order] = true
		events = append(events, ch.Order.Events()...)
		ch.Order.ClearEvents()
	}
	return events
}
