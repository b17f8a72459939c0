package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CheckoutTopic     = "basket-checkout"
	CheckoutEventType = "BasketCheckout"
)

// CheckoutEvent is the immutable snapshot published when a cart is checked out.
// EventID is only set when the event is relayed from the outbox; consumers use
// it as an idempotency key.
type CheckoutEvent struct {
	EventID    uuid.UUID `json:"eventId,omitzero"`
	OccurredAt time.Time `json:"occurredAt"`

	UserName   string    `json:"userName"`
	CustomerID uuid.UUID `json:"customerId"`

	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	EmailAddress string `json:"emailAddress"`
	AddressLine  string `json:"addressLine"`
	Country      string `json:"country"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`

	CardName      string `json:"cardName"`
	CardNumber    string `json:"cardNumber"`
	Expiration    string `json:"expiration"`
	CVV           string `json:"cvv"`
	PaymentMethod int    `json:"paymentMethod"`

	Items      []CheckoutItem  `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type CheckoutItem struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// HasEventID reports whether the event carries an idempotency key.
func (e CheckoutEvent) HasEventID() bool {
	return e.EventID != uuid.Nil
}
