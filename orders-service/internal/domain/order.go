package domain

import (
	"time"
	"unicode/utf8"

	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const minOrderNameLength = 5

var ErrOrderNotFound = apperr.NotFound("order not found")

type Address struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	EmailAddress string `json:"emailAddress"`
	AddressLine  string `json:"addressLine"`
	Country      string `json:"country"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
}

type Payment struct {
	CardName      string `json:"cardName"`
	CardNumber    string `json:"cardNumber"`
	Expiration    string `json:"expiration"`
	CVV           string `json:"cvv"`
	PaymentMethod int    `json:"paymentMethod"`
}

type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"orderId"`
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Audit
}

// Order is the aggregate root of the orders service. It is created from a
// checkout and afterwards only changes status.
type Order struct {
	ID              uuid.UUID
	CustomerID      uuid.UUID
	OrderName       string
	ShippingAddress Address
	BillingAddress  Address
	Payment         Payment
	Status          OrderStatus
	Items           []*OrderItem
	Audit
	EventBuffer
}

func NewOrder(id, customerID uuid.UUID, orderName string, shipping, billing Address, payment Payment) (*Order, error) {
	fields := map[string]string{}
	if id == uuid.Nil {
		fields["id"] = "required"
	}
	if customerID == uuid.Nil {
		fields["customerId"] = "required"
	}
	if utf8.RuneCountInString(orderName) < minOrderNameLength {
		fields["orderName"] = "min=5"
	}
	validateAddress("shippingAddress", shipping, fields)
	validateAddress("billingAddress", billing, fields)
	if payment.CardName == "" {
		fields["payment.cardName"] = "required"
	}
	if utf8.RuneCountInString(payment.CVV) != 3 {
		fields["payment.cvv"] = "len=3"
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid("invalid order", fields)
	}

	o := &Order{
		ID:              id,
		CustomerID:      customerID,
		OrderName:       orderName,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Payment:         payment,
		Status:          StatusPending,
	}
	o.raise(OrderCreated{Order: o, At: time.Now().UTC()})
	return o, nil
}

func validateAddress(prefix string, a Address, fields map[string]string) {
	if a.EmailAddress == "" {
		fields[prefix+".emailAddress"] = "required"
	}
	if a.AddressLine == "" {
		fields[prefix+".addressLine"] = "required"
	}
}

func (o *Order) AddItem(productID uuid.UUID, quantity int, price decimal.Decimal) error {
	if quantity <= 0 {
		return apperr.Invalid("invalid order item", map[string]string{"quantity": "gt=0"})
	}
	if price.IsNegative() {
		return apperr.Invalid("invalid order item", map[string]string{"price": "gte=0"})
	}
	o.Items = append(o.Items, &OrderItem{
		ID:        uuid.New(),
		OrderID:   o.ID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     price,
	})
	return nil
}

// TotalPrice sums the item price snapshots.
func (o *Order) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// SetStatus moves the order to next. Setting the current status again
// changes nothing and raises no event.
func (o *Order) SetStatus(next OrderStatus) (bool, error) {
	if !next.Valid() {
		return false, ErrInvalidStatus
	}
	if next == o.Status {
		return false, nil
	}
	if !o.Status.CanTransitionTo(next) {
		return false, apperr.Business("cannot move order from " + o.Status.String() + " to " + next.String())
	}

	from := o.Status
	o.Status = next
	o.raise(OrderUpdated{Order: o, From: from, At: time.Now().UTC()})
	return true, nil
}

// MarkDeleted raises OrderDeleted; removing the row is up to the unit of work.
func (o *Order) MarkDeleted() {
	o.raise(OrderDeleted{OrderID: o.ID, At: time.Now().UTC()})
}

func (o *Order) AuditInfo() *Audit {
	return &o.Audit
}
