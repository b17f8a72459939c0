package domain

import (
	"fmt"

	"github.com/fjod/go_eshop/pkg/apperr"
)

// OrderStatus values match the integers clients send and receive.
type OrderStatus int

const (
	StatusPending   OrderStatus = 2
	StatusSubmitted OrderStatus = 3
	StatusCancelled OrderStatus = 4
	StatusConfirmed OrderStatus = 5
	StatusCompleted OrderStatus = 6
	StatusShipped   OrderStatus = 7
)

var statusNames = map[OrderStatus]string{
	StatusPending:   "Pending",
	StatusSubmitted: "Submitted",
	StatusCancelled: "Cancelled",
	StatusConfirmed: "Confirmed",
	StatusCompleted: "Completed",
	StatusShipped:   "Shipped",
}

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusSubmitted, StatusConfirmed, StatusCancelled},
	StatusSubmitted: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusCompleted},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

var ErrInvalidStatus = apperr.Invalid("invalid order status", map[string]string{"status": "oneof=2 3 4 5 6 7"})

func (s OrderStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s OrderStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("OrderStatus(%d)", int(s))
}

func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransitionTo reports whether an order in s may move to next.
// Staying in the same status is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus reads the stored string form.
func ParseOrderStatus(name string) (OrderStatus, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", name)
}
