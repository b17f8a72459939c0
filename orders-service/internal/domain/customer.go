package domain

import (
	"strings"

	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/google/uuid"
)

type Customer struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Audit
}

func NewCustomer(id uuid.UUID, name, email string) (*Customer, error) {
	fields := map[string]string{}
	if id == uuid.Nil {
		fields["customerId"] = "required"
	}
	if strings.TrimSpace(name) == "" {
		fields["name"] = "required"
	}
	if strings.TrimSpace(email) == "" {
		fields["email"] = "required"
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid("invalid customer", fields)
	}
	return &Customer{ID: id, Name: name, Email: email}, nil
}
