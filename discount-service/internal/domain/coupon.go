package domain

import (
	"strings"

	"github.com/fjod/go_eshop/pkg/apperr"
)

type DiscountType int

const (
	Percentage  DiscountType = 0
	FixedAmount DiscountType = 1
)

func (t DiscountType) Valid() bool {
	return t == Percentage || t == FixedAmount
}

// Coupon is a discount on one product, or on the whole cart when IsGlobal is
// set. Percentage amounts are 0-100; fixed amounts are in currency units.
type Coupon struct {
	ID          int64        `json:"id"`
	ProductName string       `json:"productName"`
	Description string       `json:"description"`
	Amount      float64      `json:"amount"`
	Type        DiscountType `json:"type"`
	IsGlobal    bool         `json:"isGlobal"`
}

func (c *Coupon) Validate() error {
	fields := map[string]string{}
	if !c.Type.Valid() {
		fields["type"] = "oneof"
	}
	if c.Amount < 0 {
		fields["amount"] = "gte"
	}
	if c.Type == Percentage && c.Amount > 100 {
		fields["amount"] = "lte"
	}
	name := strings.TrimSpace(c.ProductName)
	if c.IsGlobal && name != "" {
		fields["productName"] = "excluded_with_global"
	}
	if !c.IsGlobal && name == "" {
		fields["productName"] = "required"
	}
	if len(fields) > 0 {
		return apperr.Invalid("invalid coupon", fields)
	}
	return nil
}
