package discount

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

type CouponType int

const (
	Percentage  CouponType = 0
	FixedAmount CouponType = 1
)

type Coupon struct {
	ID          int64
	ProductName string
	Description string
	Amount      decimal.Decimal
	Type        CouponType
	IsGlobal    bool
}

// Lookup is the answer of a Directory query. A lookup that is not Found
// means the directory could not be asked and the caller prices at full price.
type Lookup struct {
	Coupons []Coupon
	Found   bool
}

func Found(coupons []Coupon) Lookup {
	return Lookup{Coupons: coupons, Found: true}
}

func Unavailable() Lookup {
	return Lookup{}
}

// Directory answers which coupons apply. Implementations never return an
// error; failures are reported as Unavailable.
type Directory interface {
	// ProductCoupons returns the non-global coupons of one product.
	ProductCoupons(ctx context.Context, productName string) Lookup
	// GlobalCoupons returns the cart-wide coupons.
	GlobalCoupons(ctx context.Context) Lookup
}

// SortCoupons orders percentage coupons before fixed ones, each group by
// descending amount. Equal coupons keep their relative order.
func SortCoupons(coupons []Coupon) {
	sort.SliceStable(coupons, func(i, j int) bool {
		if coupons[i].Type != coupons[j].Type {
			return coupons[i].Type < coupons[j].Type
		}
		return coupons[i].Amount.GreaterThan(coupons[j].Amount)
	})
}
