// Package pricing computes the authoritative cart total from line items and
// the coupons the discount directory knows about.
package pricing

import (
	"context"
	"log/slog"

	"github.com/fjod/go_eshop/cart-service/internal/discount"
	"github.com/fjod/go_eshop/cart-service/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Engine struct {
	directory discount.Directory
	log       *slog.Logger
}

func NewEngine(directory discount.Directory, log *slog.Logger) *Engine {
	return &Engine{directory: directory, log: log}
}

// ComputeTotal applies product coupons to each unit price, sums the lines and
// then applies global coupons to that subtotal. Every step is clamped at zero.
// An unavailable directory leaves the affected step at full price.
func (e *Engine) ComputeTotal(ctx context.Context, cart *domain.Cart) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range cart.Items {
		unit := clamp(item.Price)

		lookup := e.directory.ProductCoupons(ctx, item.ProductName)
		if lookup.Found {
			unit = apply(unit, productOnly(lookup.Coupons))
		}

		subtotal = subtotal.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	lookup := e.directory.GlobalCoupons(ctx)
	if lookup.Found {
		subtotal = apply(subtotal, globalOnly(lookup.Coupons))
	}

	total := clamp(subtotal)
	e.log.DebugContext(ctx, "cart priced", "user", cart.UserName, "raw_total", cart.RawTotal().String(),
		"total", total.String())
	return total
}

// apply folds coupons over price in percentage-then-fixed order.
func apply(price decimal.Decimal, coupons []discount.Coupon) decimal.Decimal {
	discount.SortCoupons(coupons)
	for _, c := range coupons {
		switch c.Type {
		case discount.Percentage:
			price = price.Mul(decimal.NewFromInt(1).Sub(c.Amount.Div(hundred)))
		case discount.FixedAmount:
			price = price.Sub(c.Amount)
		}
		price = clamp(price)
	}
	return price
}

func clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func productOnly(coupons []discount.Coupon) []discount.Coupon {
	out := make([]discount.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if !c.IsGlobal {
			out = append(out, c)
		}
	}
	return out
}

func globalOnly(coupons []discount.Coupon) []discount.Coupon {
	out := make([]discount.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if c.IsGlobal {
			out = append(out, c)
		}
	}
	return out
}
