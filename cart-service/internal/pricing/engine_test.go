package pricing

import (
	"context"
	"sync"
	"testing"

	"github.com/fjod/go_eshop/cart-service/internal/discount"
	"github.com/fjod/go_eshop/cart-service/internal/domain"
	"github.com/fjod/go_eshop/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type fakeDirectory struct {
	mu       sync.Mutex
	products map[string]discount.Lookup
	global   discount.Lookup
	calls    []string
}

func (f *fakeDirectory) ProductCoupons(_ context.Context, name string) discount.Lookup {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if l, ok := f.products[name]; ok {
		return l
	}
	return discount.Found(nil)
}

func (f *fakeDirectory) GlobalCoupons(context.Context) discount.Lookup {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "*global*")
	return f.global
}

func pct(amount int64) discount.Coupon {
	return discount.Coupon{Type: discount.Percentage, Amount: decimal.NewFromInt(amount)}
}

func fixed(amount int64) discount.Coupon {
	return discount.Coupon{Type: discount.FixedAmount, Amount: decimal.NewFromInt(amount)}
}

func global(c discount.Coupon) discount.Coupon {
	c.IsGlobal = true
	return c
}

func cartOf(items ...domain.CartItem) *domain.Cart {
	c := domain.NewCart("bob")
	c.Items = items
	return c
}

func line(name string, price string, qty int) domain.CartItem {
	return domain.CartItem{
		ProductID:   uuid.New(),
		ProductName: name,
		Price:       decimal.RequireFromString(price),
		Quantity:    qty,
	}
}

func total(t *testing.T, dir discount.Directory, cart *domain.Cart) decimal.Decimal {
	t.Helper()
	return NewEngine(dir, logger.Discard()).ComputeTotal(context.Background(), cart)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestComputeTotal_NoCouponsIsRawTotal(t *testing.T) {
	dir := &fakeDirectory{global: discount.Found(nil)}
	cart := cartOf(line("IPhone X", "950.50", 2), line("Cable", "9.99", 3))

	got := total(t, dir, cart)

	assert.True(t, cart.RawTotal().Equal(got))
	assertDecimal(t, "1930.97", got)
}

func TestComputeTotal_PercentageThenFixed(t *testing.T) {
	dir := &fakeDirectory{
		products: map[string]discount.Lookup{"A": discount.Found([]discount.Coupon{fixed(5), pct(10)})},
		global:   discount.Found(nil),
	}

	assertDecimal(t, "85", total(t, dir, cartOf(line("A", "100", 1))))
}

func TestComputeTotal_GlobalAppliesToDiscountedSubtotal(t *testing.T) {
	dir := &fakeDirectory{
		products: map[string]discount.Lookup{"A": discount.Found([]discount.Coupon{pct(10)})},
		global:   discount.Found([]discount.Coupon{global(pct(5))}),
	}

	assertDecimal(t, "855", total(t, dir, cartOf(line("A", "1000", 1))))
}

func TestComputeTotal_QuantityMultipliesDiscountedUnitPrice(t *testing.T) {
	dir := &fakeDirectory{
		products: map[string]discount.Lookup{"A": discount.Found([]discount.Coupon{fixed(30)})},
		global:   discount.Found([]discount.Coupon{global(fixed(10))}),
	}

	// (100 - 30) * 3 - 10
	assertDecimal(t, "200", total(t, dir, cartOf(line("A", "100", 3))))
}

func TestComputeTotal_OrderWithinGroupsIsByDescendingAmount(t *testing.T) {
	dir := &fakeDirectory{
		products: map[string]discount.Lookup{"A": discount.Found([]discount.Coupon{fixed(10), fixed(60), pct(50)})},
		global:   discount.Found(nil),
	}

	// 100 * 0.5 = 50, -60 clamps to 0, -10 stays 0
	assertDecimal(t, "0", total(t, dir, cartOf(line("A", "100", 1))))
}

func TestComputeTotal_GlobalCouponsIgnoredOnProductStep(t *testing.T) {
	dir := &fakeDirectory{
		products: map[string]discount.Lookup{"A": discount.Found([]discount.Coupon{global(pct(50))})},
		global:   discount.Found([]discount.Coupon{pct(50)}),
	}

	assertDecimal(t, "100", total(t, dir, cartOf(line("A", "100", 1))))
}

func TestComputeTotal_Idempotent(t *testing.T) {
	dir := &fakeDirectory{
		products: map[string]discount.Lookup{
			"A": discount.Found([]discount.Coupon{pct(15), fixed(3)}),
			"B": discount.Found([]discount.Coupon{pct(33)}),
		},
		global: discount.Found([]discount.Coupon{global(pct(7)), global(fixed(2))}),
	}
	cart := cartOf(line("A", "19.99", 3), line("B", "7.25", 4))

	first := total(t, dir, cart)
	second := total(t, dir, cart)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.String(), second.String())
}

func TestComputeTotal_NeverNegative(t *testing.T) {
	dir := &fakeDirectory{
		products: map[string]discount.Lookup{
			"A": discount.Found([]discount.Coupon{fixed(500), fixed(500), pct(150)}),
			"B": discount.Found([]discount.Coupon{pct(100), fixed(1)}),
		},
		global: discount.Found([]discount.Coupon{global(fixed(1000)), global(pct(120))}),
	}
	cart := cartOf(line("A", "100", 2), line("B", "5", 1), line("C", "-3", 1))

	got := total(t, dir, cart)

	assert.False(t, got.IsNegative())
	assertDecimal(t, "0", got)
}

func TestComputeTotal_UnavailableDirectoryIsFullPrice(t *testing.T) {
	dir := &fakeDirectory{
		products: map[string]discount.Lookup{"A": discount.Unavailable()},
		global:   discount.Unavailable(),
	}
	cart := cartOf(line("A", "100", 2), line("B", "50", 1))

	assertDecimal(t, "250", total(t, dir, cart))
}

func TestComputeTotal_ProductUnavailableStillAppliesGlobal(t *testing.T) {
	dir := &fakeDirectory{
		products: map[string]discount.Lookup{"A": discount.Unavailable()},
		global:   discount.Found([]discount.Coupon{global(pct(10))}),
	}

	assertDecimal(t, "90", total(t, dir, cartOf(line("A", "100", 1))))
}

func TestComputeTotal_EmptyCart(t *testing.T) {
	dir := &fakeDirectory{global: discount.Found([]discount.Coupon{global(fixed(10))})}

	assertDecimal(t, "0", total(t, dir, cartOf()))
}

func TestComputeTotal_QueriesProductsBeforeGlobal(t *testing.T) {
	dir := &fakeDirectory{global: discount.Found(nil)}

	total(t, dir, cartOf(line("A", "1", 1), line("B", "1", 1)))

	assert.Equal(t, []string{"A", "B", "*global*"}, dir.calls)
}
