package discount

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_eshop/pkg/circuitbreaker"
	"github.com/fjod/go_eshop/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ProductCoupons(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discounts", r.URL.Path)
		assert.Equal(t, "IPhone X", r.URL.Query().Get("productName"))
		assert.Equal(t, "false", r.URL.Query().Get("includeGlobal"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"productName":"IPhone X","description":"10% off","amount":10,"type":0,"isGlobal":false}]`))
	}))
	defer srv.Close()

	lookup := NewClient(srv.URL, time.Second, logger.Discard()).ProductCoupons(context.Background(), "IPhone X")

	require.True(t, lookup.Found)
	require.Len(t, lookup.Coupons, 1)
	assert.Equal(t, Percentage, lookup.Coupons[0].Type)
	assert.True(t, decimal.NewFromInt(10).Equal(lookup.Coupons[0].Amount))
}

func TestClient_GlobalCoupons(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("productName"))
		assert.Equal(t, "true", r.URL.Query().Get("includeGlobal"))
		_, _ = w.Write([]byte(`[{"id":3,"amount":5,"type":0,"isGlobal":true},{"id":4,"amount":10,"type":1,"isGlobal":true}]`))
	}))
	defer srv.Close()

	lookup := NewClient(srv.URL, time.Second, logger.Discard()).GlobalCoupons(context.Background())

	require.True(t, lookup.Found)
	require.Len(t, lookup.Coupons, 2)
	assert.True(t, lookup.Coupons[1].IsGlobal)
}

func TestClient_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	lookup := NewClient(srv.URL, time.Second, logger.Discard()).ProductCoupons(context.Background(), "IPhone X")

	assert.False(t, lookup.Found)
	assert.Empty(t, lookup.Coupons)
}

func TestClient_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	lookup := NewClient(url, 200*time.Millisecond, logger.Discard()).ProductCoupons(context.Background(), "IPhone X")

	assert.False(t, lookup.Found)
}

func TestClient_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	lookup := NewClient(srv.URL, 20*time.Millisecond, logger.Discard()).ProductCoupons(context.Background(), "IPhone X")

	assert.False(t, lookup.Found)
}

func TestClient_BreakerStopsCallingDirectory(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	breaker := circuitbreaker.New("discount", circuitbreaker.Policy{
		TripThreshold:   50,
		ActiveThreshold: 2,
		TrackingPeriod:  time.Minute,
		ResetInterval:   time.Minute,
	}, nil)
	client := NewClient(srv.URL, time.Second, logger.Discard(), WithBreaker(breaker))

	for range 5 {
		assert.False(t, client.ProductCoupons(context.Background(), "IPhone X").Found)
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
}

func TestSortCoupons(t *testing.T) {
	coupons := []Coupon{
		{ID: 1, Type: FixedAmount, Amount: decimal.NewFromInt(5)},
		{ID: 2, Type: Percentage, Amount: decimal.NewFromInt(10)},
		{ID: 3, Type: FixedAmount, Amount: decimal.NewFromInt(20)},
		{ID: 4, Type: Percentage, Amount: decimal.NewFromInt(25)},
		{ID: 5, Type: Percentage, Amount: decimal.NewFromInt(10)},
	}

	SortCoupons(coupons)

	ids := make([]int64, len(coupons))
	for i, c := range coupons {
		ids[i] = c.ID
	}
	assert.Equal(t, []int64{4, 2, 5, 3, 1}, ids)
}
