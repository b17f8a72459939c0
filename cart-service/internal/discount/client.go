package discount

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fjod/go_eshop/pkg/circuitbreaker"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// couponDTO mirrors the discount-service JSON representation.
type couponDTO struct {
	ID          int64   `json:"id"`
	ProductName string  `json:"productName"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        int     `json:"type"`
	IsGlobal    bool    `json:"isGlobal"`
}

// Client queries the discount-service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	log        *slog.Logger
}

type ClientOption func(*Client)

// WithBreaker short-circuits lookups to Unavailable while the breaker is open.
func WithBreaker(b *circuitbreaker.Breaker) ClientOption {
	return func(c *Client) { c.breaker = b }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ProductCoupons(ctx context.Context, productName string) Lookup {
	return c.lookup(ctx, productName, false)
}

func (c *Client) GlobalCoupons(ctx context.Context) Lookup {
	return c.lookup(ctx, "", true)
}

func (c *Client) lookup(ctx context.Context, productName string, includeGlobal bool) Lookup {
	var coupons []Coupon
	call := func() error {
		var err error
		coupons, err = c.getDiscounts(ctx, productName, includeGlobal)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		c.log.WarnContext(ctx, "discount lookup unavailable, pricing without coupons",
			"product", productName, "include_global", includeGlobal, "error", err)
		return Unavailable()
	}
	return Found(coupons)
}

func (c *Client) getDiscounts(ctx context.Context, productName string, includeGlobal bool) ([]Coupon, error) {
	q := url.Values{}
	if productName != "" {
		q.Set("productName", productName)
	}
	q.Set("includeGlobal", strconv.FormatBool(includeGlobal))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/discounts?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build discount request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discount request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discount service returned %d", resp.StatusCode)
	}

	var dtos []couponDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("decode discounts: %w", err)
	}

	coupons := make([]Coupon, 0, len(dtos))
	for _, d := range dtos {
		coupons = append(coupons, Coupon{
			ID:          d.ID,
			ProductName: d.ProductName,
			Description: d.Description,
			Amount:      decimal.NewFromFloat(d.Amount),
			Type:        CouponType(d.Type),
			IsGlobal:    d.IsGlobal,
		})
	}
	return coupons, nil
}
