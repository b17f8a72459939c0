package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_eshop/cart-service/internal/checkout"
	"github.com/fjod/go_eshop/cart-service/internal/domain"
	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/fjod/go_eshop/pkg/events"
	"github.com/fjod/go_eshop/pkg/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartService interface {
	GetCart(ctx context.Context, userName string) (*domain.Cart, error)
	StoreCart(ctx context.Context, userName string, items []domain.CartItem) (*domain.Cart, error)
	AddItem(ctx context.Context, userName string, item domain.CartItem) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userName string, productID uuid.UUID, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userName string, productID uuid.UUID) (*domain.Cart, error)
	DeleteCart(ctx context.Context, userName string) error
}

type Checkouter interface {
	Checkout(ctx context.Context, userName string, req checkout.Request) (events.CheckoutEvent, error)
}

type CartHandler struct {
	carts    CartService
	checkout Checkouter
	validate *validator.Validate
	log      *slog.Logger
	timeout  time.Duration
}

func NewCartHandler(carts CartService, co Checkouter, log *slog.Logger, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:    carts,
		checkout: co,
		validate: httpx.NewValidator(),
		log:      log,
		timeout:  timeout,
	}
}

func (h *CartHandler) Routes(r chi.Router) {
	r.Route("/baskets/{userName}", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/", h.StoreCart)
		r.Delete("/", h.DeleteCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{productId}", h.UpdateQuantity)
		r.Delete("/items/{productId}", h.RemoveItem)
		r.Post("/checkout", h.Checkout)
	})
}

type CartItemDTO struct {
	ProductID   uuid.UUID       `json:"productId" validate:"required"`
	ProductName string          `json:"productName" validate:"required,max=100"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"required,gte=1"`
	Color       string          `json:"color" validate:"max=30"`
}

func (d CartItemDTO) toDomain() domain.CartItem {
	return domain.CartItem{
		ProductID:   d.ProductID,
		ProductName: d.ProductName,
		Price:       d.Price,
		Quantity:    d.Quantity,
		Color:       d.Color,
	}
}

type StoreCartRequest struct {
	Items []CartItemDTO `json:"items" validate:"dive"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

type CartResponse struct {
	UserName           string            `json:"userName"`
	Items              []domain.CartItem `json:"items"`
	TotalPrice         decimal.Decimal   `json:"totalPrice"`
	TotalAfterDiscount decimal.Decimal   `json:"totalAfterDiscount"`
}

func toResponse(c *domain.Cart) CartResponse {
	items := c.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return CartResponse{
		UserName:           c.UserName,
		Items:              items,
		TotalPrice:         c.RawTotal(),
		TotalAfterDiscount: c.TotalAfterDiscount,
	}
}

// GET /baskets/{userName}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.GetCart(ctx, chi.URLParam(r, "userName"))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, toResponse(cart))
}

// POST /baskets/{userName}
func (h *CartHandler) StoreCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req StoreCartRequest
	if err := httpx.Decode(r, h.validate, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	items := make([]domain.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, it.toDomain())
	}

	cart, err := h.carts.StoreCart(ctx, chi.URLParam(r, "userName"), items)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, toResponse(cart))
}

// DELETE /baskets/{userName}
func (h *CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.DeleteCart(ctx, chi.URLParam(r, "userName")); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, httpx.SuccessResponse{IsSuccess: true})
}

// POST /baskets/{userName}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CartItemDTO
	if err := httpx.Decode(r, h.validate, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	cart, err := h.carts.AddItem(ctx, chi.URLParam(r, "userName"), req.toDomain())
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, toResponse(cart))
}

// PUT /baskets/{userName}/items/{productId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, err := productID(r)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	var req UpdateQuantityRequest
	if err := httpx.Decode(r, h.validate, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, chi.URLParam(r, "userName"), productID, req.Quantity)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, toResponse(cart))
}

// DELETE /baskets/{userName}/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, err := productID(r)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	cart, err := h.carts.RemoveItem(ctx, chi.URLParam(r, "userName"), productID)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, toResponse(cart))
}

// POST /baskets/{userName}/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req checkout.Request
	if err := httpx.Decode(r, h.validate, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	if _, err := h.checkout.Checkout(ctx, chi.URLParam(r, "userName"), req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, httpx.SuccessResponse{IsSuccess: true})
}

func productID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid product id", map[string]string{"productId": "uuid"})
	}
	return id, nil
}
