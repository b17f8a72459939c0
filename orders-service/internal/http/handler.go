package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_eshop/orders-service/internal/domain"
	"github.com/fjod/go_eshop/orders-service/internal/repository"
	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/fjod/go_eshop/pkg/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type OrderService interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, page repository.Page) ([]*domain.Order, int64, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type OrderHandler struct {
	orders   OrderService
	validate *validator.Validate
	log      *slog.Logger
	timeout  time.Duration
}

func NewOrderHandler(orders OrderService, log *slog.Logger, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		validate: httpx.NewValidator(),
		log:      log,
		timeout:  timeout,
	}
}

func (h *OrderHandler) Routes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/customer/{customerId}", h.ListOrdersByCustomer)
		r.Get("/{orderId}", h.GetOrder)
		r.Put("/{orderId}", h.UpdateStatus)
		r.Delete("/{orderId}", h.DeleteOrder)
	})
}

type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderDTO struct {
	ID              uuid.UUID       `json:"id"`
	CustomerID      uuid.UUID       `json:"customerId"`
	OrderName       string          `json:"orderName"`
	ShippingAddress domain.Address  `json:"shippingAddress"`
	BillingAddress  domain.Address  `json:"billingAddress"`
	Payment         domain.Payment  `json:"payment"`
	Status          int             `json:"status"`
	StatusName      string          `json:"statusName"`
	Items           []OrderItemDTO  `json:"orderItems"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	CreatedAt       time.Time       `json:"createdAt"`
	LastModified    time.Time       `json:"lastModified"`
}

type PagedOrders struct {
	PageNumber int        `json:"pageNumber"`
	PageSize   int        `json:"pageSize"`
	Count      int64      `json:"count"`
	Data       []OrderDTO `json:"data"`
}

type UpdateStatusRequest struct {
	Status *int `json:"status" validate:"required"`
}

func toDTO(o *domain.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return OrderDTO{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		OrderName:       o.OrderName,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Payment:         o.Payment,
		Status:          int(o.Status),
		StatusName:      o.Status.String(),
		Items:           items,
		TotalPrice:      o.TotalPrice(),
		CreatedAt:       o.CreatedAt,
		LastModified:    o.LastModified,
	}
}

func toDTOs(orders []*domain.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toDTO(o))
	}
	return out
}

// GET /orders?pageNumber=&pageSize=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := pageFromQuery(r)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	orders, total, err := h.orders.ListOrders(ctx, page)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, PagedOrders{
		PageNumber: page.Number,
		PageSize:   page.Size,
		Count:      total,
		Data:       toDTOs(orders),
	})
}

// GET /orders/{orderId}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := pathUUID(r, "orderId")
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, toDTO(order))
}

// GET /orders/customer/{customerId}
func (h *OrderHandler) ListOrdersByCustomer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID, err := pathUUID(r, "customerId")
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	orders, err := h.orders.ListOrdersByCustomer(ctx, customerID)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, toDTOs(orders))
}

// PUT /orders/{orderId}
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := pathUUID(r, "orderId")
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	var req UpdateStatusRequest
	if err := httpx.Decode(r, h.validate, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	if err := h.orders.UpdateStatus(ctx, id, domain.OrderStatus(*req.Status)); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, httpx.SuccessResponse{IsSuccess: true})
}

// DELETE /orders/{orderId}
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := pathUUID(r, "orderId")
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	if err := h.orders.DeleteOrder(ctx, id); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, httpx.SuccessResponse{IsSuccess: true})
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid "+name, map[string]string{name: "uuid"})
	}
	return id, nil
}

func pageFromQuery(r *http.Request) (repository.Page, error) {
	page := repository.Page{Number: 1, Size: defaultPageSize}
	fields := map[string]string{}

	q := r.URL.Query()
	if raw := q.Get("pageNumber"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields["pageNumber"] = "gte=1"
		}
		page.Number = n
	}
	if raw := q.Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			fields["pageSize"] = "gte=1,lte=100"
		}
		page.Size = n
	}

	if len(fields) > 0 {
		return repository.Page{}, apperr.Invalid("invalid paging", fields)
	}
	return page, nil
}
