package http

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/fjod/go_eshop/discount-service/internal/domain"
	"github.com/fjod/go_eshop/discount-service/internal/repository"
	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/fjod/go_eshop/pkg/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type CouponHandler struct {
	repo     repository.CouponRepository
	validate *validator.Validate
	log      *slog.Logger
	timeout  time.Duration
}

func NewCouponHandler(repo repository.CouponRepository, log *slog.Logger, timeout time.Duration) *CouponHandler {
	return &CouponHandler{
		repo:     repo,
		validate: httpx.NewValidator(),
		log:      log,
		timeout:  timeout,
	}
}

func (h *CouponHandler) Routes(r chi.Router) {
	r.Get("/discounts", h.GetDiscounts)
	r.Route("/coupons", func(r chi.Router) {
		r.Get("/", h.ListCoupons)
		r.Post("/", h.CreateCoupon)
		r.Get("/{id}", h.GetCoupon)
		r.Put("/{id}", h.UpdateCoupon)
		r.Delete("/{id}", h.DeleteCoupon)
	})
}

type CouponRequestDTO struct {
	ProductName string  `json:"productName"`
	Description string  `json:"description" validate:"max=256"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	Type        *int    `json:"type" validate:"required,oneof=0 1"`
	IsGlobal    bool    `json:"isGlobal"`
}

func (d CouponRequestDTO) toDomain() *domain.Coupon {
	return &domain.Coupon{
		ProductName: d.ProductName,
		Description: d.Description,
		Amount:      d.Amount,
		Type:        domain.DiscountType(*d.Type),
		IsGlobal:    d.IsGlobal,
	}
}

// GET /discounts?productName=&includeGlobal=
func (h *CouponHandler) GetDiscounts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productName := r.URL.Query().Get("productName")
	includeGlobal := false
	if raw := r.URL.Query().Get("includeGlobal"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(h.log, w, r, apperr.Invalid("invalid query", map[string]string{"includeGlobal": "boolean"}))
			return
		}
		includeGlobal = v
	}

	coupons := make([]*domain.Coupon, 0)
	if productName != "" {
		product, err := h.repo.ListForProduct(ctx, productName)
		if err != nil {
			httpx.WriteError(h.log, w, r, err)
			return
		}
		coupons = append(coupons, product...)
	}
	if includeGlobal {
		global, err := h.repo.ListGlobal(ctx)
		if err != nil {
			httpx.WriteError(h.log, w, r, err)
			return
		}
		coupons = append(coupons, global...)
	}

	sort.SliceStable(coupons, func(i, j int) bool {
		if coupons[i].Type != coupons[j].Type {
			return coupons[i].Type < coupons[j].Type
		}
		return coupons[i].Amount > coupons[j].Amount
	})

	h.log.DebugContext(ctx, "discounts resolved", "product", productName, "include_global", includeGlobal,
		"count", len(coupons))
	httpx.RespondJSON(w, http.StatusOK, coupons)
}

// GET /coupons
func (h *CouponHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	coupons, err := h.repo.ListAll(ctx)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, coupons)
}

// GET /coupons/{id}
func (h *CouponHandler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := couponID(r)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	coupon, err := h.repo.GetCoupon(ctx, id)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, coupon)
}

// POST /coupons
func (h *CouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CouponRequestDTO
	if err := httpx.Decode(r, h.validate, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	coupon := req.toDomain()
	if err := coupon.Validate(); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	if err := h.repo.CreateCoupon(ctx, coupon); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	h.log.InfoContext(ctx, "coupon created", "id", coupon.ID, "product", coupon.ProductName, "global", coupon.IsGlobal)
	httpx.RespondJSON(w, http.StatusCreated, coupon)
}

// PUT /coupons/{id}
func (h *CouponHandler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := couponID(r)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	var req CouponRequestDTO
	if err := httpx.Decode(r, h.validate, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	coupon := req.toDomain()
	coupon.ID = id
	if err := coupon.Validate(); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	if err := h.repo.UpdateCoupon(ctx, coupon); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, coupon)
}

// DELETE /coupons/{id}
func (h *CouponHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := couponID(r)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	if err := h.repo.DeleteCoupon(ctx, id); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, httpx.SuccessResponse{IsSuccess: true})
}

func couponID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("invalid coupon id", map[string]string{"id": "numeric"})
	}
	return id, nil
}
