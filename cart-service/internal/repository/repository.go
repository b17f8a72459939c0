package repository

import (
	"context"

	"github.com/fjod/go_eshop/cart-service/internal/domain"
	"github.com/fjod/go_eshop/pkg/apperr"
)

var ErrCartNotFound = apperr.NotFound("cart not found")

// CartRepository stores one cart document per user name.
type CartRepository interface {
	GetCart(ctx context.Context, userName string) (*domain.Cart, error)
	// UpsertCart replaces the whole document; concurrent writers follow last-write-wins.
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, userName string) error
}
