package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_eshop/cart-service/internal/domain"
)

// CartCache is a read-through copy of stored carts. Mutations delete the
// entry and the next read repopulates it.
type CartCache interface {
	Get(ctx context.Context, userName string) (*domain.Cart, error)
	Set(ctx context.Context, userName string, cart *domain.Cart) error
	Delete(ctx context.Context, userName string) error
}

var ErrCacheMiss = errors.New("cache miss")
