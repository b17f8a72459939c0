package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_eshop/cart-service/internal/cache"
	"github.com/fjod/go_eshop/cart-service/internal/domain"
	"github.com/fjod/go_eshop/cart-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const cacheOpTimeout = time.Second

// Pricer computes the discounted total of a cart.
type Pricer interface {
	ComputeTotal(ctx context.Context, cart *domain.Cart) decimal.Decimal
}

type CartService struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	pricer Pricer
	log    *slog.Logger
	sfg    singleflight.Group
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, pricer Pricer, log *slog.Logger) *CartService {
	return &CartService{
		repo:   repo,
		cache:  cache,
		pricer: pricer,
		log:    log,
	}
}

// GetCart reads through the cache. Concurrent misses for the same user share
// one repository read.
func (s *CartService) GetCart(ctx context.Context, userName string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userName, func() (any, error) {
		cart, err := s.cache.Get(ctx, userName)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get failed", "user", userName, "error", err)
		}

		cart, err = s.repo.GetCart(ctx, userName)
		if err != nil {
			return nil, err
		}

		go func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
			defer cancel()
			if err := s.cache.Set(ctx, userName, cart); err != nil {
				s.log.WarnContext(ctx, "cache set failed", "user", userName, "error", err)
			}
		}(context.WithoutCancel(ctx))

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// LoadCart reads the stored cart and skips the cache, so a stale cached copy
// of a deleted cart is never checked out.
func (s *CartService) LoadCart(ctx context.Context, userName string) (*domain.Cart, error) {
	return s.repo.GetCart(ctx, userName)
}

// StoreCart replaces the user's cart with the given items.
func (s *CartService) StoreCart(ctx context.Context, userName string, items []domain.CartItem) (*domain.Cart, error) {
	cart := domain.NewCart(userName)
	if existing, err := s.repo.GetCart(ctx, userName); err == nil {
		cart.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, repository.ErrCartNotFound) {
		return nil, err
	}

	for _, item := range items {
		if err := cart.AddItem(item); err != nil {
			return nil, err
		}
	}
	return cart, s.save(ctx, cart)
}

// AddItem creates the cart on first use.
func (s *CartService) AddItem(ctx context.Context, userName string, item domain.CartItem) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userName)
	if errors.Is(err, repository.ErrCartNotFound) {
		cart = domain.NewCart(userName)
	} else if err != nil {
		return nil, err
	}

	if err := cart.AddItem(item); err != nil {
		return nil, err
	}
	return cart, s.save(ctx, cart)
}

func (s *CartService) UpdateQuantity(ctx context.Context, userName string, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userName)
	if err != nil {
		return nil, err
	}
	if err := cart.UpdateQuantity(productID, quantity); err != nil {
		return nil, err
	}
	return cart, s.save(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, userName string, productID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userName)
	if err != nil {
		return nil, err
	}
	if err := cart.RemoveItem(productID); err != nil {
		return nil, err
	}
	return cart, s.save(ctx, cart)
}

func (s *CartService) DeleteCart(ctx context.Context, userName string) error {
	if err := s.repo.DeleteCart(ctx, userName); err != nil {
		return err
	}
	s.InvalidateCache(ctx, userName)
	return nil
}

// InvalidateCache drops the cached copy. Failures are logged only; the entry
// expires on its own.
func (s *CartService) InvalidateCache(ctx context.Context, userName string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, userName); err != nil {
		s.log.WarnContext(ctx, "cache invalidate failed", "user", userName, "error", err)
	}
}

// save reprices the cart and writes it back.
func (s *CartService) save(ctx context.Context, cart *domain.Cart) error {
	cart.TotalAfterDiscount = s.pricer.ComputeTotal(ctx, cart)
	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		s.log.ErrorContext(ctx, "cart save failed", "user", cart.UserName, "error", err)
		return err
	}
	s.InvalidateCache(ctx, cart.UserName)

	s.log.InfoContext(ctx, "cart saved", "user", cart.UserName, "items", len(cart.Items),
		"total_after_discount", cart.TotalAfterDiscount.String())
	return nil
}
