package repository_test

import (
	"context"
	"testing"

	"github.com/fjod/go_eshop/discount-service/internal/domain"
	db "github.com/fjod/go_eshop/discount-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *db.Repository {
	// Use in-memory database for tests
	repo, err := db.NewRepository(":memory:")
	require.NoError(t, err)

	require.NoError(t, repo.RunMigrations("./migrations"))
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestListForProduct_SeededCoupon(t *testing.T) {
	repo := setupTestDB(t)

	coupons, err := repo.ListForProduct(context.Background(), "IPhone X")
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, 10.0, coupons[0].Amount)
	assert.Equal(t, domain.Percentage, coupons[0].Type)
	assert.False(t, coupons[0].IsGlobal)
}

func TestListForProduct_OrdersPercentageFirstThenAmountDesc(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for _, c := range []*domain.Coupon{
		{ProductName: "Laptop", Amount: 5, Type: domain.FixedAmount},
		{ProductName: "Laptop", Amount: 10, Type: domain.Percentage},
		{ProductName: "Laptop", Amount: 20, Type: domain.FixedAmount},
		{ProductName: "Laptop", Amount: 25, Type: domain.Percentage},
	} {
		require.NoError(t, repo.CreateCoupon(ctx, c))
		require.NotZero(t, c.ID)
	}

	coupons, err := repo.ListForProduct(ctx, "Laptop")
	require.NoError(t, err)
	require.Len(t, coupons, 4)

	got := make([][2]float64, len(coupons))
	for i, c := range coupons {
		got[i] = [2]float64{float64(c.Type), c.Amount}
	}
	assert.Equal(t, [][2]float64{{0, 25}, {0, 10}, {1, 20}, {1, 5}}, got)
}

func TestListForProduct_UnknownProductIsEmpty(t *testing.T) {
	repo := setupTestDB(t)

	coupons, err := repo.ListForProduct(context.Background(), "Nokia")
	require.NoError(t, err)
	assert.Empty(t, coupons)
}

func TestListGlobal(t *testing.T) {
	repo := setupTestDB(t)

	coupons, err := repo.ListGlobal(context.Background())
	require.NoError(t, err)
	require.Len(t, coupons, 2)
	assert.Equal(t, domain.Percentage, coupons[0].Type)
	assert.Equal(t, domain.FixedAmount, coupons[1].Type)
	for _, c := range coupons {
		assert.True(t, c.IsGlobal)
		assert.Empty(t, c.ProductName)
	}
}

func TestCouponCRUD(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	c := &domain.Coupon{ProductName: "Pixel", Description: "launch", Amount: 15, Type: domain.Percentage}
	require.NoError(t, repo.CreateCoupon(ctx, c))

	got, err := repo.GetCoupon(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	c.Amount = 30
	require.NoError(t, repo.UpdateCoupon(ctx, c))
	got, err = repo.GetCoupon(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.Amount)

	require.NoError(t, repo.DeleteCoupon(ctx, c.ID))
	_, err = repo.GetCoupon(ctx, c.ID)
	assert.ErrorIs(t, err, db.ErrCouponNotFound)

	assert.ErrorIs(t, repo.DeleteCoupon(ctx, c.ID), db.ErrCouponNotFound)
	assert.ErrorIs(t, repo.UpdateCoupon(ctx, c), db.ErrCouponNotFound)
}

func TestListAll(t *testing.T) {
	repo := setupTestDB(t)

	coupons, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, coupons, 4)
}
