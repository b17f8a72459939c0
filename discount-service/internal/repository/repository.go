package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_eshop/discount-service/internal/domain"
	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

var ErrCouponNotFound = apperr.NotFound("coupon not found")

type CouponRepository interface {
	// ListForProduct returns the non-global coupons of a product.
	ListForProduct(ctx context.Context, productName string) ([]*domain.Coupon, error)
	ListGlobal(ctx context.Context) ([]*domain.Coupon, error)
	ListAll(ctx context.Context) ([]*domain.Coupon, error)
	GetCoupon(ctx context.Context, id int64) (*domain.Coupon, error)
	CreateCoupon(ctx context.Context, c *domain.Coupon) error
	UpdateCoupon(ctx context.Context, c *domain.Coupon) error
	DeleteCoupon(ctx context.Context, id int64) error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// sqlite serializes writers; one connection also keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const couponColumns = `id, product_name, description, amount, type, is_global`

// Percentage coupons sort before fixed ones, larger amounts first.
const couponOrder = `ORDER BY type ASC, amount DESC, id ASC`

func (r *Repository) ListForProduct(ctx context.Context, productName string) ([]*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons
	          WHERE product_name = ? AND is_global = 0 ` + couponOrder
	return r.query(ctx, query, productName)
}

func (r *Repository) ListGlobal(ctx context.Context) ([]*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE is_global = 1 ` + couponOrder
	return r.query(ctx, query)
}

func (r *Repository) ListAll(ctx context.Context) ([]*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY id`
	return r.query(ctx, query)
}

func (r *Repository) GetCoupon(ctx context.Context, id int64) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = ?`

	var c domain.Coupon
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.ProductName,
		&c.Description,
		&c.Amount,
		&c.Type,
		&c.IsGlobal,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query coupon by id: %w", err)
	}
	return &c, nil
}

func (r *Repository) CreateCoupon(ctx context.Context, c *domain.Coupon) error {
	query := `INSERT INTO coupons (product_name, description, amount, type, is_global)
	          VALUES (?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, c.ProductName, c.Description, c.Amount, c.Type, c.IsGlobal)
	if err != nil {
		return fmt.Errorf("insert coupon: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read coupon id: %w", err)
	}
	c.ID = id
	return nil
}

func (r *Repository) UpdateCoupon(ctx context.Context, c *domain.Coupon) error {
	query := `UPDATE coupons
	          SET product_name = ?, description = ?, amount = ?, type = ?, is_global = ?
	          WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, c.ProductName, c.Description, c.Amount, c.Type, c.IsGlobal, c.ID)
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}
	return requireAffected(res)
}

func (r *Repository) DeleteCoupon(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM coupons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	return requireAffected(res)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]*domain.Coupon, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query coupons: %w", err)
	}
	defer rows.Close()

	coupons := make([]*domain.Coupon, 0)
	for rows.Next() {
		c := &domain.Coupon{}
		if err := rows.Scan(
			&c.ID,
			&c.ProductName,
			&c.Description,
			&c.Amount,
			&c.Type,
			&c.IsGlobal,
		); err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return coupons, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrCouponNotFound
	}
	return nil
}
