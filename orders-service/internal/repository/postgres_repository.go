package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_eshop/orders-service/internal/domain"
	"github.com/fjod/go_eshop/orders-service/internal/uow"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(ctx context.Context, cred *Credentials) (*Repository, error) {
	sslMode := cred.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName,
		sslMode)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.PingContext(ctx); e2 != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// Commit writes a unit of work in one transaction.
func (r *Repository) Commit(ctx context.Context, cs uow.ChangeSet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if cs.ProcessedEventID != uuid.Nil {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO processed_events (event_id) VALUES ($1) ON CONFLICT (event_id) DO NOTHING`,
			cs.ProcessedEventID)
		if err != nil {
			return fmt.Errorf("record processed event: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return uow.ErrEventAlreadyProcessed
		}
	}

	for _, c := range cs.Customers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO customers (id, name, email, created_at, created_by, last_modified, last_modified_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (id) DO NOTHING`,
			c.ID, c.Name, c.Email, c.CreatedAt, c.CreatedBy, c.LastModified, c.LastModifiedBy); err != nil {
			return fmt.Errorf("upsert customer: %w", err)
		}
	}

	for _, ch := range cs.Orders {
		switch ch.State {
		case uow.Added:
			err = insertOrder(ctx, tx, ch.Order)
		case uow.Modified:
			err = updateOrder(ctx, tx, ch.Order)
		case uow.Deleted:
			err = deleteOrder(ctx, tx, ch.Order.ID)
		}
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	shipping, billing, payment, err := marshalValueObjects(o)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, order_name, shipping_address, billing_address, payment, status,
		                     created_at, created_by, last_modified, last_modified_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.CustomerID, o.OrderName, shipping, billing, payment, o.Status.String(),
		o.CreatedAt, o.CreatedBy, o.LastModified, o.LastModifiedBy)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, price,
			                          created_at, created_by, last_modified, last_modified_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			it.ID, o.ID, it.ProductID, it.Quantity, it.Price,
			it.CreatedAt, it.CreatedBy, it.LastModified, it.LastModifiedBy); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func updateOrder(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	shipping, billing, payment, err := marshalValueObjects(o)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE orders
		 SET order_name = $2, shipping_address = $3, billing_address = $4, payment = $5, status = $6,
		     last_modified = $7, last_modified_by = $8
		 WHERE id = $1`,
		o.ID, o.OrderName, shipping, billing, payment, o.Status.String(), o.LastModified, o.LastModifiedBy)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func deleteOrder(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func marshalValueObjects(o *domain.Order) (shipping, billing, payment []byte, err error) {
	if shipping, err = json.Marshal(o.ShippingAddress); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal shipping address: %w", err)
	}
	if billing, err = json.Marshal(o.BillingAddress); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal billing address: %w", err)
	}
	if payment, err = json.Marshal(o.Payment); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal payment: %w", err)
	}
	return shipping, billing, payment, nil
}

const orderColumns = `id, customer_id, order_name, shipping_address, billing_address, payment, status,
	created_at, created_by, last_modified, last_modified_by`

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	if err := r.loadItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) ListOrders(ctx context.Context, page Page) ([]*domain.Order, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	orders, err := r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY order_name, created_at, id LIMIT $1 OFFSET $2`,
		page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *Repository) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC, id`,
		customerID)
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var (
		o                          domain.Order
		shipping, billing, payment []byte
		status                     string
	)
	if err := s.Scan(&o.ID, &o.CustomerID, &o.OrderName, &shipping, &billing, &payment, &status,
		&o.CreatedAt, &o.CreatedBy, &o.LastModified, &o.LastModifiedBy); err != nil {
		return nil, err
	}

	var err error
	if o.Status, err = domain.ParseOrderStatus(status); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(billing, &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal billing address: %w", err)
	}
	if err := json.Unmarshal(payment, &o.Payment); err != nil {
		return nil, fmt.Errorf("unmarshal payment: %w", err)
	}
	return &o, nil
}

func (r *Repository) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		o.Items = make([]*domain.OrderItem, 0)
		ids = append(ids, o.ID.String())
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, price, created_at, created_by, last_modified, last_modified_by
		 FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY created_at, id`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price,
			&it.CreatedAt, &it.CreatedBy, &it.LastModified, &it.LastModifiedBy); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, &it)
		}
	}
	return rows.Err()
}

func (r *Repository) Close() error {
	return r.db.Close()
}
