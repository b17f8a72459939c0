package repository

import (
	"context"

	"github.com/fjod/go_eshop/orders-service/internal/domain"
	"github.com/fjod/go_eshop/orders-service/internal/uow"
	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound  = domain.ErrOrderNotFound
	ErrDuplicateOrder = apperr.Business("order already exists")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MigrationsDirPath string
}

type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// OrderRepository is the read side plus the transactional writer used by
// the unit of work.
type OrderRepository interface {
	uow.Committer
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, page Page) ([]*domain.Order, int64, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error)
	RunMigrations(*Credentials) error
	Close() error
}
