package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fjod/go_eshop/orders-service/internal/domain"
	"github.com/fjod/go_eshop/orders-service/internal/repository"
	"github.com/fjod/go_eshop/orders-service/internal/uow"
	"github.com/google/uuid"
)

type OrderReader interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, page repository.Page) ([]*domain.Order, int64, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error)
}

type OrderService struct {
	reader OrderReader
	uow    *uow.Factory
	log    *slog.Logger
}

func NewOrderService(reader OrderReader, f *uow.Factory, log *slog.Logger) *OrderService {
	return &OrderService{reader: reader, uow: f, log: log}
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.reader.GetOrder(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, page repository.Page) ([]*domain.Order, int64, error) {
	return s.reader.ListOrders(ctx, page)
}

func (s *OrderService) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	return s.reader.ListOrdersByCustomer(ctx, customerID)
}

// UpdateStatus moves an order to status. Re-applying the current status
// succeeds without writing anything.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	order, err := s.reader.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	changed, err := order.SetStatus(status)
	if err != nil {
		return err
	}
	if !changed {
		s.log.DebugContext(ctx, "order status unchanged", "order_id", id, "status", status.String())
		return nil
	}

	u := s.uow.New()
	u.UpdateOrder(order)
	if err := u.SaveChanges(ctx); err != nil {
		return fmt.Errorf("save order %s: %w", id, err)
	}
	return nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	order, err := s.reader.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	order.MarkDeleted()
	u := s.uow.New()
	u.DeleteOrder(order)
	if err := u.SaveChanges(ctx); err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	return nil
}
