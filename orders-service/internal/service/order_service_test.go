package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/go_eshop/orders-service/internal/domain"
	"github.com/fjod/go_eshop/orders-service/internal/repository"
	"github.com/fjod/go_eshop/orders-service/internal/uow"
	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/fjod/go_eshop/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockStore struct {
	orders  map[uuid.UUID]*domain.Order
	commits []uow.ChangeSet
	err     error
}

func newMockStore(orders ...*domain.Order) *mockStore {
	m := &mockStore{orders: map[uuid.UUID]*domain.Order{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockStore) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockStore) ListOrders(_ context.Context, _ repository.Page) ([]*domain.Order, int64, error) {
	out := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (m *mockStore) ListOrdersByCustomer(_ context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockStore) Commit(_ context.Context, cs uow.ChangeSet) error {
	if m.err != nil {
		return m.err
	}
	m.commits = append(m.commits, cs)
	for _, ch := range cs.Orders {
		if ch.State == uow.Deleted {
			delete(m.orders, ch.Order.ID)
		}
	}
	return nil
}

type mockDispatcher struct {
	events []domain.Event
}

func (m *mockDispatcher) Dispatch(_ context.Context, events []domain.Event) {
	m.events = append(m.events, events...)
}

// --- helpers ---

func persistedOrder(t *testing.T) *domain.Order {
	t.Helper()
	addr := domain.Address{EmailAddress: "a@b.c", AddressLine: "Main st 1"}
	o, err := domain.NewOrder(uuid.New(), uuid.New(), "swn - swn", addr, addr, domain.Payment{CardName: "swn", CVV: "123"})
	require.NoError(t, err)
	require.NoError(t, o.AddItem(uuid.New(), 1, decimal.NewFromInt(10)))
	o.ClearEvents()
	return o
}

func newService(store *mockStore, d *mockDispatcher) *OrderService {
	return NewOrderService(store, uow.NewFactory(store, d, "orders-api"), logger.Discard())
}

// --- tests ---

func TestUpdateStatus_CommitsAndDispatches(t *testing.T) {
	o := persistedOrder(t)
	store, d := newMockStore(o), &mockDispatcher{}

	require.NoError(t, newService(store, d).UpdateStatus(context.Background(), o.ID, domain.StatusSubmitted))

	require.Len(t, store.commits, 1)
	assert.Equal(t, uow.Modified, store.commits[0].Orders[0].State)
	assert.Equal(t, domain.StatusSubmitted, o.Status)
	assert.Equal(t, "orders-api", o.LastModifiedBy)
	require.Len(t, d.events, 1)
	assert.Equal(t, domain.EventOrderUpdated, d.events[0].Name())
}

func TestUpdateStatus_SameStatusWritesNothing(t *testing.T) {
	o := persistedOrder(t)
	store, d := newMockStore(o), &mockDispatcher{}

	require.NoError(t, newService(store, d).UpdateStatus(context.Background(), o.ID, domain.StatusPending))

	assert.Empty(t, store.commits)
	assert.Empty(t, d.events)
}

func TestUpdateStatus_IllegalTransition(t *testing.T) {
	o := persistedOrder(t)
	store := newMockStore(o)

	err := newService(store, &mockDispatcher{}).UpdateStatus(context.Background(), o.ID, domain.StatusCompleted)

	assert.Equal(t, apperr.KindBusiness, apperr.KindOf(err))
	assert.Empty(t, store.commits)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	err := newService(newMockStore(), &mockDispatcher{}).UpdateStatus(context.Background(), uuid.New(), domain.StatusShipped)

	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestUpdateStatus_CommitFailureSkipsDispatch(t *testing.T) {
	o := persistedOrder(t)
	store, d := newMockStore(o), &mockDispatcher{}
	store.err = errors.New("connection refused")

	err := newService(store, d).UpdateStatus(context.Background(), o.ID, domain.StatusConfirmed)

	require.Error(t, err)
	assert.Empty(t, d.events)
}

func TestDeleteOrder(t *testing.T) {
	o := persistedOrder(t)
	store, d := newMockStore(o), &mockDispatcher{}
	svc := newService(store, d)

	require.NoError(t, svc.DeleteOrder(context.Background(), o.ID))

	require.Len(t, d.events, 1)
	assert.Equal(t, domain.EventOrderDeleted, d.events[0].Name())
	_, err := svc.GetOrder(context.Background(), o.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}
