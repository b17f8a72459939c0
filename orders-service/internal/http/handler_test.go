package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_eshop/orders-service/internal/domain"
	"github.com/fjod/go_eshop/orders-service/internal/repository"
	"github.com/fjod/go_eshop/pkg/httpx"
	"github.com/fjod/go_eshop/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock ---

type mockOrderService struct {
	orders   map[uuid.UUID]*domain.Order
	lastPage repository.Page
}

func newMockOrderService(orders ...*domain.Order) *mockOrderService {
	m := &mockOrderService{orders: map[uuid.UUID]*domain.Order{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderService) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockOrderService) ListOrders(_ context.Context, page repository.Page) ([]*domain.Order, int64, error) {
	m.lastPage = page
	var out []*domain.Order
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (m *mockOrderService) ListOrdersByCustomer(_ context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderService) UpdateStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	_, err := o.SetStatus(status)
	return err
}

func (m *mockOrderService) DeleteOrder(_ context.Context, id uuid.UUID) error {
	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

// --- helpers ---

func newRouter(svc OrderService) http.Handler {
	r := chi.NewRouter()
	NewOrderHandler(svc, logger.Discard(), time.Second).Routes(r)
	return r
}

func testOrder(t *testing.T) *domain.Order {
	t.Helper()
	addr := domain.Address{FirstName: "Swn", EmailAddress: "swn@example.com", AddressLine: "Bahcelievler"}
	o, err := domain.NewOrder(uuid.New(), uuid.New(), "swn - swn", addr, addr, domain.Payment{CardName: "swn", CVV: "355"})
	require.NoError(t, err)
	require.NoError(t, o.AddItem(uuid.New(), 2, decimal.RequireFromString("950.00")))
	return o
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	router.ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestGetOrder_Success(t *testing.T) {
	o := testOrder(t)
	rec := do(newRouter(newMockOrderService(o)), http.MethodGet, "/orders/"+o.ID.String(), "")

	require.Equal(t, http.StatusOK, rec.Code)
	var dto OrderDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))
	assert.Equal(t, o.ID, dto.ID)
	assert.Equal(t, 2, dto.Status)
	assert.Equal(t, "Pending", dto.StatusName)
	assert.True(t, decimal.RequireFromString("1900").Equal(dto.TotalPrice))
	require.Len(t, dto.Items, 1)
}

func TestGetOrder_NotFound(t *testing.T) {
	rec := do(newRouter(newMockOrderService()), http.MethodGet, "/orders/"+uuid.NewString(), "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_InvalidID(t *testing.T) {
	rec := do(newRouter(newMockOrderService()), http.MethodGet, "/orders/42", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrders_Paging(t *testing.T) {
	svc := newMockOrderService(testOrder(t), testOrder(t))
	rec := do(newRouter(svc), http.MethodGet, "/orders?pageNumber=2&pageSize=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var page PagedOrders
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, int64(2), page.Count)
	assert.Equal(t, 2, page.PageNumber)
	assert.Equal(t, repository.Page{Number: 2, Size: 5}, svc.lastPage)
}

func TestListOrders_Defaults(t *testing.T) {
	svc := newMockOrderService()
	rec := do(newRouter(svc), http.MethodGet, "/orders", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, repository.Page{Number: 1, Size: defaultPageSize}, svc.lastPage)
	assert.JSONEq(t, `{"pageNumber":1,"pageSize":10,"count":0,"data":[]}`, rec.Body.String())
}

func TestListOrders_BadPaging(t *testing.T) {
	rec := do(newRouter(newMockOrderService()), http.MethodGet, "/orders?pageNumber=0&pageSize=500", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp httpx.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp.Details, "pageNumber")
	assert.Contains(t, resp.Details, "pageSize")
}

func TestListOrdersByCustomer(t *testing.T) {
	o := testOrder(t)
	svc := newMockOrderService(o, testOrder(t))
	rec := do(newRouter(svc), http.MethodGet, "/orders/customer/"+o.CustomerID.String(), "")

	require.Equal(t, http.StatusOK, rec.Code)
	var dtos []OrderDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, o.ID, dtos[0].ID)
}

func TestUpdateStatus_Success(t *testing.T) {
	o := testOrder(t)
	rec := do(newRouter(newMockOrderService(o)), http.MethodPut, "/orders/"+o.ID.String(), `{"status":5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isSuccess":true}`, rec.Body.String())
	assert.Equal(t, domain.StatusConfirmed, o.Status)
}

func TestUpdateStatus_Errors(t *testing.T) {
	o := testOrder(t)
	router := newRouter(newMockOrderService(o))

	tests := []struct {
		name   string
		target string
		body   string
		code   int
	}{
		{"missing status", "/orders/" + o.ID.String(), `{}`, http.StatusBadRequest},
		{"unknown status", "/orders/" + o.ID.String(), `{"status":42}`, http.StatusBadRequest},
		{"illegal transition", "/orders/" + o.ID.String(), `{"status":6}`, http.StatusBadRequest},
		{"absent order", "/orders/" + uuid.NewString(), `{"status":5}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodPut, tt.target, tt.body)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
	assert.Equal(t, domain.StatusPending, o.Status)
}

func TestDeleteOrder(t *testing.T) {
	o := testOrder(t)
	router := newRouter(newMockOrderService(o))

	rec := do(router, http.MethodDelete, "/orders/"+o.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodDelete, "/orders/"+o.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
