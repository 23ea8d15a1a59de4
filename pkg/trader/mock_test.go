package trader

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

// mockClient is a scriptable in-memory venue for strategy tests. It records
// every mutating call so tests can assert on exactly what reached the venue.
type mockClient struct {
	mu sync.Mutex

	price    float64
	priceErr error
	balance  float64

	seq       int
	placed    []*models.OrderRequest
	orders    map[string]*models.Order
	placeErrs map[int]error // 1-based PlaceOrder call index -> error

	cancels    []string
	cancelErrs map[string]error

	getOrderErr error
}

func newMockClient(price float64) *mockClient {
	return &mockClient{
		price:      price,
		balance:    1_000_000,
		orders:     make(map[string]*models.Order),
		placeErrs:  make(map[int]error),
		cancelErrs: make(map[string]error),
	}
}

func (m *mockClient) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.priceErr != nil {
		return 0, m.priceErr
	}
	return m.price, nil
}

func (m *mockClient) PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.placed) + 1
	m.placed = append(m.placed, req)
	if err := m.placeErrs[call]; err != nil {
		return nil, err
	}

	m.seq++
	order := &models.Order{
		OrderID:   fmt.Sprintf("MOCK-%d", m.seq),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Price:     req.Price,
		StopPrice: req.StopPrice,
		Quantity:  req.Quantity,
		Status:    models.OrderStatusNew,
	}
	if req.Type == models.OrderTypeMarket {
		order.Status = models.OrderStatusFilled
		order.ExecutedQty = req.Quantity
		order.AvgPrice = m.price
	}
	m.orders[order.OrderID] = order
	return copyOrder(order), nil
}

func (m *mockClient) GetOrder(ctx context.Context, symbol, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getOrderErr != nil {
		return nil, m.getOrderErr
	}
	order, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("mock: unknown order %s", orderID)
	}
	return copyOrder(order), nil
}

func (m *mockClient) CancelOrder(ctx context.Context, symbol, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels = append(m.cancels, orderID)
	if err := m.cancelErrs[orderID]; err != nil {
		return err
	}
	if order, ok := m.orders[orderID]; ok {
		order.Status = models.OrderStatusCanceled
	}
	return nil
}

func (m *mockClient) GetAvailableBalance(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance, nil
}

func (m *mockClient) setStatus(orderID string, status models.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order, ok := m.orders[orderID]; ok {
		order.Status = status
	}
}

func (m *mockClient) setPrice(price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.price = price
}

func (m *mockClient) placedRequests() []*models.OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.OrderRequest(nil), m.placed...)
}

func (m *mockClient) canceledIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cancels...)
}

func copyOrder(o *models.Order) *models.Order {
	copied := *o
	return &copied
}

// recordSink captures audit events for assertions.
type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordSink) Record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, len(s.events))
	for i, ev := range s.events {
		actions[i] = ev.Action
	}
	return actions
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
