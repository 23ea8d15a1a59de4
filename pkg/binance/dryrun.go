package binance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

// PriceSource is the read-only subset of Client a dry run still needs.
type PriceSource interface {
	GetLastPrice(ctx context.Context, symbol string) (float64, error)
}

// DryRunClient simulates the venue. Mutating calls never touch the network:
// placed orders get a synthetic DRY_RUN order ID and status, cancels succeed,
// and status checks echo back what was placed. Prices come from the wrapped
// source, so a dry run still reasons about real market levels.
type DryRunClient struct {
	prices  PriceSource
	balance float64

	mu     sync.Mutex
	seq    int
	orders map[string]*models.Order
}

func NewDryRunClient(prices PriceSource, balance float64) *DryRunClient {
	return &DryRunClient{
		prices:  prices,
		balance: balance,
		orders:  make(map[string]*models.Order),
	}
}

// FixedPrice is a PriceSource that always returns the same price. It keeps
// dry runs and tests fully offline.
type FixedPrice float64

func (p FixedPrice) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	return float64(p), nil
}

func (c *DryRunClient) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	return c.prices.GetLastPrice(ctx, symbol)
}

func (c *DryRunClient) PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	order := &models.Order{
		OrderID:     fmt.Sprintf("DRY_RUN_%s_%d", req.Side, c.seq),
		Symbol:      req.Symbol,
		Side:        req.Side,
		Type:        req.Type,
		Price:       req.Price,
		StopPrice:   req.StopPrice,
		Quantity:    req.Quantity,
		ExecutedQty: req.Quantity,
		Status:      models.OrderStatusDryRun,
		TimeInForce: req.TimeInForce,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	// Market orders report the current price as their fill price.
	if req.Type == models.OrderTypeMarket {
		if price, err := c.prices.GetLastPrice(ctx, req.Symbol); err == nil {
			order.AvgPrice = price
		}
	} else {
		order.AvgPrice = req.Price
	}

	c.orders[order.OrderID] = order
	return order, nil
}

func (c *DryRunClient) GetOrder(ctx context.Context, symbol, orderID string) (*models.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	order, ok := c.orders[orderID]
	if !ok {
		return nil, &APIError{Code: codeOrderDoesNotExist, Message: "Order does not exist."}
	}
	copied := *order
	return &copied, nil
}

func (c *DryRunClient) CancelOrder(ctx context.Context, symbol, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.orders[orderID]; !ok {
		return &APIError{Code: codeUnknownOrder, Message: "Unknown order sent."}
	}
	delete(c.orders, orderID)
	return nil
}

func (c *DryRunClient) GetAvailableBalance(ctx context.Context) (float64, error) {
	return c.balance, nil
}
