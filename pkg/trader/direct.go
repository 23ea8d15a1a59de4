package trader

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/binance"
	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

// PlacerConfig tunes pre-trade sanity checks.
type PlacerConfig struct {
	// Warn when a limit price deviates from reference by more than this
	// percentage. Warning only, never blocks.
	DeviationWarnPct float64
	// Check available balance before market BUY orders.
	CheckBalance bool
}

func DefaultPlacerConfig() PlacerConfig {
	return PlacerConfig{
		DeviationWarnPct: 50,
		CheckBalance:     true,
	}
}

// Placer performs single-shot order placement: market, limit and stop-limit.
// One atomic venue call per order, no internal retry.
type Placer struct {
	client binance.Client
	audit  Sink
	logger *logrus.Logger
	cfg    PlacerConfig
}

func NewPlacer(client binance.Client, audit Sink, logger *logrus.Logger, cfg PlacerConfig) *Placer {
	return &Placer{
		client: client,
		audit:  audit,
		logger: logger,
		cfg:    cfg,
	}
}

func (p *Placer) PlaceMarket(ctx context.Context, symbol string, side models.OrderSide, quantity float64) (*models.Order, error) {
	symbol, err := ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	currentPrice, err := p.client.GetLastPrice(ctx, symbol)
	if err != nil {
		return nil, &GatewayError{Op: "fetching reference price", Err: err}
	}

	// SELL-side position checks are the venue's problem; only BUY notional
	// is checked against available balance.
	if p.cfg.CheckBalance && side == models.OrderSideBuy {
		available, err := p.client.GetAvailableBalance(ctx)
		if err != nil {
			p.logger.WithError(err).Warn("Could not check account balance")
		} else if required := quantity * currentPrice; required > available {
			return nil, &ValidationError{
				Field:  "quantity",
				Reason: fmt.Sprintf("insufficient balance: required %.2f, available %.2f", required, available),
			}
		}
	}

	return p.place(ctx, "MARKET_ORDER", &models.OrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     models.OrderTypeMarket,
		Quantity: quantity,
	}, currentPrice)
}

func (p *Placer) PlaceLimit(ctx context.Context, symbol string, side models.OrderSide, quantity, price float64) (*models.Order, error) {
	symbol, err := ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := ValidatePrice(price); err != nil {
		return nil, err
	}

	currentPrice, err := p.client.GetLastPrice(ctx, symbol)
	if err != nil {
		return nil, &GatewayError{Op: "fetching reference price", Err: err}
	}

	p.warnOnDeviation(symbol, side, price, currentPrice)

	return p.place(ctx, "LIMIT_ORDER", &models.OrderRequest{
		Symbol:      symbol,
		Side:        side,
		Type:        models.OrderTypeLimit,
		Quantity:    quantity,
		Price:       price,
		TimeInForce: "GTC",
	}, currentPrice)
}

func (p *Placer) PlaceStopLimit(ctx context.Context, symbol string, side models.OrderSide, quantity, stopPrice, limitPrice float64) (*models.Order, error) {
	symbol, err := ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := ValidatePrice(stopPrice); err != nil {
		return nil, err
	}
	if err := ValidatePrice(limitPrice); err != nil {
		return nil, err
	}

	currentPrice, err := p.client.GetLastPrice(ctx, symbol)
	if err != nil {
		return nil, &GatewayError{Op: "fetching reference price", Err: err}
	}

	if err := validateStopLimitPrices(currentPrice, stopPrice, limitPrice, side); err != nil {
		return nil, err
	}

	p.warnOnDeviation(symbol, side, limitPrice, currentPrice)

	return p.place(ctx, "STOP_LIMIT_ORDER", &models.OrderRequest{
		Symbol:      symbol,
		Side:        side,
		Type:        models.OrderTypeStop,
		Quantity:    quantity,
		Price:       limitPrice,
		StopPrice:   stopPrice,
		TimeInForce: "GTC",
	}, currentPrice)
}

// validateStopLimitPrices enforces that a stop-limit order triggers away
// from the market in the direction of its side: a BUY stop sits above the
// reference with limit >= stop, a SELL stop below with limit <= stop.
func validateStopLimitPrices(currentPrice, stopPrice, limitPrice float64, side models.OrderSide) error {
	if side == models.OrderSideBuy {
		if stopPrice <= currentPrice {
			return &ValidationError{
				Field:  "stopPrice",
				Reason: fmt.Sprintf("BUY stop price %v must be above current price %v", stopPrice, currentPrice),
			}
		}
		if limitPrice < stopPrice {
			return &ValidationError{
				Field:  "price",
				Reason: fmt.Sprintf("BUY limit price %v must be >= stop price %v", limitPrice, stopPrice),
			}
		}
		return nil
	}
	if stopPrice >= currentPrice {
		return &ValidationError{
			Field:  "stopPrice",
			Reason: fmt.Sprintf("SELL stop price %v must be below current price %v", stopPrice, currentPrice),
		}
	}
	if limitPrice > stopPrice {
		return &ValidationError{
			Field:  "price",
			Reason: fmt.Sprintf("SELL limit price %v must be <= stop price %v", limitPrice, stopPrice),
		}
	}
	return nil
}

func (p *Placer) warnOnDeviation(symbol string, side models.OrderSide, price, currentPrice float64) {
	deviation := math.Abs(price-currentPrice) / currentPrice * 100
	if deviation > p.cfg.DeviationWarnPct {
		p.logger.WithFields(logrus.Fields{
			"symbol":    symbol,
			"price":     price,
			"market":    currentPrice,
			"deviation": fmt.Sprintf("%.1f%%", deviation),
		}).Warn("Limit price is far from market price")
	}

	if side == models.OrderSideBuy && price > currentPrice*1.1 {
		p.logger.WithField("symbol", symbol).Warnf("BUY limit price %v is significantly above market price %v", price, currentPrice)
	} else if side == models.OrderSideSell && price < currentPrice*0.9 {
		p.logger.WithField("symbol", symbol).Warnf("SELL limit price %v is significantly below market price %v", price, currentPrice)
	}
}

func (p *Placer) place(ctx context.Context, action string, req *models.OrderRequest, referencePrice float64) (*models.Order, error) {
	p.audit.Record(Event{
		Action:   action + "_ATTEMPT",
		Symbol:   req.Symbol,
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    req.Price,
		Status:   "PENDING",
	})

	order, err := p.client.PlaceOrder(ctx, req)
	if err != nil {
		p.audit.Record(Event{
			Action:   action + "_FAILED",
			Symbol:   req.Symbol,
			Side:     req.Side,
			Quantity: req.Quantity,
			Price:    req.Price,
			Status:   "FAILED",
			Err:      err.Error(),
		})
		return nil, &GatewayError{Op: "placing order", Err: err}
	}

	p.audit.Record(Event{
		Action:   action + "_SUCCESS",
		Symbol:   order.Symbol,
		Side:     order.Side,
		Quantity: order.Quantity,
		Price:    order.Price,
		OrderID:  order.OrderID,
		Status:   string(order.Status),
	})

	p.logger.WithFields(logrus.Fields{
		"order_id": order.OrderID,
		"symbol":   order.Symbol,
		"side":     order.Side,
		"type":     order.Type,
		"qty":      order.Quantity,
		"market":   referencePrice,
	}).Info("Order placed")

	return order, nil
}

// WatchOrder polls a placed order until it reaches a terminal status or
// maxChecks polls have elapsed. Returns the last observed state.
func (p *Placer) WatchOrder(ctx context.Context, symbol, orderID string, interval time.Duration, maxChecks int) (*models.Order, error) {
	var last *models.Order

	for i := 0; i < maxChecks; i++ {
		order, err := p.client.GetOrder(ctx, symbol, orderID)
		if err != nil {
			return last, &GatewayError{Op: "checking order status", Err: err}
		}
		last = order

		p.logger.WithFields(logrus.Fields{
			"order_id":  order.OrderID,
			"status":    order.Status,
			"executed":  order.ExecutedQty,
			"remaining": order.Quantity - order.ExecutedQty,
		}).Info("Order status check")

		if order.Status.IsTerminal() {
			return order, nil
		}

		if i < maxChecks-1 {
			select {
			case <-ctx.Done():
				return last, ctx.Err()
			case <-time.After(interval):
			}
		}
	}

	return last, nil
}
