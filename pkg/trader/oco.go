package trader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/binance"
	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

type OCOParams struct {
	Symbol string
	// Side is the exit side: SELL closes a long, BUY closes a short.
	Side       models.OrderSide
	Quantity   float64
	TakeProfit float64
	StopLoss   float64
}

type OCOOutcome string

const (
	OCOOutcomeTakeProfit OCOOutcome = "TAKE_PROFIT_FILLED"
	OCOOutcomeStopLoss   OCOOutcome = "STOP_LOSS_FILLED"
	OCOOutcomeExternal   OCOOutcome = "EXTERNALLY_CLOSED"
	OCOOutcomeTimeout    OCOOutcome = "MONITOR_TIMEOUT"
	OCOOutcomeStopped    OCOOutcome = "MONITOR_STOPPED"
	OCOOutcomeDryRun     OCOOutcome = "DRY_RUN"
)

// OCOPair is a placed take-profit/stop-loss pair under supervision. The pair
// is CLOSED once its done channel is closed; it owns its two orders until
// then.
type OCOPair struct {
	TakeProfit *models.Order
	StopLoss   *models.Order

	mu      sync.Mutex
	outcome OCOOutcome
	done    chan struct{}
}

// Wait blocks until supervision ends or the timeout elapses, and returns
// the outcome so far.
func (p *OCOPair) Wait(timeout time.Duration) OCOOutcome {
	select {
	case <-p.done:
	case <-time.After(timeout):
	}
	return p.Outcome()
}

// Done is closed when supervision has ended.
func (p *OCOPair) Done() <-chan struct{} {
	return p.done
}

func (p *OCOPair) Outcome() OCOOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome
}

func (p *OCOPair) finish(outcome OCOOutcome) {
	p.mu.Lock()
	p.outcome = outcome
	p.mu.Unlock()
	close(p.done)
}

// OCOOptions tunes the supervision loop.
type OCOOptions struct {
	PollInterval time.Duration
	MaxDuration  time.Duration
}

func DefaultOCOOptions() OCOOptions {
	return OCOOptions{
		PollInterval: 10 * time.Second,
		MaxDuration:  time.Hour,
	}
}

// OCOMonitor places take-profit/stop-loss pairs and supervises them until
// one leg fills, at which point the sibling is canceled.
type OCOMonitor struct {
	client binance.Client
	audit  Sink
	logger *logrus.Logger
	opts   OCOOptions
}

func NewOCOMonitor(client binance.Client, audit Sink, logger *logrus.Logger, opts OCOOptions) *OCOMonitor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOCOOptions().PollInterval
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultOCOOptions().MaxDuration
	}
	return &OCOMonitor{
		client: client,
		audit:  audit,
		logger: logger,
		opts:   opts,
	}
}

// ValidateOCOPrices checks the price relationships for an exit pair. For a
// SELL exit (closing a long): takeProfit > current > stopLoss. For a BUY
// exit (closing a short) the inequalities reverse.
func ValidateOCOPrices(currentPrice, takeProfit, stopLoss float64, side models.OrderSide) error {
	if side == models.OrderSideSell {
		if takeProfit <= currentPrice {
			return &ValidationError{
				Field:  "takeProfit",
				Reason: fmt.Sprintf("take profit %v must be above current price %v", takeProfit, currentPrice),
			}
		}
		if stopLoss >= currentPrice {
			return &ValidationError{
				Field:  "stopLoss",
				Reason: fmt.Sprintf("stop loss %v must be below current price %v", stopLoss, currentPrice),
			}
		}
		return nil
	}
	if takeProfit >= currentPrice {
		return &ValidationError{
			Field:  "takeProfit",
			Reason: fmt.Sprintf("take profit %v must be below current price %v", takeProfit, currentPrice),
		}
	}
	if stopLoss <= currentPrice {
		return &ValidationError{
			Field:  "stopLoss",
			Reason: fmt.Sprintf("stop loss %v must be above current price %v", stopLoss, currentPrice),
		}
	}
	return nil
}

// Place validates the pair, submits both legs and starts supervision in the
// background. The caller may return immediately and join via the pair's
// Done channel.
func (m *OCOMonitor) Place(ctx context.Context, params OCOParams) (*OCOPair, error) {
	symbol, err := ValidateSymbol(params.Symbol)
	if err != nil {
		return nil, err
	}
	if err := ValidateQuantity(params.Quantity); err != nil {
		return nil, err
	}
	if err := ValidatePrice(params.TakeProfit); err != nil {
		return nil, err
	}
	if err := ValidatePrice(params.StopLoss); err != nil {
		return nil, err
	}

	currentPrice, err := m.client.GetLastPrice(ctx, symbol)
	if err != nil {
		return nil, &GatewayError{Op: "fetching reference price", Err: err}
	}

	if err := ValidateOCOPrices(currentPrice, params.TakeProfit, params.StopLoss, params.Side); err != nil {
		return nil, err
	}

	m.audit.Record(Event{
		Action:   "OCO_ORDER_ATTEMPT",
		Symbol:   symbol,
		Side:     params.Side,
		Quantity: params.Quantity,
		Status:   "PENDING",
	})

	takeProfit, err := m.client.PlaceOrder(ctx, &models.OrderRequest{
		Symbol:      symbol,
		Side:        params.Side,
		Type:        models.OrderTypeLimit,
		Quantity:    params.Quantity,
		Price:       params.TakeProfit,
		TimeInForce: "GTC",
	})
	if err != nil {
		m.audit.Record(Event{
			Action: "OCO_ORDER_FAILED", Symbol: symbol, Side: params.Side,
			Quantity: params.Quantity, Status: "FAILED", Err: err.Error(),
		})
		return nil, &GatewayError{Op: "placing take profit leg", Err: err}
	}

	stopLoss, err := m.client.PlaceOrder(ctx, &models.OrderRequest{
		Symbol:    symbol,
		Side:      params.Side,
		Type:      models.OrderTypeStopMarket,
		Quantity:  params.Quantity,
		StopPrice: params.StopLoss,
	})
	if err != nil {
		// Never leave a naked take-profit behind.
		if cancelErr := m.client.CancelOrder(ctx, symbol, takeProfit.OrderID); cancelErr != nil && !binance.IsOrderGone(cancelErr) {
			m.logger.WithError(cancelErr).WithField("order_id", takeProfit.OrderID).Error("Failed to cancel take profit after stop loss rejection")
		}
		m.audit.Record(Event{
			Action: "OCO_ORDER_FAILED", Symbol: symbol, Side: params.Side,
			Quantity: params.Quantity, Status: "FAILED", Err: err.Error(),
		})
		return nil, &GatewayError{Op: "placing stop loss leg", Err: err}
	}

	m.audit.Record(Event{
		Action:   "OCO_ORDER_PLACED",
		Symbol:   symbol,
		Side:     params.Side,
		Quantity: params.Quantity,
		OrderID:  fmt.Sprintf("TP:%s,SL:%s", takeProfit.OrderID, stopLoss.OrderID),
		Status:   "PLACED",
	})

	pair := &OCOPair{
		TakeProfit: takeProfit,
		StopLoss:   stopLoss,
		done:       make(chan struct{}),
	}

	// Dry-run orders never transition, so there is nothing to supervise.
	if takeProfit.Status == models.OrderStatusDryRun {
		pair.finish(OCOOutcomeDryRun)
		return pair, nil
	}

	go m.supervise(ctx, symbol, pair)
	return pair, nil
}

func (m *OCOMonitor) supervise(ctx context.Context, symbol string, pair *OCOPair) {
	m.logger.WithFields(logrus.Fields{
		"symbol":      symbol,
		"take_profit": pair.TakeProfit.OrderID,
		"stop_loss":   pair.StopLoss.OrderID,
		"max":         m.opts.MaxDuration,
	}).Info("OCO supervision started")

	deadline := time.NewTimer(m.opts.MaxDuration)
	defer deadline.Stop()
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("OCO supervision stopped")
			pair.finish(OCOOutcomeStopped)
			return
		case <-deadline.C:
			// Not a forced flatten: both legs stay live on the venue.
			m.logger.Warn("OCO monitoring duration elapsed, orders remain live")
			pair.finish(OCOOutcomeTimeout)
			return
		case <-ticker.C:
			outcome, finished := m.poll(ctx, symbol, pair)
			if finished {
				pair.finish(outcome)
				return
			}
		}
	}
}

// poll runs one supervision cycle: fetch both leg statuses sequentially and
// react. Returns the outcome when supervision should end.
func (m *OCOMonitor) poll(ctx context.Context, symbol string, pair *OCOPair) (OCOOutcome, bool) {
	takeProfit, err := m.client.GetOrder(ctx, symbol, pair.TakeProfit.OrderID)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to check take profit status")
		return "", false
	}
	stopLoss, err := m.client.GetOrder(ctx, symbol, pair.StopLoss.OrderID)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to check stop loss status")
		return "", false
	}

	tpFilled := takeProfit.Status == models.OrderStatusFilled
	slFilled := stopLoss.Status == models.OrderStatusFilled

	if tpFilled && slFilled {
		// The venue filled both before a cancel could land. Still issue one
		// cancel attempt per leg; "already filled" responses are benign.
		m.logger.Warn("Both OCO legs filled in the same poll")
	}

	if tpFilled {
		m.cancelLeg(ctx, symbol, stopLoss.OrderID, "stop_loss")
		m.audit.Record(Event{
			Action:  "OCO_TAKE_PROFIT_EXECUTED",
			Symbol:  symbol,
			Side:    takeProfit.Side,
			OrderID: takeProfit.OrderID,
			Status:  string(takeProfit.Status),
		})
	}
	if slFilled {
		m.cancelLeg(ctx, symbol, takeProfit.OrderID, "take_profit")
		m.audit.Record(Event{
			Action:  "OCO_STOP_LOSS_EXECUTED",
			Symbol:  symbol,
			Side:    stopLoss.Side,
			OrderID: stopLoss.OrderID,
			Status:  string(stopLoss.Status),
		})
	}

	switch {
	case tpFilled:
		return OCOOutcomeTakeProfit, true
	case slFilled:
		return OCOOutcomeStopLoss, true
	}

	// Either leg terminated externally: stop supervising, no further action.
	for _, leg := range []*models.Order{takeProfit, stopLoss} {
		if leg.Status == models.OrderStatusCanceled || leg.Status == models.OrderStatusExpired {
			drift := &SupervisionDrift{OrderID: leg.OrderID, Status: leg.Status}
			m.logger.WithField("order_id", leg.OrderID).WithField("status", leg.Status).Warn(drift.Error())
			return OCOOutcomeExternal, true
		}
	}

	return "", false
}

// cancelLeg issues exactly one cancel attempt. A response meaning the order
// is already filled or already canceled is a benign no-op.
func (m *OCOMonitor) cancelLeg(ctx context.Context, symbol, orderID, leg string) {
	err := m.client.CancelOrder(ctx, symbol, orderID)
	if err != nil && !binance.IsOrderGone(err) {
		m.logger.WithError(err).WithFields(logrus.Fields{
			"order_id": orderID,
			"leg":      leg,
		}).Error("Failed to cancel sibling leg")
		return
	}
	m.audit.Record(Event{
		Action:  "OCO_SIBLING_CANCELED",
		Symbol:  symbol,
		OrderID: orderID,
		Status:  string(models.OrderStatusCanceled),
	})
}
