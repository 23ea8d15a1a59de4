package trader

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/binance"
	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

const maxTwapSlices = 100

type TWAPParams struct {
	Symbol        string
	Side          models.OrderSide
	TotalQuantity float64
	Duration      time.Duration
	SliceCount    int
}

// TwapSlice is one sub-order of a TWAP plan. Delay is measured from strategy
// start, not from the previous slice, so execution drift does not compound.
type TwapSlice struct {
	Quantity float64
	Delay    time.Duration
}

// BuildTwapPlan splits a total quantity into equal slices spaced evenly
// across the duration, first slice at offset zero.
func BuildTwapPlan(totalQuantity float64, duration time.Duration, sliceCount int) ([]TwapSlice, error) {
	if duration <= 0 {
		return nil, &ValidationError{Field: "duration", Reason: "must be positive"}
	}
	if sliceCount <= 0 {
		return nil, &ValidationError{Field: "sliceCount", Reason: "must be positive"}
	}
	if sliceCount > maxTwapSlices {
		return nil, &ValidationError{Field: "sliceCount", Reason: fmt.Sprintf("maximum %d slices allowed", maxTwapSlices)}
	}
	perSlice := totalQuantity / float64(sliceCount)
	if perSlice < minQuantity {
		return nil, &ValidationError{
			Field:  "sliceCount",
			Reason: fmt.Sprintf("per-slice quantity %v below minimum tradable %v", perSlice, minQuantity),
		}
	}

	interval := duration / time.Duration(sliceCount)
	plan := make([]TwapSlice, sliceCount)
	for i := range plan {
		plan[i] = TwapSlice{
			Quantity: perSlice,
			Delay:    time.Duration(i) * interval,
		}
	}
	return plan, nil
}

// TWAPScheduler executes a plan strictly in sequence as market orders,
// tolerating individual slice failures.
type TWAPScheduler struct {
	client binance.Client
	audit  Sink
	logger *logrus.Logger
}

func NewTWAPScheduler(client binance.Client, audit Sink, logger *logrus.Logger) *TWAPScheduler {
	return &TWAPScheduler{
		client: client,
		audit:  audit,
		logger: logger,
	}
}

// Execute runs the whole plan and returns a summary. A canceled context
// stops further slices; slices already in flight complete. The returned
// error is nil on full success, *PartialExecutionError when some slices
// failed, and a plain error when validation failed or nothing executed.
func (s *TWAPScheduler) Execute(ctx context.Context, params TWAPParams) (*StrategyResult, error) {
	symbol, err := ValidateSymbol(params.Symbol)
	if err != nil {
		return nil, err
	}
	if err := ValidateQuantity(params.TotalQuantity); err != nil {
		return nil, err
	}
	plan, err := BuildTwapPlan(params.TotalQuantity, params.Duration, params.SliceCount)
	if err != nil {
		return nil, err
	}

	initialPrice, err := s.client.GetLastPrice(ctx, symbol)
	if err != nil {
		return nil, &GatewayError{Op: "fetching reference price", Err: err}
	}

	s.audit.Record(Event{
		Action:   "TWAP_STRATEGY_START",
		Symbol:   symbol,
		Side:     params.Side,
		Quantity: params.TotalQuantity,
		Price:    initialPrice,
		Status:   "RUNNING",
	})

	builder := &resultBuilder{refStart: initialPrice}
	start := time.Now()
	stopped := false

	for i, slice := range plan {
		if err := s.waitUntil(ctx, start.Add(slice.Delay)); err != nil {
			s.logger.WithField("remaining", len(plan)-i).Info("TWAP stopped, skipping remaining slices")
			stopped = true
			break
		}

		builder.attempt()
		if price, ok := s.executeSlice(ctx, symbol, params.Side, slice.Quantity, i+1, len(plan)); ok {
			builder.fill(slice.Quantity, price)
		}
	}

	// Final reference price is best effort; the start price stands in if
	// the venue is unreachable at the end.
	builder.refEnd = builder.refStart
	if price, err := s.client.GetLastPrice(ctx, symbol); err == nil {
		builder.refEnd = price
	}

	result := builder.build()

	s.audit.Record(Event{
		Action:   "TWAP_STRATEGY_COMPLETE",
		Symbol:   symbol,
		Side:     params.Side,
		Quantity: result.ExecutedQuantity,
		Price:    result.VolumeWeightedAvg,
		Status:   fmt.Sprintf("%d/%d", result.Succeeded, result.Attempted),
	})

	if !stopped && result.Attempted > 0 && result.Succeeded == 0 {
		return result, &GatewayError{Op: "executing plan", Err: fmt.Errorf("all %d slices failed", result.Attempted)}
	}
	if result.Succeeded < result.Attempted {
		return result, &PartialExecutionError{Attempted: result.Attempted, Succeeded: result.Succeeded}
	}
	return result, nil
}

// executeSlice places one market order and reports the reference price it
// executed against. A failure is logged and skipped; the schedule goes on.
func (s *TWAPScheduler) executeSlice(ctx context.Context, symbol string, side models.OrderSide, quantity float64, number, total int) (float64, bool) {
	price, err := s.client.GetLastPrice(ctx, symbol)
	if err != nil {
		s.sliceFailed(symbol, side, quantity, number, total, err)
		return 0, false
	}

	s.audit.Record(Event{
		Action:   fmt.Sprintf("TWAP_SLICE_%d_ATTEMPT", number),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		Status:   "PENDING",
	})

	order, err := s.client.PlaceOrder(ctx, &models.OrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     models.OrderTypeMarket,
		Quantity: quantity,
	})
	if err != nil {
		s.sliceFailed(symbol, side, quantity, number, total, err)
		return 0, false
	}

	// Prefer the venue's reported fill price when it has one.
	if order.AvgPrice > 0 {
		price = order.AvgPrice
	}

	s.audit.Record(Event{
		Action:   fmt.Sprintf("TWAP_SLICE_%d_SUCCESS", number),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		OrderID:  order.OrderID,
		Status:   string(order.Status),
	})

	s.logger.WithFields(logrus.Fields{
		"slice": fmt.Sprintf("%d/%d", number, total),
		"qty":   quantity,
		"price": price,
	}).Info("TWAP slice executed")

	return price, true
}

func (s *TWAPScheduler) sliceFailed(symbol string, side models.OrderSide, quantity float64, number, total int, err error) {
	s.audit.Record(Event{
		Action:   fmt.Sprintf("TWAP_SLICE_%d_FAILED", number),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Status:   "FAILED",
		Err:      err.Error(),
	})
	s.logger.WithError(err).WithField("slice", fmt.Sprintf("%d/%d", number, total)).Warn("TWAP slice failed, continuing with remaining slices")
}

func (s *TWAPScheduler) waitUntil(ctx context.Context, at time.Time) error {
	wait := time.Until(at)
	if wait <= 0 {
		// Still honor a stop signal between back-to-back slices.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
