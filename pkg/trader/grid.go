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

const (
	minGridLevels = 2
	maxGridLevels = 50
)

type GridParams struct {
	Symbol           string
	LowerPrice       float64
	UpperPrice       float64
	Levels           int
	QuantityPerLevel float64
	Duration         time.Duration
}

// GridOptions tunes the supervision loop.
type GridOptions struct {
	PollInterval time.Duration
	// Replacement orders are offset from the filled price by this
	// percentage, then clamped into the grid range.
	ReplaceOffsetPct float64
}

func DefaultGridOptions() GridOptions {
	return GridOptions{
		PollInterval:     30 * time.Second,
		ReplaceOffsetPct: 0.5,
	}
}

// gridLevel holds at most one live order. Levels are compared by identity,
// never by recomputing float prices.
type gridLevel struct {
	price float64
	side  models.OrderSide
	order *models.Order
}

// GridStatus is a point-in-time snapshot for status display.
type GridStatus struct {
	Symbol       string  `json:"symbol"`
	LowerPrice   float64 `json:"lower_price"`
	UpperPrice   float64 `json:"upper_price"`
	CurrentPrice float64 `json:"current_price"`
	ActiveOrders int     `json:"active_orders"`
	BuyOrders    int     `json:"buy_orders"`
	SellOrders   int     `json:"sell_orders"`
	Cycles       int     `json:"cycles"`
	Running      bool    `json:"running"`
}

/// GridBot maintains an oscillation ladder: BUY limits below the market,
// SELL limits above, each fill re-armed with an opposite-side order at an
// offset price. Run blocks until the configured duration elapses or the
// context is canceled, then tears the ladder down.
type GridBot struct {
	client binance.Client
	audit  Sink
	logger *logrus.Logger
	params GridParams
	opts   GridOptions

	buyPrices  []float64
	sellPrices []float64

	mu        sync.Mutex
	levels    []*gridLevel
	cycles    int
	running   bool
	lastPrice float64
}

func NewGridBot(client binance.Client, audit Sink, logger *logrus.Logger, params GridParams, opts GridOptions) (*GridBot, error) {
	symbol, err := ValidateSymbol(params.Symbol)
	if err != nil {
		return nil, err
	}
	params.Symbol = symbol
	if err := ValidateQuantity(params.QuantityPerLevel); err != nil {
		return nil, err
	}
	if err := ValidatePrice(params.LowerPrice); err != nil {
		return nil, err
	}
	if err := ValidatePrice(params.UpperPrice); err != nil {
		return nil, err
	}
	if params.LowerPrice >= params.UpperPrice {
		return nil, &ValidationError{Field: "lowerPrice", Reason: "must be less than upper price"}
	}
	if params.Levels < minGridLevels {
		return nil, &ValidationError{Field: "levels", Reason: fmt.Sprintf("minimum %d grid levels required", minGridLevels)}
	}
	if params.Levels > maxGridLevels {
		return nil, &ValidationError{Field: "levels", Reason: fmt.Sprintf("maximum %d grid levels allowed", maxGridLevels)}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultGridOptions().PollInterval
	}
	if opts.ReplaceOffsetPct <= 0 {
		opts.ReplaceOffsetPct = DefaultGridOptions().ReplaceOffsetPct
	}

	bot := &GridBot{
		client: client,
		audit:  audit,
		logger: logger,
		params: params,
		opts:   opts,
	}
	bot.buyPrices, bot.sellPrices = CalculateGridLevels(params.LowerPrice, params.UpperPrice, params.Levels)

	logger.WithFields(logrus.Fields{
		"symbol": params.Symbol,
		"buys":   len(bot.buyPrices),
		"sells":  len(bot.sellPrices),
	}).Info("Grid calculated")

	return bot, nil
}

// CalculateGridLevels computes count equally spaced prices across
// [lower, upper]. The lower floor(count/2) levels are BUY, the rest SELL;
// a level exactly on the midpoint boundary leans to the lower (BUY) half
// only when integer division puts it there.
func CalculateGridLevels(lower, upper float64, count int) (buys, sells []float64) {
	step := (upper - lower) / float64(count-1)
	for i := 0; i < count; i++ {
		price := lower + float64(i)*step
		if i < count/2 {
			buys = append(buys, price)
		} else {
			sells = append(sells, price)
		}
	}
	return buys, sells
}

// ReplacementPrice offsets a filled level's price for the re-armed
// opposite-side order and clamps it into the grid range.
func ReplacementPrice(filledPrice, offsetPct, lower, upper float64, newSide models.OrderSide) float64 {
	var price float64
	if newSide == models.OrderSideBuy {
		price = filledPrice * (1 - offsetPct/100)
	} else {
		price = filledPrice * (1 + offsetPct/100)
	}
	if price < lower {
		price = lower
	}
	if price > upper {
		price = upper
	}
	return price
}

// Initialize fetches the reference price and arms the ladder: BUY limits at
// levels strictly below reference, SELL limits strictly above. Wrong-side
// levels stay unplaced. Only the reference fetch is fatal; individual
// placement failures are logged and skipped.
func (g *GridBot) Initialize(ctx context.Context) error {
	currentPrice, err := g.client.GetLastPrice(ctx, g.params.Symbol)
	if err != nil {
		return &GatewayError{Op: "fetching reference price", Err: err}
	}

	g.mu.Lock()
	g.lastPrice = currentPrice
	g.mu.Unlock()

	g.logger.WithFields(logrus.Fields{
		"symbol": g.params.Symbol,
		"price":  currentPrice,
		"range":  fmt.Sprintf("%v-%v", g.params.LowerPrice, g.params.UpperPrice),
		"levels": g.params.Levels,
	}).Info("Initializing grid")

	var placed []*gridLevel
	for _, price := range g.buyPrices {
		if price < currentPrice {
			if lvl := g.placeLevel(ctx, models.OrderSideBuy, price); lvl != nil {
				placed = append(placed, lvl)
			}
		}
	}
	for _, price := range g.sellPrices {
		if price > currentPrice {
			if lvl := g.placeLevel(ctx, models.OrderSideSell, price); lvl != nil {
				placed = append(placed, lvl)
			}
		}
	}

	g.mu.Lock()
	g.levels = placed
	g.mu.Unlock()

	g.audit.Record(Event{
		Action:   "GRID_INITIALIZED",
		Symbol:   g.params.Symbol,
		Quantity: float64(len(placed)) * g.params.QuantityPerLevel,
		Status:   fmt.Sprintf("ORDERS:%d", len(placed)),
	})
	g.logger.WithField("orders", len(placed)).Info("Grid initialized")

	return nil
}

func (g *GridBot) placeLevel(ctx context.Context, side models.OrderSide, price float64) *gridLevel {
	order, err := g.client.PlaceOrder(ctx, &models.OrderRequest{
		Symbol:      g.params.Symbol,
		Side:        side,
		Type:        models.OrderTypeLimit,
		Quantity:    g.params.QuantityPerLevel,
		Price:       price,
		TimeInForce: "GTC",
	})
	if err != nil {
		g.audit.Record(Event{
			Action:   fmt.Sprintf("GRID_%s_ORDER_FAILED", side),
			Symbol:   g.params.Symbol,
			Side:     side,
			Quantity: g.params.QuantityPerLevel,
			Price:    price,
			Status:   "FAILED",
			Err:      err.Error(),
		})
		g.logger.WithError(err).WithField("price", price).Error("Failed to place grid order")
		return nil
	}

	g.audit.Record(Event{
		Action:   fmt.Sprintf("GRID_%s_ORDER_PLACED", side),
		Symbol:   g.params.Symbol,
		Side:     side,
		Quantity: g.params.QuantityPerLevel,
		Price:    price,
		OrderID:  order.OrderID,
		Status:   string(order.Status),
	})

	return &gridLevel{price: price, side: side, order: order}
}

// Run initializes the ladder and supervises it until the run duration
// elapses or ctx is canceled, then cancels every still-live order.
func (g *GridBot) Run(ctx context.Context) error {
	if err := g.Initialize(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	g.running = true
	g.mu.Unlock()

	g.logger.WithFields(logrus.Fields{
		"duration": g.params.Duration,
		"interval": g.opts.PollInterval,
	}).Info("Grid trading started")

	endTimer := time.NewTimer(g.params.Duration)
	defer endTimer.Stop()
	ticker := time.NewTicker(g.opts.PollInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("Grid trading stopped by signal")
			break loop
		case <-endTimer.C:
			g.logger.Info("Grid run duration elapsed")
			break loop
		case <-ticker.C:
			g.cycle(ctx)
		}
	}

	// Teardown must proceed even though the run context may already be
	// canceled.
	teardownCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	canceled := g.Stop(teardownCtx)

	g.mu.Lock()
	cycles := g.cycles
	g.mu.Unlock()
	g.logger.WithFields(logrus.Fields{
		"cycles":   cycles,
		"canceled": canceled,
	}).Info("Grid trading completed")

	return nil
}

func (g *GridBot) cycle(ctx context.Context) {
	g.mu.Lock()
	g.cycles++
	cycles := g.cycles
	active := len(g.levels)
	g.mu.Unlock()

	currentPrice, err := g.client.GetLastPrice(ctx, g.params.Symbol)
	if err != nil {
		g.logger.WithError(err).Warn("Could not fetch reference price this cycle")
		return
	}

	g.mu.Lock()
	g.lastPrice = currentPrice
	g.mu.Unlock()

	// Out-of-range price is a warning, not a stop: the ladder keeps
	// working on whichever side price currently occupies.
	if currentPrice < g.params.LowerPrice || currentPrice > g.params.UpperPrice {
		g.logger.WithFields(logrus.Fields{
			"price": currentPrice,
			"range": fmt.Sprintf("%v-%v", g.params.LowerPrice, g.params.UpperPrice),
		}).Warn("Price outside grid range")
	}

	g.logger.WithFields(logrus.Fields{
		"cycle":  cycles,
		"price":  currentPrice,
		"active": active,
	}).Debug("Grid cycle")

	g.checkAndReplace(ctx)

	if cycles%10 == 0 {
		g.logStatus()
	}
}

// checkAndReplace polls every live level sequentially and re-arms filled
// ones with an opposite-side order at an offset price.
func (g *GridBot) checkAndReplace(ctx context.Context) {
	g.mu.Lock()
	live := append([]*gridLevel(nil), g.levels...)
	g.mu.Unlock()

	var keep []*gridLevel
	for _, lvl := range live {
		order, err := g.client.GetOrder(ctx, g.params.Symbol, lvl.order.OrderID)
		if err != nil {
			g.logger.WithError(err).WithField("order_id", lvl.order.OrderID).Warn("Failed to check grid order")
			keep = append(keep, lvl)
			continue
		}

		switch order.Status {
		case models.OrderStatusFilled:
			g.audit.Record(Event{
				Action:   fmt.Sprintf("GRID_%s_ORDER_FILLED", lvl.side),
				Symbol:   g.params.Symbol,
				Side:     lvl.side,
				Quantity: g.params.QuantityPerLevel,
				Price:    lvl.price,
				OrderID:  order.OrderID,
				Status:   string(order.Status),
			})
			if replacement := g.replaceLevel(ctx, lvl); replacement != nil {
				keep = append(keep, replacement)
			}
		case models.OrderStatusCanceled, models.OrderStatusExpired:
			drift := &SupervisionDrift{OrderID: order.OrderID, Status: order.Status}
			g.logger.WithField("price", lvl.price).Warn(drift.Error())
		default:
			keep = append(keep, lvl)
		}
	}

	g.mu.Lock()
	g.levels = keep
	g.mu.Unlock()
}

// replaceLevel arms the opposite side after a fill: a new BUY slightly
// below the filled price, or a new SELL slightly above, clamped into range.
// The new order gets a fresh synthetic level keyed at the replacement price.
func (g *GridBot) replaceLevel(ctx context.Context, filled *gridLevel) *gridLevel {
	newSide := filled.side.Opposite()
	newPrice := ReplacementPrice(filled.price, g.opts.ReplaceOffsetPct, g.params.LowerPrice, g.params.UpperPrice, newSide)

	replacement := g.placeLevel(ctx, newSide, newPrice)
	if replacement != nil {
		g.logger.WithFields(logrus.Fields{
			"old_side":  filled.side,
			"old_price": filled.price,
			"new_side":  newSide,
			"new_price": newPrice,
		}).Info("Replaced filled grid order")
	}
	return replacement
}

// Stop cancels every still-live order, best effort. Cancellation failures
// are logged and teardown continues through the remaining orders.
func (g *GridBot) Stop(ctx context.Context) int {
	g.mu.Lock()
	live := g.levels
	g.levels = nil
	g.running = false
	g.mu.Unlock()

	canceled := 0
	for _, lvl := range live {
		err := g.client.CancelOrder(ctx, g.params.Symbol, lvl.order.OrderID)
		if err != nil && !binance.IsOrderGone(err) {
			g.logger.WithError(err).WithField("order_id", lvl.order.OrderID).Error("Failed to cancel grid order")
			continue
		}
		canceled++
	}

	g.audit.Record(Event{
		Action: "GRID_STOPPED",
		Symbol: g.params.Symbol,
		Status: fmt.Sprintf("CANCELED:%d", canceled),
	})

	return canceled
}

func (g *GridBot) logStatus() {
	status := g.Status()
	g.logger.WithFields(logrus.Fields{
		"price":  status.CurrentPrice,
		"active": status.ActiveOrders,
		"buys":   status.BuyOrders,
		"sells":  status.SellOrders,
	}).Info("Grid status")
}

// Status returns a snapshot safe to read from other goroutines (e.g. the
// status API) while the bot runs.
func (g *GridBot) Status() GridStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	status := GridStatus{
		Symbol:       g.params.Symbol,
		LowerPrice:   g.params.LowerPrice,
		UpperPrice:   g.params.UpperPrice,
		CurrentPrice: g.lastPrice,
		ActiveOrders: len(g.levels),
		Cycles:       g.cycles,
		Running:      g.running,
	}
	for _, lvl := range g.levels {
		if lvl.side == models.OrderSideBuy {
			status.BuyOrders++
		} else {
			status.SellOrders++
		}
	}
	return status
}
