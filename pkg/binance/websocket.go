package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// PriceStream keeps the latest traded price for one symbol from the venue's
// miniTicker websocket feed. It satisfies PriceSource, so long-running
// strategies can read reference prices without an extra REST round trip per
// poll cycle.
type PriceStream struct {
	url    string
	symbol string
	logger *logrus.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	lastPrice float64
	lastAt    time.Time
}

const streamBaseURL = "wss://fstream.binance.com/ws"

// staleAfter bounds how old a streamed price may be before readers fall back
// to an error instead of trading on it.
const staleAfter = 30 * time.Second

func NewPriceStream(symbol string, logger *logrus.Logger) *PriceStream {
	lower := strings.ToLower(symbol)
	return &PriceStream{
		url:    fmt.Sprintf("%s/%s@miniTicker", streamBaseURL, lower),
		symbol: symbol,
		logger: logger,
	}
}

func (ps *PriceStream) Connect(ctx context.Context) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.connected {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, ps.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to price stream: %w", err)
	}

	ps.conn = conn
	ps.connected = true

	go ps.readLoop(ctx)
	go ps.keepAlive(ctx)

	return nil
}

type miniTickerMessage struct {
	Symbol     string `json:"s"`
	ClosePrice string `json:"c"`
}

func (ps *PriceStream) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ps.Close()
			return
		default:
			var msg miniTickerMessage
			if err := ps.conn.ReadJSON(&msg); err != nil {
				ps.logger.WithError(err).Error("Failed to read price stream message")
				ps.handleDisconnect()
				return
			}

			price, err := strconv.ParseFloat(msg.ClosePrice, 64)
			if err != nil {
				ps.logger.WithError(err).WithField("raw", msg.ClosePrice).Warn("Unparseable stream price")
				continue
			}

			ps.mu.Lock()
			ps.lastPrice = price
			ps.lastAt = time.Now()
			ps.mu.Unlock()
		}
	}
}

func (ps *PriceStream) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ps.mu.Lock()
			if ps.connected {
				if err := ps.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					ps.logger.WithError(err).Error("Failed to ping price stream")
					ps.mu.Unlock()
					ps.handleDisconnect()
					return
				}
			}
			ps.mu.Unlock()
		}
	}
}

// GetLastPrice returns the most recent streamed price for the subscribed
// symbol. Requests for a different symbol or a stale/empty stream fail so
// callers can fall back to REST.
func (ps *PriceStream) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	if symbol != ps.symbol {
		return 0, fmt.Errorf("price stream is subscribed to %s, not %s", ps.symbol, symbol)
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.lastAt.IsZero() {
		return 0, fmt.Errorf("price stream has no data yet for %s", symbol)
	}
	if time.Since(ps.lastAt) > staleAfter {
		return 0, fmt.Errorf("price stream data for %s is stale", symbol)
	}
	return ps.lastPrice, nil
}

func (ps *PriceStream) handleDisconnect() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.connected = false
	if ps.conn != nil {
		ps.conn.Close()
	}
}

func (ps *PriceStream) Close() {
	ps.handleDisconnect()
}
