package trader

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

// Event is one order-lifecycle transition: attempt, success, failure, fill
// or cancel.
type Event struct {
	Action   string
	Symbol   string
	Side     models.OrderSide
	Quantity float64
	Price    float64
	OrderID  string
	Status   string
	Err      string
}

// Sink receives audit events from strategy loops. Record must never block
// and never fail; a slow sink drops events rather than stalling trading.
type Sink interface {
	Record(Event)
}

// LogSink writes audit events as structured logrus entries. Delivery is
// decoupled from the caller through a buffered channel.
type LogSink struct {
	logger  *logrus.Logger
	ch      chan Event
	done    chan struct{}
	dropped atomic.Uint64
}

func NewLogSink(logger *logrus.Logger, buffer int) *LogSink {
	if buffer <= 0 {
		buffer = 256
	}
	s := &LogSink{
		logger: logger,
		ch:     make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *LogSink) Record(ev Event) {
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

func (s *LogSink) drain() {
	defer close(s.done)
	for ev := range s.ch {
		fields := logrus.Fields{
			"action": ev.Action,
			"symbol": ev.Symbol,
			"side":   ev.Side,
			"qty":    ev.Quantity,
			"status": ev.Status,
		}
		if ev.Price > 0 {
			fields["price"] = ev.Price
		}
		if ev.OrderID != "" {
			fields["order_id"] = ev.OrderID
		}
		entry := s.logger.WithFields(fields)
		if ev.Err != "" {
			entry.WithField("error", ev.Err).Error("order event")
		} else {
			entry.Info("order event")
		}
	}
}

// Close flushes buffered events and stops the sink. Dropped-event count is
// logged so silent loss is visible.
func (s *LogSink) Close() {
	close(s.ch)
	<-s.done
	if n := s.dropped.Load(); n > 0 {
		s.logger.WithField("dropped", n).Warn("audit sink dropped events under load")
	}
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(Event) {}
