package trader

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type countingHook struct {
	entries []*logrus.Entry
}

func (h *countingHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *countingHook) Fire(entry *logrus.Entry) error {
	h.entries = append(h.entries, entry)
	return nil
}

func TestLogSinkDeliversEvents(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hook := &countingHook{}
	logger.AddHook(hook)

	sink := NewLogSink(logger, 8)
	sink.Record(Event{Action: "MARKET_ORDER_SUCCESS", Symbol: "BTCUSDT", OrderID: "1", Status: "FILLED"})
	sink.Record(Event{Action: "MARKET_ORDER_FAILED", Symbol: "BTCUSDT", Status: "FAILED", Err: "boom"})
	sink.Close()

	assert.Len(t, hook.entries, 2)
	assert.Equal(t, "MARKET_ORDER_SUCCESS", hook.entries[0].Data["action"])
	assert.Equal(t, logrus.ErrorLevel, hook.entries[1].Level, "failed events log at error level")
}

func TestLogSinkNeverBlocksWhenFull(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sink := &LogSink{
		logger: logger,
		ch:     make(chan Event, 1),
		done:   make(chan struct{}),
	}
	// No drain goroutine: the channel stays full after the first event.

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			sink.Record(Event{Action: "GRID_ORDER_PLACED"})
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full sink")
	}
	assert.Equal(t, uint64(99), sink.dropped.Load())
}
