package trader

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/binance"
	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

var fastOCO = OCOOptions{
	PollInterval: time.Millisecond,
	MaxDuration:  time.Second,
}

func TestValidateOCOPrices(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		tp      float64
		sl      float64
		side    models.OrderSide
		valid   bool
	}{
		{"sell exit valid", 100, 110, 90, models.OrderSideSell, true},
		{"sell exit inverted", 100, 90, 110, models.OrderSideSell, false},
		{"sell tp at market", 100, 100, 90, models.OrderSideSell, false},
		{"sell sl at market", 100, 110, 100, models.OrderSideSell, false},
		{"buy exit valid", 100, 90, 110, models.OrderSideBuy, true},
		{"buy exit inverted", 100, 110, 90, models.OrderSideBuy, false},
		{"buy tp at market", 100, 100, 110, models.OrderSideBuy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOCOPrices(tt.current, tt.tp, tt.sl, tt.side)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
			}
		})
	}
}

func placeTestPair(t *testing.T, client binance.Client) *OCOPair {
	t.Helper()
	monitor := NewOCOMonitor(client, &recordSink{}, testLogger(), fastOCO)
	pair, err := monitor.Place(context.Background(), OCOParams{
		Symbol:     "BTCUSDT",
		Side:       models.OrderSideSell,
		Quantity:   0.01,
		TakeProfit: 110,
		StopLoss:   90,
	})
	require.NoError(t, err)
	return pair
}

func TestOCORejectsInvalidPricesBeforePlacement(t *testing.T) {
	client := newMockClient(100)
	monitor := NewOCOMonitor(client, &recordSink{}, testLogger(), fastOCO)

	_, err := monitor.Place(context.Background(), OCOParams{
		Symbol:     "BTCUSDT",
		Side:       models.OrderSideSell,
		Quantity:   0.01,
		TakeProfit: 90,
		StopLoss:   110,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, client.placedRequests(), "no order may reach the venue on invalid prices")
}

func TestOCOPlacesLimitAndStopMarketLegs(t *testing.T) {
	client := newMockClient(100)
	pair := placeTestPair(t, client)

	placed := client.placedRequests()
	require.Len(t, placed, 2)
	assert.Equal(t, models.OrderTypeLimit, placed[0].Type)
	assert.InDelta(t, 110, placed[0].Price, 1e-9)
	assert.Equal(t, models.OrderTypeStopMarket, placed[1].Type)
	assert.InDelta(t, 90, placed[1].StopPrice, 1e-9)
	assert.NotNil(t, pair.TakeProfit)
	assert.NotNil(t, pair.StopLoss)
}

func TestOCOTakeProfitFillCancelsStopLoss(t *testing.T) {
	client := newMockClient(100)
	pair := placeTestPair(t, client)

	client.setStatus(pair.TakeProfit.OrderID, models.OrderStatusFilled)

	outcome := pair.Wait(time.Second)
	assert.Equal(t, OCOOutcomeTakeProfit, outcome)
	assert.Equal(t, []string{pair.StopLoss.OrderID}, client.canceledIDs())
}

func TestOCOStopLossFillCancelsTakeProfit(t *testing.T) {
	client := newMockClient(100)
	pair := placeTestPair(t, client)

	client.setStatus(pair.StopLoss.OrderID, models.OrderStatusFilled)

	outcome := pair.Wait(time.Second)
	assert.Equal(t, OCOOutcomeStopLoss, outcome)
	assert.Equal(t, []string{pair.TakeProfit.OrderID}, client.canceledIDs())
}

func TestOCORaceBothLegsFilled(t *testing.T) {
	client := newMockClient(100)
	pair := placeTestPair(t, client)

	// Venue filled both before any cancel could land; cancels now answer
	// "unknown order", which must stay benign.
	client.setStatus(pair.TakeProfit.OrderID, models.OrderStatusFilled)
	client.setStatus(pair.StopLoss.OrderID, models.OrderStatusFilled)
	client.cancelErrs[pair.TakeProfit.OrderID] = &binance.APIError{Code: -2011, Message: "Unknown order sent."}
	client.cancelErrs[pair.StopLoss.OrderID] = &binance.APIError{Code: -2011, Message: "Unknown order sent."}

	outcome := pair.Wait(time.Second)
	assert.Equal(t, OCOOutcomeTakeProfit, outcome)

	cancels := client.canceledIDs()
	require.Len(t, cancels, 2, "exactly one cancel attempt per leg")
	assert.ElementsMatch(t, []string{pair.TakeProfit.OrderID, pair.StopLoss.OrderID}, cancels)
}

func TestOCOExternalCancellationEndsSupervision(t *testing.T) {
	client := newMockClient(100)
	pair := placeTestPair(t, client)

	client.setStatus(pair.TakeProfit.OrderID, models.OrderStatusCanceled)

	outcome := pair.Wait(time.Second)
	assert.Equal(t, OCOOutcomeExternal, outcome)
	assert.Empty(t, client.canceledIDs(), "no further action after external termination")
}

func TestOCOMonitorTimeoutLeavesOrdersLive(t *testing.T) {
	client := newMockClient(100)
	monitor := NewOCOMonitor(client, &recordSink{}, testLogger(), OCOOptions{
		PollInterval: time.Millisecond,
		MaxDuration:  20 * time.Millisecond,
	})
	pair, err := monitor.Place(context.Background(), OCOParams{
		Symbol: "BTCUSDT", Side: models.OrderSideSell, Quantity: 0.01, TakeProfit: 110, StopLoss: 90,
	})
	require.NoError(t, err)

	outcome := pair.Wait(time.Second)
	assert.Equal(t, OCOOutcomeTimeout, outcome)
	assert.Empty(t, client.canceledIDs(), "timeout is not a forced flatten")
}

func TestOCOStopLossRejectionCancelsTakeProfit(t *testing.T) {
	client := newMockClient(100)
	client.placeErrs[2] = fmt.Errorf("rejected")
	monitor := NewOCOMonitor(client, &recordSink{}, testLogger(), fastOCO)

	_, err := monitor.Place(context.Background(), OCOParams{
		Symbol: "BTCUSDT", Side: models.OrderSideSell, Quantity: 0.01, TakeProfit: 110, StopLoss: 90,
	})

	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	require.Len(t, client.canceledIDs(), 1, "take profit leg must not be left naked")
}

func TestOCODryRunSkipsSupervision(t *testing.T) {
	dry := binance.NewDryRunClient(binance.FixedPrice(100), 1_000_000)
	monitor := NewOCOMonitor(dry, &recordSink{}, testLogger(), fastOCO)

	pair, err := monitor.Place(context.Background(), OCOParams{
		Symbol: "BTCUSDT", Side: models.OrderSideSell, Quantity: 0.01, TakeProfit: 110, StopLoss: 90,
	})
	require.NoError(t, err)

	assert.Equal(t, OCOOutcomeDryRun, pair.Wait(time.Second))
	assert.Equal(t, models.OrderStatusDryRun, pair.TakeProfit.Status)
	assert.Equal(t, models.OrderStatusDryRun, pair.StopLoss.Status)
}
