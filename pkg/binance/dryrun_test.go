package binance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

func TestDryRunPlaceOrder(t *testing.T) {
	client := NewDryRunClient(FixedPrice(100), 5000)

	order, err := client.PlaceOrder(context.Background(), &models.OrderRequest{
		Symbol:   "BTCUSDT",
		Side:     models.OrderSideBuy,
		Type:     models.OrderTypeMarket,
		Quantity: 0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, "DRY_RUN_BUY_1", order.OrderID)
	assert.Equal(t, models.OrderStatusDryRun, order.Status)
	assert.InDelta(t, 0.5, order.ExecutedQty, 1e-9)
	assert.InDelta(t, 100, order.AvgPrice, 1e-9, "market fills report the simulated market price")
}

func TestDryRunOrderIDsAreSequential(t *testing.T) {
	client := NewDryRunClient(FixedPrice(100), 5000)

	first, err := client.PlaceOrder(context.Background(), &models.OrderRequest{
		Symbol: "BTCUSDT", Side: models.OrderSideBuy, Type: models.OrderTypeLimit, Quantity: 1, Price: 95,
	})
	require.NoError(t, err)
	second, err := client.PlaceOrder(context.Background(), &models.OrderRequest{
		Symbol: "BTCUSDT", Side: models.OrderSideSell, Type: models.OrderTypeLimit, Quantity: 1, Price: 105,
	})
	require.NoError(t, err)

	assert.Equal(t, "DRY_RUN_BUY_1", first.OrderID)
	assert.Equal(t, "DRY_RUN_SELL_2", second.OrderID)
	assert.InDelta(t, 95, first.AvgPrice, 1e-9, "limit fills echo the limit price")
}

func TestDryRunGetAndCancel(t *testing.T) {
	client := NewDryRunClient(FixedPrice(100), 5000)

	order, err := client.PlaceOrder(context.Background(), &models.OrderRequest{
		Symbol: "BTCUSDT", Side: models.OrderSideBuy, Type: models.OrderTypeLimit, Quantity: 1, Price: 95,
	})
	require.NoError(t, err)

	fetched, err := client.GetOrder(context.Background(), "BTCUSDT", order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, fetched.OrderID)

	require.NoError(t, client.CancelOrder(context.Background(), "BTCUSDT", order.OrderID))

	_, err = client.GetOrder(context.Background(), "BTCUSDT", order.OrderID)
	assert.True(t, IsOrderGone(err), "a canceled order is gone")
}

func TestDryRunUnknownOrderErrorsMatchVenueCodes(t *testing.T) {
	client := NewDryRunClient(FixedPrice(100), 5000)

	_, err := client.GetOrder(context.Background(), "BTCUSDT", "nope")
	assert.True(t, IsOrderGone(err))

	err = client.CancelOrder(context.Background(), "BTCUSDT", "nope")
	assert.True(t, IsOrderGone(err))
}

func TestDryRunBalanceAndPricePassthrough(t *testing.T) {
	client := NewDryRunClient(FixedPrice(42), 5000)

	price, err := client.GetLastPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 42, price, 1e-9)

	balance, err := client.GetAvailableBalance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 5000, balance, 1e-9)
}
