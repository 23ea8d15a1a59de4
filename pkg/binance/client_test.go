package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *FuturesClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewFuturesClient("test-key", "test-secret", false)
	client.baseURL = server.URL
	return client
}

func TestSignMatchesKnownVector(t *testing.T) {
	client := NewFuturesClient("key", "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j", false)
	query := "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559"

	assert.Equal(t, "c8db56825ae71d6d79447849e617115f4a920fa2acdcab2b053c4b2838bd6b71", client.sign(query))
}

func TestGetLastPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Empty(t, r.Header.Get("X-MBX-APIKEY"), "ticker endpoint is public")
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"43251.10"}`))
	})

	price, err := client.GetLastPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 43251.10, price, 1e-9)
}

func TestPlaceOrderSignsAndParsesResponse(t *testing.T) {
	var got url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-MBX-APIKEY"))
		w.Write([]byte(`{
			"orderId": 283194212,
			"symbol": "BTCUSDT",
			"side": "BUY",
			"type": "LIMIT",
			"price": "43000.5",
			"origQty": "0.01",
			"executedQty": "0",
			"avgPrice": "0.00000",
			"status": "NEW",
			"timeInForce": "GTC",
			"updateTime": 1700000000000
		}`))
	})

	order, err := client.PlaceOrder(context.Background(), &models.OrderRequest{
		Symbol:      "BTCUSDT",
		Side:        models.OrderSideBuy,
		Type:        models.OrderTypeLimit,
		Quantity:    0.01,
		Price:       43000.5,
		TimeInForce: "GTC",
	})
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", got.Get("symbol"))
	assert.Equal(t, "BUY", got.Get("side"))
	assert.Equal(t, "0.01", got.Get("quantity"))
	assert.Equal(t, "43000.5", got.Get("price"))
	assert.NotEmpty(t, got.Get("timestamp"))
	assert.NotEmpty(t, got.Get("signature"))

	assert.Equal(t, "283194212", order.OrderID)
	assert.Equal(t, models.OrderStatusNew, order.Status)
	assert.InDelta(t, 43000.5, order.Price, 1e-9)
	assert.InDelta(t, 0.01, order.Quantity, 1e-9)
}

func TestPlaceOrderVenueRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-2019,"msg":"Margin is insufficient."}`))
	})

	_, err := client.PlaceOrder(context.Background(), &models.OrderRequest{
		Symbol: "BTCUSDT", Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Quantity: 100,
	})

	require.Error(t, err)
	assert.True(t, IsInsufficientFunds(err))
}

func TestCancelOrderUnknownOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-2011,"msg":"Unknown order sent."}`))
	})

	err := client.CancelOrder(context.Background(), "BTCUSDT", "283194212")
	assert.True(t, IsOrderGone(err))
}

func TestGetAvailableBalancePicksUSDT(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v2/balance", r.URL.Path)
		w.Write([]byte(`[
			{"asset":"BTC","availableBalance":"0.5"},
			{"asset":"USDT","availableBalance":"1287.33"}
		]`))
	})

	balance, err := client.GetAvailableBalance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1287.33, balance, 1e-9)
}

func TestFormatFloatNoExponent(t *testing.T) {
	assert.Equal(t, "0.001", formatFloat(0.001))
	assert.Equal(t, "100", formatFloat(100))
	assert.Equal(t, "43000.5", formatFloat(43000.5))
}
