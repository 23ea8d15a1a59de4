package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

// Client is the capability set strategies consume from the venue.
// Implementations must be safe for use by multiple concurrently running
// strategy instances; each instance serializes its own calls.
type Client interface {
	GetLastPrice(ctx context.Context, symbol string) (float64, error)
	PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, symbol, orderID string) (*models.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	GetAvailableBalance(ctx context.Context) (float64, error)
}

type FuturesClient struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewFuturesClient returns a REST client for Binance USDT-M futures.
// Requests are signed with HMAC-SHA256 over the query string and throttled
// to stay under the venue's request weight limit.
func NewFuturesClient(apiKey, apiSecret string, testnet bool) *FuturesClient {
	baseURL := "https://fapi.binance.com"
	if testnet {
		baseURL = "https://testnet.binancefuture.com"
	}

	return &FuturesClient{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
}

func (c *FuturesClient) sign(query string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *FuturesClient) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")

	query := params.Encode()
	query += "&signature=" + c.sign(query)

	return c.do(ctx, method, path+"?"+query, true)
}

func (c *FuturesClient) do(ctx context.Context, method, pathAndQuery string, signed bool) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+pathAndQuery, nil)
	if err != nil {
		return nil, err
	}
	if signed {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("venue request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading venue response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Code != 0 {
			return nil, &apiErr
		}
		return nil, fmt.Errorf("venue returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func (c *FuturesClient) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	body, err := c.do(ctx, http.MethodGet, "/fapi/v1/ticker/price?symbol="+url.QueryEscape(symbol), false)
	if err != nil {
		return 0, err
	}

	var ticker tickerResponse
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, fmt.Errorf("decoding ticker: %w", err)
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ticker price %q: %w", ticker.Price, err)
	}
	return price, nil
}

type orderResponse struct {
	OrderID     int64  `json:"orderId"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	Price       string `json:"price"`
	StopPrice   string `json:"stopPrice"`
	OrigQty     string `json:"origQty"`
	ExecutedQty string `json:"executedQty"`
	AvgPrice    string `json:"avgPrice"`
	Status      string `json:"status"`
	TimeInForce string `json:"timeInForce"`
	UpdateTime  int64  `json:"updateTime"`
}

func (r *orderResponse) toOrder() *models.Order {
	parse := func(s string) float64 {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	return &models.Order{
		OrderID:     strconv.FormatInt(r.OrderID, 10),
		Symbol:      r.Symbol,
		Side:        models.OrderSide(r.Side),
		Type:        models.OrderType(r.Type),
		Price:       parse(r.Price),
		StopPrice:   parse(r.StopPrice),
		Quantity:    parse(r.OrigQty),
		ExecutedQty: parse(r.ExecutedQty),
		AvgPrice:    parse(r.AvgPrice),
		Status:      models.OrderStatus(r.Status),
		TimeInForce: r.TimeInForce,
		UpdatedAt:   time.UnixMilli(r.UpdateTime),
	}
}

func (c *FuturesClient) PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.Order, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))
	params.Set("quantity", formatFloat(req.Quantity))
	if req.Price > 0 {
		params.Set("price", formatFloat(req.Price))
	}
	if req.StopPrice > 0 {
		params.Set("stopPrice", formatFloat(req.StopPrice))
	}
	if req.TimeInForce != "" {
		params.Set("timeInForce", req.TimeInForce)
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding order response: %w", err)
	}
	order := resp.toOrder()
	order.CreatedAt = time.Now()
	return order, nil
}

func (c *FuturesClient) GetOrder(ctx context.Context, symbol, orderID string) (*models.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v1/order", params)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding order status: %w", err)
	}
	return resp.toOrder(), nil
}

func (c *FuturesClient) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	_, err := c.doSigned(ctx, http.MethodDelete, "/fapi/v1/order", params)
	return err
}

type balanceEntry struct {
	Asset            string `json:"asset"`
	AvailableBalance string `json:"availableBalance"`
}

func (c *FuturesClient) GetAvailableBalance(ctx context.Context) (float64, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v2/balance", nil)
	if err != nil {
		return 0, err
	}

	var entries []balanceEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return 0, fmt.Errorf("decoding balance: %w", err)
	}

	for _, e := range entries {
		if e.Asset == "USDT" {
			v, err := strconv.ParseFloat(e.AvailableBalance, 64)
			if err != nil {
				return 0, fmt.Errorf("parsing balance %q: %w", e.AvailableBalance, err)
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("no USDT balance entry in venue response")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
