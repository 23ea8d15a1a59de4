package trader

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

const (
	minQuantity = 0.001
	maxQuantity = 1_000_000
	maxPrice    = 10_000_000
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]+USDT$`)

// ValidateSymbol normalizes and checks a USDT-M futures symbol.
func ValidateSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", &ValidationError{Field: "symbol", Reason: "must be non-empty"}
	}
	if !strings.HasSuffix(symbol, "USDT") {
		return "", &ValidationError{Field: "symbol", Reason: fmt.Sprintf("%s must end with USDT for futures trading", symbol)}
	}
	if !symbolPattern.MatchString(symbol) {
		return "", &ValidationError{Field: "symbol", Reason: fmt.Sprintf("%s must contain only letters and numbers", symbol)}
	}
	if len(symbol) < 6 {
		return "", &ValidationError{Field: "symbol", Reason: fmt.Sprintf("%s is too short", symbol)}
	}
	return symbol, nil
}

func ValidateQuantity(quantity float64) error {
	if quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("must be positive, got %v", quantity)}
	}
	if quantity < minQuantity {
		return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("%v below minimum %v", quantity, minQuantity)}
	}
	if quantity > maxQuantity {
		return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("%v above maximum %v", quantity, float64(maxQuantity))}
	}
	return nil
}

func ValidatePrice(price float64) error {
	if price <= 0 {
		return &ValidationError{Field: "price", Reason: fmt.Sprintf("must be positive, got %v", price)}
	}
	if price > maxPrice {
		return &ValidationError{Field: "price", Reason: fmt.Sprintf("%v above maximum %v", price, float64(maxPrice))}
	}
	return nil
}

// ValidateSide normalizes a side string to BUY or SELL.
func ValidateSide(side string) (models.OrderSide, error) {
	normalized := models.OrderSide(strings.ToUpper(strings.TrimSpace(side)))
	if normalized != models.OrderSideBuy && normalized != models.OrderSideSell {
		return "", &ValidationError{Field: "side", Reason: fmt.Sprintf("%s must be BUY or SELL", side)}
	}
	return normalized, nil
}
