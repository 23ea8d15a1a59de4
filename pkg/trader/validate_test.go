package trader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		valid bool
	}{
		{"canonical", "BTCUSDT", "BTCUSDT", true},
		{"lowercase normalized", "ethusdt", "ETHUSDT", true},
		{"surrounding whitespace", "  BTCUSDT ", "BTCUSDT", true},
		{"numeric base asset", "1000PEPEUSDT", "1000PEPEUSDT", true},
		{"empty", "", "", false},
		{"wrong quote asset", "BTCEUR", "", false},
		{"punctuation", "BTC-USDT", "", false},
		{"quote only", "USDT", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateSymbol(tt.input)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			} else {
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
			}
		})
	}
}

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, ValidateQuantity(minQuantity))
	assert.NoError(t, ValidateQuantity(1))
	assert.NoError(t, ValidateQuantity(maxQuantity))

	for _, q := range []float64{0, -1, minQuantity / 2, maxQuantity + 1} {
		var verr *ValidationError
		assert.ErrorAs(t, ValidateQuantity(q), &verr, "quantity %v", q)
	}
}

func TestValidatePrice(t *testing.T) {
	assert.NoError(t, ValidatePrice(0.0001))
	assert.NoError(t, ValidatePrice(maxPrice))

	for _, p := range []float64{0, -100, maxPrice + 1} {
		var verr *ValidationError
		assert.ErrorAs(t, ValidatePrice(p), &verr, "price %v", p)
	}
}

func TestValidateSide(t *testing.T) {
	for input, want := range map[string]models.OrderSide{
		"BUY":    models.OrderSideBuy,
		"buy":    models.OrderSideBuy,
		" sell ": models.OrderSideSell,
		"SELL":   models.OrderSideSell,
	} {
		got, err := ValidateSide(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got)
	}

	for _, input := range []string{"", "hold", "LONG"} {
		_, err := ValidateSide(input)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "input %q", input)
	}
}
