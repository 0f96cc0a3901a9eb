package integrations

import (
	"testing"

	binance "github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinanceLeg(t *testing.T) {
	fill := &binance.TradeV3{
		ID:         42,
		Price:      "61250.10",
		Quantity:   "3",
		Commission: "0.05",
		Time:       1709305200000,
		IsBuyer:    true,
	}

	leg, err := binanceLeg("BTCUSDT", fill)
	require.NoError(t, err)

	assert.Equal(t, int64(3), leg.Quantity)
	assert.Equal(t, "61250.1", leg.Price.String())
	assert.Equal(t, "binance-BTCUSDT-42", leg.BrokerRef)
	require.NoError(t, leg.Validate())
}

func TestBinanceLegRejectsFractionalQuantity(t *testing.T) {
	// Sub-unit and between-unit fills both fail: truncation would journal
	// a zero quantity or a wrong one.
	for _, quantity := range []string{"0.5", "1.5", "0"} {
		fill := &binance.TradeV3{
			ID:         7,
			Price:      "100",
			Quantity:   quantity,
			Commission: "0",
		}
		_, err := binanceLeg("BTCUSDT", fill)
		assert.ErrorIs(t, err, errFractionalFill, "quantity %s", quantity)
	}
}
