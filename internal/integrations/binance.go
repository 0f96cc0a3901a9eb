package integrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradetracker/journal-backend/internal/store"
	"github.com/tradetracker/journal-backend/pkg/types"
)

// BinanceBroker imports spot fills from Binance.
type BinanceBroker struct {
	client *binance.Client
	logger *zap.Logger
}

// NewBinanceBroker creates a Binance adapter from API credentials.
func NewBinanceBroker(apiKey, apiSecret string, logger *zap.Logger) *BinanceBroker {
	return &BinanceBroker{client: binance.NewClient(apiKey, apiSecret), logger: logger}
}

// BinanceFactory builds Binance adapters from stored credentials.
func BinanceFactory(creds store.Credentials, logger *zap.Logger) (Broker, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, fmt.Errorf("binance: %w: empty credentials", ErrAuthFailed)
	}
	return NewBinanceBroker(creds.APIKey, creds.APISecret, logger), nil
}

// Name implements Broker.
func (b *BinanceBroker) Name() string { return "binance" }

// Fills implements Broker. Binance trade IDs are stable per symbol, so
// the broker reference is "binance-<symbol>-<id>". Fills whose quantity
// is not a positive whole number of units are skipped with a warning:
// the journal counts whole shares/contracts, and truncating a fractional
// fill would journal a wrong quantity (or a zero one, which validation
// rejects and would wedge every subsequent sync on the same fill).
func (b *BinanceBroker) Fills(ctx context.Context, symbol string, since time.Time) ([]*types.TradeLeg, error) {
	svc := b.client.NewListTradesService().Symbol(symbol)
	if !since.IsZero() {
		svc = svc.StartTime(since.UnixMilli())
	}

	raw, err := svc.Do(ctx)
	if err != nil {
		return nil, mapBinanceError(err, "list trades")
	}

	legs := make([]*types.TradeLeg, 0, len(raw))
	for _, t := range raw {
		leg, err := binanceLeg(symbol, t)
		if err != nil {
			if errors.Is(err, errFractionalFill) {
				b.logger.Warn("Skipping fill with non-whole quantity",
					zap.String("symbol", symbol),
					zap.Int64("tradeID", t.ID),
					zap.String("quantity", t.Quantity))
				continue
			}
			return nil, err
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

// Quote implements Broker.
func (b *BinanceBroker) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, mapBinanceError(err, "list prices")
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("binance: no price for %s: %w", symbol, ErrUnavailable)
	}
	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: bad price %q for %s: %w", prices[0].Price, symbol, err)
	}
	return price, nil
}

// errFractionalFill marks a fill whose quantity whole units cannot
// represent. Callers skip these rather than fail the sync.
var errFractionalFill = errors.New("binance: fill quantity is not a positive whole number")

func binanceLeg(symbol string, t *binance.TradeV3) (*types.TradeLeg, error) {
	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return nil, fmt.Errorf("binance: bad fill price %q: %w", t.Price, err)
	}
	qty, err := decimal.NewFromString(t.Quantity)
	if err != nil {
		return nil, fmt.Errorf("binance: bad fill quantity %q: %w", t.Quantity, err)
	}
	if !qty.IsInteger() || qty.IntPart() <= 0 {
		return nil, fmt.Errorf("%w: %q", errFractionalFill, t.Quantity)
	}
	commission, err := decimal.NewFromString(t.Commission)
	if err != nil {
		return nil, fmt.Errorf("binance: bad fill commission %q: %w", t.Commission, err)
	}

	side := types.SideSell
	if t.IsBuyer {
		side = types.SideBuy
	}

	return &types.TradeLeg{
		Symbol:     symbol,
		Asset:      types.AssetStock,
		Side:       side,
		Quantity:   qty.IntPart(),
		Price:      price,
		Commission: commission,
		ExecutedAt: time.UnixMilli(t.Time).UTC(),
		Status:     types.StatusOpen,
		Strategy:   types.StrategyUntagged,
		BrokerRef:  fmt.Sprintf("binance-%s-%d", symbol, t.ID),
	}, nil
}

// mapBinanceError translates Binance API error codes into the package's
// error taxonomy so callers never depend on broker-specific codes.
func mapBinanceError(err error, operation string) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		var mapped error
		switch apiErr.Code {
		case -1003:
			mapped = ErrRateLimited
		case -1022, -2014, -2015:
			mapped = ErrAuthFailed
		}
		if mapped != nil {
			return fmt.Errorf("binance: %s (code %d): %w", operation, apiErr.Code, mapped)
		}
		return fmt.Errorf("binance: %s failed (code %d): %s: %w", operation, apiErr.Code, apiErr.Message, ErrUnavailable)
	}
	return fmt.Errorf("binance: %s failed: %w", operation, err)
}
