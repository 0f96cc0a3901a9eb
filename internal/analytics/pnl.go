// Package analytics provides the trade P/L and portfolio metrics engine.
//
// Everything in this package is a pure function of its inputs: no I/O, no
// retained state between calls, safe for concurrent use as long as callers
// do not mutate the input slices while a call is in flight.
package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradetracker/journal-backend/pkg/types"
)

// moneyPlaces is the fixed-point precision of monetary outputs.
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Calculator matches an opening trade leg against a closing leg (or a
// supplied mark price) and produces a single TradeResult.
type Calculator struct{}

// NewCalculator creates a new P/L calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// StockPnL calculates realized P/L for a matched stock pair. The matched
// quantity is the closing leg's quantity and must not exceed the opening
// leg's. Commissions are allocated proportionally for partial closes.
func (c *Calculator) StockPnL(opening, closing *types.TradeLeg) (*types.TradeResult, error) {
	if opening.Asset != types.AssetStock || closing.Asset != types.AssetStock {
		return nil, fmt.Errorf("%w: want stock legs", ErrWrongAsset)
	}
	if err := validatePair(opening, closing); err != nil {
		return nil, err
	}
	return c.pairResult(opening, closing, true), nil
}

// OptionPnL calculates realized P/L for a matched option pair. Cost basis
// and proceeds are scaled by each leg's contract multiplier. A closing
// price of exactly zero represents worthless expiration and is a valid
// result, not an error.
func (c *Calculator) OptionPnL(opening, closing *types.TradeLeg) (*types.TradeResult, error) {
	if opening.Asset != types.AssetOption || closing.Asset != types.AssetOption {
		return nil, fmt.Errorf("%w: want option legs", ErrWrongAsset)
	}
	if err := validatePair(opening, closing); err != nil {
		return nil, err
	}
	if !opening.Strike.Equal(closing.Strike) || !sameDay(opening.Expiry, closing.Expiry) || opening.Kind != closing.Kind {
		return nil, fmt.Errorf("%w: %s vs %s", ErrInstrumentMismatch, contractKey(opening), contractKey(closing))
	}
	res := c.pairResult(opening, closing, true)
	strike := opening.Strike
	expiry := opening.Expiry
	res.Strike = &strike
	res.Expiry = &expiry
	res.Kind = opening.Kind
	return res, nil
}

// UnrealizedPnL marks an open leg against a caller-supplied current price
// as of the given evaluation time. The result's Realized flag is false and
// the holding period runs to asOf.
func (c *Calculator) UnrealizedPnL(opening *types.TradeLeg, currentPrice decimal.Decimal, asOf time.Time) (*types.TradeResult, error) {
	if currentPrice.IsNegative() {
		return nil, fmt.Errorf("%w: current price %s", types.ErrNegativePrice, currentPrice)
	}
	synthetic := syntheticClose(opening, currentPrice, asOf)

	var res *types.TradeResult
	var err error
	switch opening.Asset {
	case types.AssetOption:
		res, err = c.OptionPnL(opening, synthetic)
	default:
		res, err = c.StockPnL(opening, synthetic)
	}
	if err != nil {
		return nil, err
	}
	res.Realized = false
	return res, nil
}

// ExpireWorthless calculates realized P/L for an option position that
// expired worthless at the given time: a total loss for a long position, a
// full premium keep for a short one.
func (c *Calculator) ExpireWorthless(opening *types.TradeLeg, at time.Time) (*types.TradeResult, error) {
	if opening.Asset != types.AssetOption {
		return nil, fmt.Errorf("%w: want an option leg", ErrWrongAsset)
	}
	return c.OptionPnL(opening, syntheticClose(opening, decimal.Zero, at))
}

// pairResult computes the result for a validated pair. Each side is
// scaled by its own leg's contract multiplier (1 for stocks), so a pair
// whose multipliers diverge after a contract adjustment still values each
// leg at its actual size. For a long pair the opening leg is the cost
// side; for a short pair (opened by a sale) the roles flip so that PnL is
// still proceeds minus cost basis.
func (c *Calculator) pairResult(opening, closing *types.TradeLeg, realized bool) *types.TradeResult {
	matched := decimal.NewFromInt(closing.Quantity)

	openGross := opening.Price.Mul(matched).Mul(legScale(opening))
	closeGross := closing.Price.Mul(matched).Mul(legScale(closing))
	openFee := allocateCommission(opening, closing.Quantity)
	closeFee := allocateCommission(closing, closing.Quantity)

	var costBasis, proceeds decimal.Decimal
	if opening.Side.IsPurchase() {
		costBasis = openGross.Add(openFee)
		proceeds = closeGross.Sub(closeFee)
	} else {
		proceeds = openGross.Sub(openFee)
		costBasis = closeGross.Add(closeFee)
	}

	costBasis = costBasis.Round(moneyPlaces)
	proceeds = proceeds.Round(moneyPlaces)
	pnl := proceeds.Sub(costBasis)

	var returnPct *decimal.Decimal
	if !costBasis.IsZero() {
		pct := pnl.Div(costBasis).Mul(hundred).Round(moneyPlaces)
		returnPct = &pct
	}

	return &types.TradeResult{
		Symbol:      opening.Symbol,
		Asset:       opening.Asset,
		CostBasis:   costBasis,
		Proceeds:    proceeds,
		PnL:         pnl,
		ReturnPct:   returnPct,
		HoldingDays: holdingDays(opening.ExecutedAt, closing.ExecutedAt),
		Realized:    realized,
		Quantity:    closing.Quantity,
		EntryPrice:  opening.Price,
		ExitPrice:   closing.Price,
		EntryAt:     opening.ExecutedAt,
		ExitAt:      closing.ExecutedAt,
		Strategy:    opening.Strategy,
	}
}

// validatePair checks the shared preconditions of a matched pair.
func validatePair(opening, closing *types.TradeLeg) error {
	if opening.Symbol != closing.Symbol {
		return fmt.Errorf("%w: %s vs %s", ErrSymbolMismatch, opening.Symbol, closing.Symbol)
	}
	if opening.Side.IsPurchase() == closing.Side.IsPurchase() {
		return fmt.Errorf("%w: %s then %s", ErrDirectionConflict, opening.Side, closing.Side)
	}
	matched := closing.Quantity
	if matched <= 0 || matched > opening.Quantity {
		return fmt.Errorf("%w: matched %d against opening %d", ErrInvalidQuantity, matched, opening.Quantity)
	}
	return nil
}

// legScale is the per-unit notional factor of a leg: the contract
// multiplier for options, 1 for stocks.
func legScale(leg *types.TradeLeg) decimal.Decimal {
	if leg.Asset == types.AssetOption {
		return decimal.NewFromInt(leg.Multiplier)
	}
	return decimal.NewFromInt(1)
}

// allocateCommission returns the leg's commission prorated to the matched
// quantity: commission * matched / total.
func allocateCommission(leg *types.TradeLeg, matched int64) decimal.Decimal {
	if leg.Quantity == matched {
		return leg.Commission
	}
	return leg.Commission.
		Mul(decimal.NewFromInt(matched)).
		Div(decimal.NewFromInt(leg.Quantity))
}

// holdingDays returns the whole-day calendar difference between the entry
// and exit dates, floored at zero.
func holdingDays(entry, exit time.Time) int {
	e := dateOf(entry)
	x := dateOf(exit)
	days := int(x.Sub(e).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return dateOf(a).Equal(dateOf(b))
}

// syntheticClose builds the closing leg implied by marking the opening leg
// at the given price, in the opposite direction and full quantity.
func syntheticClose(opening *types.TradeLeg, price decimal.Decimal, at time.Time) *types.TradeLeg {
	return &types.TradeLeg{
		Symbol:     opening.Symbol,
		Asset:      opening.Asset,
		Side:       closingSide(opening.Side),
		Quantity:   opening.Quantity,
		Price:      price,
		Commission: decimal.Zero,
		ExecutedAt: at,
		Strategy:   opening.Strategy,
		Strike:     opening.Strike,
		Expiry:     opening.Expiry,
		Kind:       opening.Kind,
		Multiplier: opening.Multiplier,
	}
}

func closingSide(opening types.TradeSide) types.TradeSide {
	switch opening {
	case types.SideBuyToOpen:
		return types.SideSellToClose
	case types.SideSellToOpen:
		return types.SideBuyToClose
	case types.SideSell:
		return types.SideBuy
	default:
		return types.SideSell
	}
}

func contractKey(leg *types.TradeLeg) string {
	return fmt.Sprintf("%s %s %s exp %s", leg.Symbol, leg.Kind, leg.Strike, dateOf(leg.Expiry).Format("2006-01-02"))
}
