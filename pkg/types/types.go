// Package types provides shared type definitions for the trade journal backend.
package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AssetKind represents the instrument class of a trade leg
type AssetKind string

const (
	AssetStock  AssetKind = "stock"
	AssetOption AssetKind = "option"
)

// TradeSide represents the direction of a trade leg
type TradeSide string

const (
	SideBuy         TradeSide = "buy"
	SideSell        TradeSide = "sell"
	SideBuyToOpen   TradeSide = "buy_to_open"
	SideSellToClose TradeSide = "sell_to_close"
	SideBuyToClose  TradeSide = "buy_to_close"
	SideSellToOpen  TradeSide = "sell_to_open"
)

// IsOpening reports whether the side opens a position. A plain buy opens a
// long; sell_to_open opens a short.
func (s TradeSide) IsOpening() bool {
	switch s {
	case SideBuy, SideBuyToOpen, SideSellToOpen:
		return true
	}
	return false
}

// IsClosing reports whether the side closes a position. A plain sell closes
// a long; buy_to_close covers a short.
func (s TradeSide) IsClosing() bool {
	switch s {
	case SideSell, SideSellToClose, SideBuyToClose:
		return true
	}
	return false
}

// IsPurchase reports whether the side pays money out.
func (s TradeSide) IsPurchase() bool {
	switch s {
	case SideBuy, SideBuyToOpen, SideBuyToClose:
		return true
	}
	return false
}

// OptionKind represents call or put
type OptionKind string

const (
	OptionCall OptionKind = "call"
	OptionPut  OptionKind = "put"
)

// TradeStatus represents the lifecycle state of a trade leg
type TradeStatus string

const (
	StatusOpen      TradeStatus = "open"
	StatusClosed    TradeStatus = "closed"
	StatusCancelled TradeStatus = "cancelled"
)

// StrategyTag labels the trading strategy a leg belongs to
type StrategyTag string

const (
	StrategyDayTrade      StrategyTag = "day_trade"
	StrategySwingTrade    StrategyTag = "swing_trade"
	StrategyPositionTrade StrategyTag = "position_trade"
	StrategyScalping      StrategyTag = "scalping"
	StrategyMomentum      StrategyTag = "momentum"
	StrategyBreakout      StrategyTag = "breakout"
	StrategyReversal      StrategyTag = "reversal"
	StrategyCoveredCall   StrategyTag = "covered_call"
	StrategyCashSecPut    StrategyTag = "cash_secured_put"
	StrategyLongCall      StrategyTag = "long_call"
	StrategyLongPut       StrategyTag = "long_put"
	StrategyOther         StrategyTag = "other"
	StrategyUntagged      StrategyTag = "untagged"
)

// DefaultMultiplier is the standard equity option contract size.
const DefaultMultiplier = 100

// Leg construction validation errors.
var (
	ErrEmptySymbol        = errors.New("symbol must not be empty")
	ErrNonPositiveQty     = errors.New("quantity must be positive")
	ErrNegativePrice      = errors.New("price must not be negative")
	ErrNegativeCommission = errors.New("commission must not be negative")
	ErrMissingOptionData  = errors.New("option leg requires strike, expiry and option kind")
	ErrInvalidMultiplier  = errors.New("multiplier must be positive")
)

// TradeLeg is one side (open or close) of a matched trade pair.
// Strike, Expiry, Kind and Multiplier are only meaningful for options.
type TradeLeg struct {
	ID         int64           `json:"id,omitempty"`
	Symbol     string          `json:"symbol"`
	Asset      AssetKind       `json:"asset"`
	Side       TradeSide       `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	ExecutedAt time.Time       `json:"executedAt"`
	AccountID  int64           `json:"accountId,omitempty"`
	Status     TradeStatus     `json:"status"`
	Strategy   StrategyTag     `json:"strategy"`
	Notes      string          `json:"notes,omitempty"`
	BrokerRef  string          `json:"brokerRef,omitempty"`

	Strike     decimal.Decimal `json:"strike,omitempty"`
	Expiry     time.Time       `json:"expiry,omitempty"`
	Kind       OptionKind      `json:"optionKind,omitempty"`
	Multiplier int64           `json:"multiplier,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Validate checks the construction invariants of a leg.
// A zero price is permitted: a closing option leg recorded at zero
// represents worthless expiration.
func (l *TradeLeg) Validate() error {
	if l.Symbol == "" {
		return ErrEmptySymbol
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("%w: got %d", ErrNonPositiveQty, l.Quantity)
	}
	if l.Price.IsNegative() {
		return fmt.Errorf("%w: got %s", ErrNegativePrice, l.Price)
	}
	if l.Commission.IsNegative() {
		return fmt.Errorf("%w: got %s", ErrNegativeCommission, l.Commission)
	}
	if l.Asset == AssetOption {
		if l.Strike.LessThanOrEqual(decimal.Zero) || l.Expiry.IsZero() || l.Kind == "" {
			return ErrMissingOptionData
		}
		if l.Multiplier <= 0 {
			return ErrInvalidMultiplier
		}
	}
	return nil
}

// NewStockLeg builds a validated stock trade leg.
func NewStockLeg(symbol string, side TradeSide, quantity int64, price, commission decimal.Decimal, executedAt time.Time) (*TradeLeg, error) {
	leg := &TradeLeg{
		Symbol:     symbol,
		Asset:      AssetStock,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Commission: commission,
		ExecutedAt: executedAt,
		Status:     StatusOpen,
		Strategy:   StrategyUntagged,
	}
	if err := leg.Validate(); err != nil {
		return nil, err
	}
	return leg, nil
}

// NewOptionLeg builds a validated option trade leg. A zero multiplier is
// replaced by the standard contract size of 100.
func NewOptionLeg(symbol string, side TradeSide, quantity int64, price, commission decimal.Decimal, executedAt time.Time, strike decimal.Decimal, expiry time.Time, kind OptionKind, multiplier int64) (*TradeLeg, error) {
	if multiplier == 0 {
		multiplier = DefaultMultiplier
	}
	leg := &TradeLeg{
		Symbol:     symbol,
		Asset:      AssetOption,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Commission: commission,
		ExecutedAt: executedAt,
		Status:     StatusOpen,
		Strategy:   StrategyUntagged,
		Strike:     strike,
		Expiry:     expiry,
		Kind:       kind,
		Multiplier: multiplier,
	}
	if err := leg.Validate(); err != nil {
		return nil, err
	}
	return leg, nil
}

// TradeResult is the output of a single P/L calculation. Immutable once
// produced; PnL always equals Proceeds minus CostBasis at two decimal
// places. ReturnPct is nil when the cost basis is zero: the division is
// undefined, not an error and not zero.
type TradeResult struct {
	Symbol      string           `json:"symbol"`
	Asset       AssetKind        `json:"asset"`
	CostBasis   decimal.Decimal  `json:"costBasis"`
	Proceeds    decimal.Decimal  `json:"proceeds"`
	PnL         decimal.Decimal  `json:"pnl"`
	ReturnPct   *decimal.Decimal `json:"returnPct"`
	HoldingDays int              `json:"holdingDays"`
	Realized    bool             `json:"realized"`
	Quantity    int64            `json:"quantity"`
	EntryPrice  decimal.Decimal  `json:"entryPrice"`
	ExitPrice   decimal.Decimal  `json:"exitPrice"`
	EntryAt     time.Time        `json:"entryAt"`
	ExitAt      time.Time        `json:"exitAt"`
	Strategy    StrategyTag      `json:"strategy,omitempty"`

	// Carried through for display only, never part of the P/L formula.
	Strike *decimal.Decimal `json:"strike,omitempty"`
	Expiry *time.Time       `json:"expiry,omitempty"`
	Kind   OptionKind       `json:"optionKind,omitempty"`
}

// EquityPoint is a point on the cumulative equity curve
type EquityPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Equity    decimal.Decimal `json:"equity"`
}

// TradeStatistics aggregates win/loss figures over a result sequence.
// ProfitFactor is nil when there are winners but no losers (gross loss is
// zero, the ratio is undefined/infinite); it is zero when there are no
// winners at all.
type TradeStatistics struct {
	TotalTrades   int              `json:"totalTrades"`
	WinningTrades int              `json:"winningTrades"`
	LosingTrades  int              `json:"losingTrades"`
	WinRate       decimal.Decimal  `json:"winRate"`
	AverageWin    decimal.Decimal  `json:"averageWin"`
	AverageLoss   decimal.Decimal  `json:"averageLoss"`
	LargestWin    decimal.Decimal  `json:"largestWin"`
	LargestLoss   decimal.Decimal  `json:"largestLoss"`
	ProfitFactor  *decimal.Decimal `json:"profitFactor"`
}

// DrawdownMetrics describes the maximum peak-to-trough decline of the
// equity curve. Zero value when the curve has fewer than two points.
type DrawdownMetrics struct {
	Amount   decimal.Decimal `json:"amount"`
	Percent  decimal.Decimal `json:"percent"`
	PeakAt   time.Time       `json:"peakAt"`
	TroughAt time.Time       `json:"troughAt"`
}

// PeriodPnL is the summed P/L for one calendar bucket. Slices of PeriodPnL
// preserve first-encountered chronological order; consumers wanting sorted
// output must sort explicitly.
type PeriodPnL struct {
	Period string          `json:"period"`
	PnL    decimal.Decimal `json:"pnl"`
}

// PortfolioReport is the full aggregate report over a result sequence.
// SharpeRatio is nil when the return series has zero variance.
type PortfolioReport struct {
	Statistics  *TradeStatistics `json:"statistics"`
	TotalPnL    decimal.Decimal  `json:"totalPnl"`
	Drawdown    *DrawdownMetrics `json:"drawdown"`
	SharpeRatio *decimal.Decimal `json:"sharpeRatio"`
	DailyPnL    []PeriodPnL      `json:"dailyPnl"`
	WeeklyPnL   []PeriodPnL      `json:"weeklyPnl"`
	MonthlyPnL  []PeriodPnL      `json:"monthlyPnl"`
	YearlyPnL   []PeriodPnL      `json:"yearlyPnl"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// StrategyPerformance aggregates results that share a strategy tag
type StrategyPerformance struct {
	Strategy      StrategyTag     `json:"strategy"`
	TotalTrades   int             `json:"totalTrades"`
	WinningTrades int             `json:"winningTrades"`
	LosingTrades  int             `json:"losingTrades"`
	WinRate       decimal.Decimal `json:"winRate"`
	TotalPnL      decimal.Decimal `json:"totalPnl"`
	AveragePnL    decimal.Decimal `json:"averagePnl"`
	MaxWin        decimal.Decimal `json:"maxWin"`
	MaxLoss       decimal.Decimal `json:"maxLoss"`
}

// Account is a brokerage account trades are journaled against
type Account struct {
	ID            int64     `json:"id,omitempty"`
	Name          string    `json:"name"`
	Broker        string    `json:"broker"`
	AccountNumber string    `json:"accountNumber"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// Position is a current holding, maintained by the storage layer from
// journaled trades. Quantity is negative for short positions.
type Position struct {
	ID           int64           `json:"id,omitempty"`
	Symbol       string          `json:"symbol"`
	Asset        AssetKind       `json:"asset"`
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	CurrentPrice decimal.Decimal `json:"currentPrice,omitempty"`
	AccountID    int64           `json:"accountId"`
	Status       TradeStatus     `json:"status"`
	OpenedAt     time.Time       `json:"openedAt,omitempty"`
	ClosedAt     time.Time       `json:"closedAt,omitempty"`
}

// IsShort reports whether the position is short.
func (p *Position) IsShort() bool { return p.Quantity < 0 }

// MarketValue returns the current market value of the position, or zero
// when no current price is known.
func (p *Position) MarketValue() decimal.Decimal {
	if p.CurrentPrice.IsZero() {
		return decimal.Zero
	}
	qty := p.Quantity
	if qty < 0 {
		qty = -qty
	}
	return p.CurrentPrice.Mul(decimal.NewFromInt(qty))
}
