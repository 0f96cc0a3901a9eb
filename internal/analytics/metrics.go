package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradetracker/journal-backend/pkg/types"
)

// Granularity selects the calendar bucket for period P/L aggregation.
type Granularity string

const (
	// GranularityDay buckets by calendar date.
	GranularityDay Granularity = "day"
	// GranularityWeek buckets by ISO week (Monday start).
	GranularityWeek Granularity = "week"
	// GranularityMonth buckets by calendar year-month.
	GranularityMonth Granularity = "month"
	// GranularityYear buckets by calendar year.
	GranularityYear Granularity = "year"
)

// MetricsEngine derives aggregate statistics from an ordered-by-time
// sequence of TradeResults. It holds only its configuration: every method
// is a pure function of its arguments, so the engine is safe to share
// across goroutines.
type MetricsEngine struct {
	cfg types.AnalyticsConfig
}

// NewMetricsEngine creates a metrics engine from an explicit configuration.
// PeriodsPerYear must be positive; there is no default because the correct
// annualization factor depends on the bucket granularity the caller uses.
func NewMetricsEngine(cfg types.AnalyticsConfig) (*MetricsEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MetricsEngine{cfg: cfg}, nil
}

// TradeStatistics calculates win/loss counts, averages and the profit
// factor over the result sequence. Win rate is reported as a percentage
// and is zero for an empty sequence, not a fault.
func (m *MetricsEngine) TradeStatistics(results []*types.TradeResult) *types.TradeStatistics {
	stats := &types.TradeStatistics{}
	if len(results) == 0 {
		zero := decimal.Zero
		stats.ProfitFactor = &zero
		return stats
	}

	var grossProfit, grossLoss decimal.Decimal
	for _, r := range results {
		switch {
		case r.PnL.GreaterThan(decimal.Zero):
			stats.WinningTrades++
			grossProfit = grossProfit.Add(r.PnL)
			if r.PnL.GreaterThan(stats.LargestWin) {
				stats.LargestWin = r.PnL
			}
		case r.PnL.LessThan(decimal.Zero):
			stats.LosingTrades++
			grossLoss = grossLoss.Add(r.PnL)
			if r.PnL.LessThan(stats.LargestLoss) {
				stats.LargestLoss = r.PnL
			}
		}
	}

	stats.TotalTrades = len(results)
	stats.WinRate = decimal.NewFromInt(int64(stats.WinningTrades)).
		Div(decimal.NewFromInt(int64(stats.TotalTrades))).
		Mul(hundred).Round(moneyPlaces)

	if stats.WinningTrades > 0 {
		stats.AverageWin = grossProfit.Div(decimal.NewFromInt(int64(stats.WinningTrades))).Round(moneyPlaces)
	}
	if stats.LosingTrades > 0 {
		stats.AverageLoss = grossLoss.Div(decimal.NewFromInt(int64(stats.LosingTrades))).Round(moneyPlaces)
	}

	switch {
	case stats.WinningTrades == 0:
		zero := decimal.Zero
		stats.ProfitFactor = &zero
	case stats.LosingTrades == 0:
		// Gross loss is zero: the factor is undefined/infinite, reported
		// as nil rather than a fabricated large number.
		stats.ProfitFactor = nil
	default:
		pf := grossProfit.Div(grossLoss.Abs()).Round(moneyPlaces)
		stats.ProfitFactor = &pf
	}

	return stats
}

// EquityCurve builds the cumulative equity curve from the baseline equity,
// one point per result in input order, timestamped at each result's exit.
func (m *MetricsEngine) EquityCurve(results []*types.TradeResult) []types.EquityPoint {
	curve := make([]types.EquityPoint, 0, len(results))
	equity := m.cfg.BaselineEquity
	for _, r := range results {
		equity = equity.Add(r.PnL)
		curve = append(curve, types.EquityPoint{Timestamp: r.ExitAt, Equity: equity})
	}
	return curve
}

// MaxDrawdown walks the equity curve once tracking the running peak and
// returns the maximum peak-to-trough decline with its timestamps. Ties
// resolve to the earliest occurrence. The zero value is returned when the
// curve has fewer than two points.
func (m *MetricsEngine) MaxDrawdown(results []*types.TradeResult) *types.DrawdownMetrics {
	curve := m.EquityCurve(results)
	return m.drawdownFromCurve(curve)
}

// DrawdownFromCurve computes maximum drawdown over a prebuilt equity
// curve, for callers that already hold one.
func (m *MetricsEngine) DrawdownFromCurve(curve []types.EquityPoint) *types.DrawdownMetrics {
	return m.drawdownFromCurve(curve)
}

func (m *MetricsEngine) drawdownFromCurve(curve []types.EquityPoint) *types.DrawdownMetrics {
	dd := &types.DrawdownMetrics{}
	if len(curve) < 2 {
		return dd
	}

	peak := curve[0].Equity
	peakAt := curve[0].Timestamp
	for _, point := range curve {
		if point.Equity.GreaterThan(peak) {
			peak = point.Equity
			peakAt = point.Timestamp
		}
		decline := peak.Sub(point.Equity)
		if decline.GreaterThan(dd.Amount) {
			dd.Amount = decline
			dd.PeakAt = peakAt
			dd.TroughAt = point.Timestamp
			if peak.GreaterThan(decimal.Zero) {
				dd.Percent = decline.Div(peak).Mul(hundred).Round(moneyPlaces)
			}
		}
	}
	dd.Amount = dd.Amount.Round(moneyPlaces)
	return dd
}

// SharpeRatio computes the annualized Sharpe ratio from per-period returns
// of the equity curve: (mean - rf/periods) / stddev * sqrt(periods). It
// returns nil when there are fewer than two returns or the return series
// has zero variance; that is "not computable", distinct from a true zero.
// Ratio math runs in float64; only monetary figures carry exact decimals.
func (m *MetricsEngine) SharpeRatio(results []*types.TradeResult) *decimal.Decimal {
	returns := m.periodReturns(m.EquityCurve(results))
	if len(returns) < 2 {
		return nil
	}

	avg := mean(returns)
	std := sampleStdDev(returns, avg)
	if std == 0 {
		return nil
	}

	periods := float64(m.cfg.PeriodsPerYear)
	rf, _ := m.cfg.RiskFreeRate.Float64()
	sharpe := (avg - rf/periods) / std * math.Sqrt(periods)

	out := decimal.NewFromFloat(sharpe).Round(moneyPlaces)
	return &out
}

// PeriodPnL sums P/L per calendar bucket. Only periods containing at least
// one result appear, in first-encountered chronological order.
func (m *MetricsEngine) PeriodPnL(results []*types.TradeResult, granularity Granularity) []types.PeriodPnL {
	var buckets []types.PeriodPnL
	index := make(map[string]int)

	for _, r := range results {
		key := periodKey(r.ExitAt, granularity)
		if i, ok := index[key]; ok {
			buckets[i].PnL = buckets[i].PnL.Add(r.PnL)
			continue
		}
		index[key] = len(buckets)
		buckets = append(buckets, types.PeriodPnL{Period: key, PnL: r.PnL})
	}
	return buckets
}

// PortfolioReport assembles the full aggregate report: statistics, total
// P/L, drawdown, Sharpe ratio and all four period breakdowns.
func (m *MetricsEngine) PortfolioReport(results []*types.TradeResult) *types.PortfolioReport {
	total := decimal.Zero
	for _, r := range results {
		total = total.Add(r.PnL)
	}

	return &types.PortfolioReport{
		Statistics:  m.TradeStatistics(results),
		TotalPnL:    total.Round(moneyPlaces),
		Drawdown:    m.MaxDrawdown(results),
		SharpeRatio: m.SharpeRatio(results),
		DailyPnL:    m.PeriodPnL(results, GranularityDay),
		WeeklyPnL:   m.PeriodPnL(results, GranularityWeek),
		MonthlyPnL:  m.PeriodPnL(results, GranularityMonth),
		YearlyPnL:   m.PeriodPnL(results, GranularityYear),
		GeneratedAt: time.Now().UTC(),
	}
}

// periodReturns computes fractional per-period returns over the equity
// curve, starting from the configured baseline equity. Segments whose
// starting equity is zero are skipped rather than divided through.
func (m *MetricsEngine) periodReturns(curve []types.EquityPoint) []float64 {
	if len(curve) == 0 {
		return nil
	}
	returns := make([]float64, 0, len(curve))
	prev := m.cfg.BaselineEquity
	for _, point := range curve {
		if prev.IsZero() {
			prev = point.Equity
			continue
		}
		ret, _ := point.Equity.Sub(prev).Div(prev).Float64()
		returns = append(returns, ret)
		prev = point.Equity
	}
	return returns
}

func periodKey(t time.Time, granularity Granularity) string {
	u := t.UTC()
	switch granularity {
	case GranularityWeek:
		year, week := u.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case GranularityMonth:
		return u.Format("2006-01")
	case GranularityYear:
		return u.Format("2006")
	default:
		return u.Format("2006-01-02")
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStdDev(values []float64, avg float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sumSquares float64
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}
