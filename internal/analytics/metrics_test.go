package analytics_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradetracker/journal-backend/internal/analytics"
	"github.com/tradetracker/journal-backend/pkg/types"
)

func newEngine(t *testing.T, baseline string) *analytics.MetricsEngine {
	t.Helper()
	engine, err := analytics.NewMetricsEngine(types.AnalyticsConfig{
		RiskFreeRate:   decimal.Zero,
		PeriodsPerYear: 252,
		BaselineEquity: decimal.RequireFromString(baseline),
	})
	if err != nil {
		t.Fatalf("failed to build metrics engine: %v", err)
	}
	return engine
}

func resultAt(t *testing.T, pnl string, exit time.Time) *types.TradeResult {
	t.Helper()
	return &types.TradeResult{
		Symbol:   "AAPL",
		Asset:    types.AssetStock,
		PnL:      decimal.RequireFromString(pnl),
		Realized: true,
		ExitAt:   exit,
	}
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 16, 0, 0, 0, time.UTC)
}

func TestTradeStatistics(t *testing.T) {
	engine := newEngine(t, "0")

	results := []*types.TradeResult{
		resultAt(t, "1498", day(1)),
		resultAt(t, "998", day(2)),
		resultAt(t, "448", day(3)),
		resultAt(t, "-802", day(4)),
		resultAt(t, "-502", day(5)),
	}

	stats := engine.TradeStatistics(results)

	if stats.TotalTrades != 5 || stats.WinningTrades != 3 || stats.LosingTrades != 2 {
		t.Errorf("counts: got %d/%d/%d", stats.TotalTrades, stats.WinningTrades, stats.LosingTrades)
	}
	if stats.WinRate.String() != "60" {
		t.Errorf("win rate: expected 60, got %s", stats.WinRate)
	}
	if stats.ProfitFactor == nil || stats.ProfitFactor.String() != "2.26" {
		t.Errorf("profit factor: expected 2.26, got %v", stats.ProfitFactor)
	}
	if stats.LargestWin.String() != "1498" {
		t.Errorf("largest win: expected 1498, got %s", stats.LargestWin)
	}
	if stats.LargestLoss.String() != "-802" {
		t.Errorf("largest loss: expected -802, got %s", stats.LargestLoss)
	}
	if stats.AverageWin.String() != "981.33" {
		t.Errorf("average win: expected 981.33, got %s", stats.AverageWin)
	}
	if stats.AverageLoss.String() != "-652" {
		t.Errorf("average loss: expected -652, got %s", stats.AverageLoss)
	}
}

func TestProfitFactorSentinels(t *testing.T) {
	engine := newEngine(t, "0")

	onlyWinners := []*types.TradeResult{resultAt(t, "100", day(1)), resultAt(t, "50", day(2))}
	if pf := engine.TradeStatistics(onlyWinners).ProfitFactor; pf != nil {
		t.Errorf("profit factor with no losers must be nil, got %s", pf)
	}

	onlyLosers := []*types.TradeResult{resultAt(t, "-100", day(1))}
	if pf := engine.TradeStatistics(onlyLosers).ProfitFactor; pf == nil || !pf.IsZero() {
		t.Errorf("profit factor with no winners must be zero, got %v", pf)
	}

	if stats := engine.TradeStatistics(nil); stats.TotalTrades != 0 || !stats.WinRate.IsZero() {
		t.Errorf("empty input must yield zero stats, got %+v", stats)
	}
}

func TestProfitFactorMonotonicInLossMagnitude(t *testing.T) {
	engine := newEngine(t, "0")

	big := []*types.TradeResult{resultAt(t, "100", day(1)), resultAt(t, "-80", day(2))}
	small := []*types.TradeResult{resultAt(t, "100", day(1)), resultAt(t, "-40", day(2))}

	pfBig := engine.TradeStatistics(big).ProfitFactor
	pfSmall := engine.TradeStatistics(small).ProfitFactor
	if pfBig == nil || pfSmall == nil {
		t.Fatal("profit factors should be defined")
	}
	if !pfSmall.GreaterThan(*pfBig) {
		t.Errorf("shrinking the loss must not decrease profit factor: %s vs %s", pfSmall, pfBig)
	}
}

func TestMaxDrawdown(t *testing.T) {
	engine := newEngine(t, "100000")

	// Equity walks 100000 -> 101000 -> 99500 -> 102000.
	results := []*types.TradeResult{
		resultAt(t, "1000", day(1)),
		resultAt(t, "-1500", day(2)),
		resultAt(t, "2500", day(3)),
	}

	dd := engine.MaxDrawdown(results)

	if dd.Amount.String() != "1500" {
		t.Errorf("drawdown amount: expected 1500, got %s", dd.Amount)
	}
	if dd.Percent.String() != "1.49" {
		t.Errorf("drawdown percent: expected 1.49, got %s", dd.Percent)
	}
	if !dd.PeakAt.Equal(day(1)) {
		t.Errorf("peak timestamp: expected %s, got %s", day(1), dd.PeakAt)
	}
	if !dd.TroughAt.Equal(day(2)) {
		t.Errorf("trough timestamp: expected %s, got %s", day(2), dd.TroughAt)
	}
}

func TestMaxDrawdownDegenerate(t *testing.T) {
	engine := newEngine(t, "1000")

	if dd := engine.MaxDrawdown(nil); !dd.Amount.IsZero() || !dd.Percent.IsZero() {
		t.Errorf("empty curve must yield zero drawdown, got %+v", dd)
	}

	one := []*types.TradeResult{resultAt(t, "-500", day(1))}
	if dd := engine.MaxDrawdown(one); !dd.Amount.IsZero() {
		t.Errorf("single-point curve must yield zero drawdown, got %s", dd.Amount)
	}
}

func TestMaxDrawdownTiesResolveEarliest(t *testing.T) {
	engine := newEngine(t, "1000")

	// Two equal 100-point declines; the first one must win.
	results := []*types.TradeResult{
		resultAt(t, "100", day(1)),
		resultAt(t, "-100", day(2)),
		resultAt(t, "100", day(3)),
		resultAt(t, "-100", day(4)),
	}

	dd := engine.MaxDrawdown(results)
	if dd.Amount.String() != "100" {
		t.Fatalf("drawdown amount: expected 100, got %s", dd.Amount)
	}
	if !dd.PeakAt.Equal(day(1)) {
		t.Errorf("tie must resolve to the earliest peak, got %s", dd.PeakAt)
	}
	if !dd.TroughAt.Equal(day(2)) {
		t.Errorf("tie must resolve to the earliest trough, got %s", dd.TroughAt)
	}
}

func TestDrawdownBounds(t *testing.T) {
	engine := newEngine(t, "5000")

	results := []*types.TradeResult{
		resultAt(t, "200", day(1)),
		resultAt(t, "-900", day(2)),
		resultAt(t, "300", day(3)),
		resultAt(t, "-100", day(4)),
	}

	dd := engine.MaxDrawdown(results)
	if dd.Amount.IsNegative() {
		t.Errorf("drawdown must be non-negative, got %s", dd.Amount)
	}
	if dd.Percent.IsNegative() || dd.Percent.GreaterThan(decimal.NewFromInt(100)) {
		t.Errorf("drawdown percent must be in [0, 100], got %s", dd.Percent)
	}
}

func TestSharpeRatio(t *testing.T) {
	engine := newEngine(t, "100")

	// Equity 100 -> 110 -> 143: returns 0.10 and 0.30.
	results := []*types.TradeResult{
		resultAt(t, "10", day(1)),
		resultAt(t, "33", day(2)),
	}

	sharpe := engine.SharpeRatio(results)
	if sharpe == nil {
		t.Fatal("sharpe should be computable")
	}
	if sharpe.String() != "22.45" {
		t.Errorf("sharpe: expected 22.45, got %s", sharpe)
	}
}

func TestSharpeRatioUndefined(t *testing.T) {
	engine := newEngine(t, "100")

	if s := engine.SharpeRatio(nil); s != nil {
		t.Errorf("sharpe of empty sequence must be nil, got %s", s)
	}

	one := []*types.TradeResult{resultAt(t, "10", day(1))}
	if s := engine.SharpeRatio(one); s != nil {
		t.Errorf("sharpe of a single return must be nil, got %s", s)
	}

	// Identical returns: zero variance.
	flat := []*types.TradeResult{
		resultAt(t, "10", day(1)),
		resultAt(t, "11", day(2)),
	}
	if s := engine.SharpeRatio(flat); s != nil {
		t.Errorf("sharpe with zero stddev must be nil, got %s", s)
	}
}

func TestPeriodPnLBuckets(t *testing.T) {
	engine := newEngine(t, "0")

	results := []*types.TradeResult{
		resultAt(t, "100", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
		resultAt(t, "50", time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)),
		resultAt(t, "-30", time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)),
		resultAt(t, "70", time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)),
		resultAt(t, "20", time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)),
	}

	daily := engine.PeriodPnL(results, analytics.GranularityDay)
	if len(daily) != 4 {
		t.Fatalf("daily buckets: expected 4, got %d", len(daily))
	}
	if daily[0].Period != "2024-03-01" || daily[0].PnL.String() != "150" {
		t.Errorf("first daily bucket wrong: %+v", daily[0])
	}

	weekly := engine.PeriodPnL(results, analytics.GranularityWeek)
	// 2024-03-01 is a Friday in ISO week 9; 2024-03-04 starts week 10.
	if weekly[0].Period != "2024-W09" || weekly[1].Period != "2024-W10" {
		t.Errorf("weekly keys wrong: %+v", weekly[:2])
	}

	monthly := engine.PeriodPnL(results, analytics.GranularityMonth)
	if len(monthly) != 3 || monthly[0].Period != "2024-03" || monthly[0].PnL.String() != "120" {
		t.Errorf("monthly buckets wrong: %+v", monthly)
	}

	yearly := engine.PeriodPnL(results, analytics.GranularityYear)
	if len(yearly) != 2 || yearly[0].Period != "2024" || yearly[1].Period != "2025" {
		t.Errorf("yearly buckets wrong: %+v", yearly)
	}

	if empty := engine.PeriodPnL(nil, analytics.GranularityDay); len(empty) != 0 {
		t.Errorf("empty input must produce no buckets, got %d", len(empty))
	}
}

func TestEquityCurveBaseline(t *testing.T) {
	engine := newEngine(t, "1000")

	results := []*types.TradeResult{
		resultAt(t, "100", day(1)),
		resultAt(t, "-50", day(2)),
	}

	curve := engine.EquityCurve(results)
	if len(curve) != 2 {
		t.Fatalf("curve length: expected 2, got %d", len(curve))
	}
	if curve[0].Equity.String() != "1100" || curve[1].Equity.String() != "1050" {
		t.Errorf("curve values wrong: %s, %s", curve[0].Equity, curve[1].Equity)
	}
}

func TestPortfolioReportIdempotent(t *testing.T) {
	engine := newEngine(t, "10000")

	results := []*types.TradeResult{
		resultAt(t, "1498", day(1)),
		resultAt(t, "998", day(2)),
		resultAt(t, "448", day(3)),
		resultAt(t, "-802", day(4)),
		resultAt(t, "-502", day(5)),
	}

	first := engine.PortfolioReport(results)
	second := engine.PortfolioReport(results)

	if first.TotalPnL.String() != "1640" {
		t.Errorf("total pnl: expected 1640, got %s", first.TotalPnL)
	}
	if !first.TotalPnL.Equal(second.TotalPnL) {
		t.Error("total pnl must be identical across calls")
	}
	if !first.Drawdown.Amount.Equal(second.Drawdown.Amount) {
		t.Error("drawdown must be identical across calls")
	}
	if first.Statistics.WinRate.String() != second.Statistics.WinRate.String() {
		t.Error("win rate must be identical across calls")
	}
	if len(first.DailyPnL) != len(second.DailyPnL) {
		t.Error("daily buckets must be identical across calls")
	}
}
