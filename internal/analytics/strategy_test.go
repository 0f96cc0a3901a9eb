package analytics_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradetracker/journal-backend/internal/analytics"
	"github.com/tradetracker/journal-backend/pkg/types"
)

func taggedResult(pnl string, tag types.StrategyTag, exitDay int) *types.TradeResult {
	return &types.TradeResult{
		Symbol:   "AAPL",
		Asset:    types.AssetStock,
		PnL:      decimal.RequireFromString(pnl),
		Realized: true,
		Strategy: tag,
		ExitAt:   time.Date(2024, 3, exitDay, 16, 0, 0, 0, time.UTC),
	}
}

func TestStrategyAnalyze(t *testing.T) {
	analyzer := analytics.NewStrategyAnalyzer()

	results := []*types.TradeResult{
		taggedResult("100", types.StrategySwingTrade, 1),
		taggedResult("-40", types.StrategyDayTrade, 2),
		taggedResult("200", types.StrategySwingTrade, 3),
		taggedResult("-60", types.StrategySwingTrade, 4),
		taggedResult("80", types.StrategyDayTrade, 5),
	}

	perf := analyzer.Analyze(results)
	if len(perf) != 2 {
		t.Fatalf("expected 2 strategy groups, got %d", len(perf))
	}

	// Groups appear in first-encountered order.
	swing := perf[0]
	if swing.Strategy != types.StrategySwingTrade {
		t.Fatalf("first group: expected swing_trade, got %s", swing.Strategy)
	}
	if swing.TotalTrades != 3 || swing.WinningTrades != 2 || swing.LosingTrades != 1 {
		t.Errorf("swing counts: %d/%d/%d", swing.TotalTrades, swing.WinningTrades, swing.LosingTrades)
	}
	if swing.TotalPnL.String() != "240" {
		t.Errorf("swing total pnl: expected 240, got %s", swing.TotalPnL)
	}
	if swing.WinRate.String() != "66.67" {
		t.Errorf("swing win rate: expected 66.67, got %s", swing.WinRate)
	}
	if swing.AveragePnL.String() != "80" {
		t.Errorf("swing average pnl: expected 80, got %s", swing.AveragePnL)
	}
	if swing.MaxWin.String() != "200" || swing.MaxLoss.String() != "-60" {
		t.Errorf("swing extremes: %s / %s", swing.MaxWin, swing.MaxLoss)
	}

	day := perf[1]
	if day.Strategy != types.StrategyDayTrade {
		t.Fatalf("second group: expected day_trade, got %s", day.Strategy)
	}
	if day.TotalPnL.String() != "40" || day.WinRate.String() != "50" {
		t.Errorf("day trade aggregates: pnl %s, win rate %s", day.TotalPnL, day.WinRate)
	}
}

func TestStrategyAnalyzeUntagged(t *testing.T) {
	analyzer := analytics.NewStrategyAnalyzer()

	results := []*types.TradeResult{
		taggedResult("100", "", 1),
		taggedResult("-50", types.StrategyUntagged, 2),
	}

	perf := analyzer.Analyze(results)
	if len(perf) != 1 {
		t.Fatalf("blank and untagged must share one group, got %d", len(perf))
	}
	if perf[0].Strategy != types.StrategyUntagged {
		t.Errorf("group tag: expected untagged, got %s", perf[0].Strategy)
	}
	if perf[0].TotalTrades != 2 || perf[0].TotalPnL.String() != "50" {
		t.Errorf("untagged aggregates: %d trades, pnl %s", perf[0].TotalTrades, perf[0].TotalPnL)
	}
}

func TestStrategyAnalyzeEmpty(t *testing.T) {
	analyzer := analytics.NewStrategyAnalyzer()
	if perf := analyzer.Analyze(nil); len(perf) != 0 {
		t.Fatalf("empty input must produce no groups, got %d", len(perf))
	}
}
