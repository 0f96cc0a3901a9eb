package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/tradetracker/journal-backend/pkg/types"
)

// StrategyAnalyzer groups results by strategy tag to show which approaches
// actually make money.
type StrategyAnalyzer struct{}

// NewStrategyAnalyzer creates a new strategy analyzer
func NewStrategyAnalyzer() *StrategyAnalyzer {
	return &StrategyAnalyzer{}
}

// Analyze aggregates per-strategy performance over the result sequence.
// Untagged results fall into the "untagged" group. Groups appear in
// first-encountered order.
func (a *StrategyAnalyzer) Analyze(results []*types.TradeResult) []types.StrategyPerformance {
	var perf []types.StrategyPerformance
	index := make(map[types.StrategyTag]int)

	for _, r := range results {
		tag := r.Strategy
		if tag == "" {
			tag = types.StrategyUntagged
		}
		i, ok := index[tag]
		if !ok {
			i = len(perf)
			index[tag] = i
			perf = append(perf, types.StrategyPerformance{Strategy: tag})
		}

		p := &perf[i]
		p.TotalTrades++
		p.TotalPnL = p.TotalPnL.Add(r.PnL)
		switch {
		case r.PnL.GreaterThan(decimal.Zero):
			p.WinningTrades++
			if r.PnL.GreaterThan(p.MaxWin) {
				p.MaxWin = r.PnL
			}
		case r.PnL.LessThan(decimal.Zero):
			p.LosingTrades++
			if r.PnL.LessThan(p.MaxLoss) {
				p.MaxLoss = r.PnL
			}
		}
	}

	for i := range perf {
		p := &perf[i]
		total := decimal.NewFromInt(int64(p.TotalTrades))
		p.WinRate = decimal.NewFromInt(int64(p.WinningTrades)).Div(total).Mul(hundred).Round(moneyPlaces)
		p.AveragePnL = p.TotalPnL.Div(total).Round(moneyPlaces)
		p.TotalPnL = p.TotalPnL.Round(moneyPlaces)
	}
	return perf
}
