package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradetracker/journal-backend/pkg/types"
)

// LegPair is a matched opening/closing pair ready for the calculator. For
// partial fills the legs are scaled copies whose commissions were prorated
// to the matched quantity.
type LegPair struct {
	Opening *types.TradeLeg
	Closing *types.TradeLeg
}

// OpenLot is the unmatched remainder of an opening leg after matching.
type OpenLot struct {
	Leg       *types.TradeLeg
	Remaining int64
}

// MatchLegs reduces an ordered-by-time leg history into calculator pairs
// using FIFO lot matching per contract. Closing legs consume the oldest
// open lot first; a close larger than one lot is split across lots, with
// its commission prorated across the splits. Leftover open quantity is
// returned as open lots for unrealized marking.
//
// A closing leg that exceeds the total open quantity for its contract is a
// data error and aborts the match.
func MatchLegs(legs []*types.TradeLeg) ([]LegPair, []OpenLot, error) {
	type lot struct {
		leg       *types.TradeLeg
		remaining int64
	}
	books := make(map[string][]*lot)
	var order []string

	var pairs []LegPair
	for _, leg := range legs {
		key := bookKey(leg)
		if leg.Side.IsOpening() {
			if _, ok := books[key]; !ok {
				order = append(order, key)
			}
			books[key] = append(books[key], &lot{leg: leg, remaining: leg.Quantity})
			continue
		}

		toClose := leg.Quantity
		for toClose > 0 {
			book := books[key]
			if len(book) == 0 {
				return nil, nil, fmt.Errorf("%w: %s has %d unmatched", ErrUnmatchedClose, leg.Symbol, toClose)
			}
			head := book[0]
			matched := toClose
			if matched > head.remaining {
				matched = head.remaining
			}

			pairs = append(pairs, LegPair{
				Opening: scaleLeg(head.leg, matched),
				Closing: scaleLeg(leg, matched),
			})

			head.remaining -= matched
			toClose -= matched
			if head.remaining == 0 {
				books[key] = book[1:]
			}
		}
	}

	var open []OpenLot
	for _, key := range order {
		for _, l := range books[key] {
			open = append(open, OpenLot{Leg: l.leg, Remaining: l.remaining})
		}
	}
	return pairs, open, nil
}

// scaleLeg returns the leg itself for a full match, or a copy with the
// matched quantity and a proportional share of the commission. Summed over
// all splits of one leg the shares equal the original commission.
func scaleLeg(leg *types.TradeLeg, matched int64) *types.TradeLeg {
	if matched == leg.Quantity {
		return leg
	}
	scaled := *leg
	scaled.Quantity = matched
	scaled.Commission = leg.Commission.
		Mul(decimal.NewFromInt(matched)).
		Div(decimal.NewFromInt(leg.Quantity))
	return &scaled
}

// bookKey identifies the lot book a leg belongs to. Option contracts are
// distinct per strike/expiry/kind; stocks match on symbol alone.
func bookKey(leg *types.TradeLeg) string {
	if leg.Asset == types.AssetOption {
		return fmt.Sprintf("%s|%s|%s|%s|%s", leg.Symbol, leg.Asset, leg.Kind, leg.Strike, dateOf(leg.Expiry).Format("2006-01-02"))
	}
	return fmt.Sprintf("%s|%s", leg.Symbol, leg.Asset)
}

// Reduce matches a leg history and runs every pair through the calculator,
// returning realized results in pair order plus the remaining open lots.
func Reduce(calc *Calculator, legs []*types.TradeLeg) ([]*types.TradeResult, []OpenLot, error) {
	pairs, open, err := MatchLegs(legs)
	if err != nil {
		return nil, nil, err
	}

	results := make([]*types.TradeResult, 0, len(pairs))
	for _, pair := range pairs {
		var res *types.TradeResult
		if pair.Opening.Asset == types.AssetOption {
			res, err = calc.OptionPnL(pair.Opening, pair.Closing)
		} else {
			res, err = calc.StockPnL(pair.Opening, pair.Closing)
		}
		if err != nil {
			return nil, nil, err
		}
		results = append(results, res)
	}
	return results, open, nil
}
