// Package export renders journal data as CSV for spreadsheets and tax
// tooling.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/tradetracker/journal-backend/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

// Trades writes the leg journal as CSV, one row per leg.
func Trades(w io.Writer, legs []*types.TradeLeg) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "symbol", "asset", "side", "quantity", "price", "commission",
		"executed_at", "status", "strategy", "strike", "expiry", "option_kind", "notes",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, leg := range legs {
		var strike, expiry, kind string
		if leg.Asset == types.AssetOption {
			strike = leg.Strike.String()
			expiry = leg.Expiry.UTC().Format("2006-01-02")
			kind = string(leg.Kind)
		}
		row := []string{
			strconv.FormatInt(leg.ID, 10),
			leg.Symbol,
			string(leg.Asset),
			string(leg.Side),
			strconv.FormatInt(leg.Quantity, 10),
			leg.Price.String(),
			leg.Commission.String(),
			leg.ExecutedAt.UTC().Format(timeLayout),
			string(leg.Status),
			string(leg.Strategy),
			strike,
			expiry,
			kind,
			leg.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write trade %d: %w", leg.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Results writes realized P/L results as CSV, one row per closed pair.
func Results(w io.Writer, results []*types.TradeResult) error {
	cw := csv.NewWriter(w)
	header := []string{
		"symbol", "asset", "quantity", "entry_price", "exit_price",
		"cost_basis", "proceeds", "pnl", "return_pct", "holding_days",
		"entry_at", "exit_at", "strategy",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range results {
		returnPct := ""
		if r.ReturnPct != nil {
			returnPct = r.ReturnPct.String()
		}
		row := []string{
			r.Symbol,
			string(r.Asset),
			strconv.FormatInt(r.Quantity, 10),
			r.EntryPrice.String(),
			r.ExitPrice.String(),
			r.CostBasis.String(),
			r.Proceeds.String(),
			r.PnL.String(),
			returnPct,
			strconv.Itoa(r.HoldingDays),
			r.EntryAt.UTC().Format(timeLayout),
			r.ExitAt.UTC().Format(timeLayout),
			string(r.Strategy),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write result for %s: %w", r.Symbol, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filename suggests a download filename stamped with the current date.
func Filename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, now.UTC().Format("2006-01-02"))
}
