package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tradetracker/journal-backend/internal/analytics"
	"github.com/tradetracker/journal-backend/internal/export"
	"github.com/tradetracker/journal-backend/internal/store"
	"github.com/tradetracker/journal-backend/pkg/types"
)

// errInvalidID marks malformed path parameters; mapped to 400.
var errInvalidID = errors.New("invalid account ID")

// accountResults loads an account's full leg history and reduces it to
// realized results plus open lots. Every report endpoint recomputes from
// the journal, so reports are always consistent with the stored legs.
func (s *Server) accountResults(r *http.Request) ([]*types.TradeResult, []analytics.OpenLot, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, nil, errInvalidID
	}
	if _, err := s.store.GetAccount(r.Context(), id); err != nil {
		return nil, nil, err
	}

	legs, err := s.store.ListTrades(r.Context(), store.TradeFilter{AccountID: id})
	if err != nil {
		return nil, nil, err
	}
	return analytics.Reduce(s.calc, legs)
}

// handleResults returns realized per-pair results and open lot counts.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	results, open, err := s.accountResults(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"results":  results,
		"count":    len(results),
		"openLots": len(open),
	})
}

// handleStatistics returns aggregate win/loss statistics.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	results, _, err := s.accountResults(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.TradeStatistics(results))
}

// handleDrawdown returns the maximum drawdown of the equity curve.
func (s *Server) handleDrawdown(w http.ResponseWriter, r *http.Request) {
	results, _, err := s.accountResults(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.MaxDrawdown(results))
}

// handleSharpe returns the annualized Sharpe ratio. The value is null
// when the ratio is not computable.
func (s *Server) handleSharpe(w http.ResponseWriter, r *http.Request) {
	results, _, err := s.accountResults(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sharpeRatio": s.engine.SharpeRatio(results),
	})
}

// handlePeriodPnL returns P/L bucketed by the requested granularity.
func (s *Server) handlePeriodPnL(w http.ResponseWriter, r *http.Request) {
	granularity := analytics.Granularity(r.URL.Query().Get("granularity"))
	switch granularity {
	case "":
		granularity = analytics.GranularityDay
	case analytics.GranularityDay, analytics.GranularityWeek,
		analytics.GranularityMonth, analytics.GranularityYear:
	default:
		http.Error(w, "Invalid granularity", http.StatusBadRequest)
		return
	}

	results, _, err := s.accountResults(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"granularity": granularity,
		"periods":     s.engine.PeriodPnL(results, granularity),
	})
}

// handlePortfolio returns the full aggregate report.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	results, _, err := s.accountResults(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.PortfolioReport(results))
}

// handleStrategies returns per-strategy performance.
func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	results, _, err := s.accountResults(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": s.strategies.Analyze(results),
	})
}

// handleExportTrades streams the leg journal as a CSV download.
func (s *Server) handleExportTrades(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}
	legs, err := s.store.ListTrades(r.Context(), store.TradeFilter{AccountID: id})
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename("trades", time.Now())))
	if err := export.Trades(w, legs); err != nil {
		s.logger.Error("CSV export failed", zap.Error(err))
	}
}

// handleExportResults streams realized results as a CSV download.
func (s *Server) handleExportResults(w http.ResponseWriter, r *http.Request) {
	results, _, err := s.accountResults(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename("results", time.Now())))
	if err := export.Results(w, results); err != nil {
		s.logger.Error("CSV export failed", zap.Error(err))
	}
}
