package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tradetracker/journal-backend/internal/store"
	"github.com/tradetracker/journal-backend/pkg/types"
)

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// handleCreateAccount creates a brokerage account.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var acct types.Account
	if err := json.NewDecoder(r.Body).Decode(&acct); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if acct.Name == "" {
		http.Error(w, "Account name is required", http.StatusBadRequest)
		return
	}

	if _, err := s.store.CreateAccount(r.Context(), &acct); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, &acct)
}

// handleListAccounts returns all accounts.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// handleGetAccount returns one account.
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}
	acct, err := s.store.GetAccount(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, acct)
}

// handleUpdateAccount updates account fields.
func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}
	var acct types.Account
	if err := json.NewDecoder(r.Body).Decode(&acct); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	acct.ID = id

	if err := s.store.UpdateAccount(r.Context(), &acct); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &acct)
}

// handleSaveCredentials stores broker API credentials for an account.
// Credentials are write-only: there is no corresponding GET.
func (s *Server) handleSaveCredentials(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	var body struct {
		APIKey    string `json:"apiKey"`
		APISecret string `json:"apiSecret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.APIKey == "" || body.APISecret == "" {
		http.Error(w, "apiKey and apiSecret are required", http.StatusBadRequest)
		return
	}

	if _, err := s.store.GetAccount(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	creds := store.Credentials{APIKey: body.APIKey, APISecret: body.APISecret}
	if err := s.store.SaveCredentials(r.Context(), id, creds); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}

// handleListPositions returns the open positions of an account.
func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}
	positions, err := s.store.ListOpenPositions(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"positions": positions,
		"count":     len(positions),
	})
}

// handleSync triggers a broker import for one account.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		http.Error(w, "Broker sync is disabled", http.StatusServiceUnavailable)
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	res, err := s.sync.SyncAccount(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.SyncImported(res.Imported)
	s.writeJSON(w, http.StatusOK, res)
}

// handleCreateTrade journals a trade leg.
func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var leg types.TradeLeg
	if err := json.NewDecoder(r.Body).Decode(&leg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if leg.ExecutedAt.IsZero() {
		leg.ExecutedAt = time.Now().UTC()
	}
	if leg.Status == "" {
		leg.Status = types.StatusOpen
	}
	if leg.Strategy == "" {
		leg.Strategy = types.StrategyUntagged
	}
	if leg.Asset == types.AssetOption && leg.Multiplier == 0 {
		leg.Multiplier = types.DefaultMultiplier
	}

	if _, err := s.store.CreateTrade(r.Context(), &leg); err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.TradeCreated()
	s.broadcastTrade(&leg)
	s.writeJSON(w, http.StatusCreated, &leg)
}

// handleListTrades returns trades matching the query filters.
func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	filter, err := tradeFilterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	trades, err := s.store.ListTrades(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"trades": trades,
		"count":  len(trades),
	})
}

// handleGetTrade returns one trade leg.
func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid trade ID", http.StatusBadRequest)
		return
	}
	leg, err := s.store.GetTrade(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, leg)
}

// handleUpdateTrade updates the mutable fields of a journaled leg.
func (s *Server) handleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid trade ID", http.StatusBadRequest)
		return
	}

	leg, err := s.store.GetTrade(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var body struct {
		Status   *types.TradeStatus `json:"status"`
		Strategy *types.StrategyTag `json:"strategy"`
		Notes    *string            `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Status != nil {
		leg.Status = *body.Status
	}
	if body.Strategy != nil {
		leg.Strategy = *body.Strategy
	}
	if body.Notes != nil {
		leg.Notes = *body.Notes
	}

	if err := s.store.UpdateTrade(r.Context(), leg); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, leg)
}

// handleDeleteTrade removes a journaled leg.
func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid trade ID", http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteTrade(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "deleted": true})
}

func tradeFilterFromQuery(r *http.Request) (store.TradeFilter, error) {
	var filter store.TradeFilter
	q := r.URL.Query()

	if raw := q.Get("account"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.AccountID = id
	}
	filter.Symbol = q.Get("symbol")
	filter.Asset = types.AssetKind(q.Get("asset"))
	filter.Status = types.TradeStatus(q.Get("status"))
	filter.Strategy = types.StrategyTag(q.Get("strategy"))

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, err
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, err
		}
		filter.To = t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Limit = n
	}
	return filter, nil
}
