// Package api provides the HTTP and WebSocket server for the trade
// journal.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/tradetracker/journal-backend/internal/analytics"
	"github.com/tradetracker/journal-backend/internal/integrations"
	"github.com/tradetracker/journal-backend/internal/store"
	"github.com/tradetracker/journal-backend/pkg/types"
)

// Server is the HTTP/WebSocket API server
type Server struct {
	mu         sync.RWMutex
	logger     *zap.Logger
	config     *types.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader
	clients    map[string]*Client

	store      *store.Store
	calc       *analytics.Calculator
	engine     *analytics.MetricsEngine
	strategies *analytics.StrategyAnalyzer
	sync       *integrations.Manager
	metrics    *Metrics
}

// NewServer creates a new API server. The sync manager may be nil when
// broker import is disabled.
func NewServer(logger *zap.Logger, config *types.ServerConfig, st *store.Store, engine *analytics.MetricsEngine, syncMgr *integrations.Manager) *Server {
	server := &Server{
		logger:     logger,
		config:     config,
		router:     mux.NewRouter(),
		clients:    make(map[string]*Client),
		store:      st,
		calc:       analytics.NewCalculator(),
		engine:     engine,
		strategies: analytics.NewStrategyAnalyzer(),
		sync:       syncMgr,
		metrics:    NewMetrics(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}

	if syncMgr != nil {
		syncMgr.OnImport = server.broadcastTrade
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")

	// Accounts
	s.router.HandleFunc("/api/v1/accounts", s.handleCreateAccount).Methods("POST")
	s.router.HandleFunc("/api/v1/accounts", s.handleListAccounts).Methods("GET")
	s.router.HandleFunc("/api/v1/accounts/{id}", s.handleGetAccount).Methods("GET")
	s.router.HandleFunc("/api/v1/accounts/{id}", s.handleUpdateAccount).Methods("PUT")
	s.router.HandleFunc("/api/v1/accounts/{id}/credentials", s.handleSaveCredentials).Methods("PUT")
	s.router.HandleFunc("/api/v1/accounts/{id}/positions", s.handleListPositions).Methods("GET")
	s.router.HandleFunc("/api/v1/accounts/{id}/sync", s.handleSync).Methods("POST")

	// Trades
	s.router.HandleFunc("/api/v1/trades", s.handleCreateTrade).Methods("POST")
	s.router.HandleFunc("/api/v1/trades", s.handleListTrades).Methods("GET")
	s.router.HandleFunc("/api/v1/trades/{id}", s.handleGetTrade).Methods("GET")
	s.router.HandleFunc("/api/v1/trades/{id}", s.handleUpdateTrade).Methods("PUT")
	s.router.HandleFunc("/api/v1/trades/{id}", s.handleDeleteTrade).Methods("DELETE")

	// Reports
	s.router.HandleFunc("/api/v1/accounts/{id}/reports/results", s.handleResults).Methods("GET")
	s.router.HandleFunc("/api/v1/accounts/{id}/reports/statistics", s.handleStatistics).Methods("GET")
	s.router.HandleFunc("/api/v1/accounts/{id}/reports/drawdown", s.handleDrawdown).Methods("GET")
	s.router.HandleFunc("/api/v1/accounts/{id}/reports/sharpe", s.handleSharpe).Methods("GET")
	s.router.HandleFunc("/api/v1/accounts/{id}/reports/period-pnl", s.handlePeriodPnL).Methods("GET")
	s.router.HandleFunc("/api/v1/accounts/{id}/reports/portfolio", s.handlePortfolio).Methods("GET")
	s.router.HandleFunc("/api/v1/accounts/{id}/reports/strategies", s.handleStrategies).Methods("GET")

	// CSV export
	s.router.HandleFunc("/api/v1/accounts/{id}/export/trades", s.handleExportTrades).Methods("GET")
	s.router.HandleFunc("/api/v1/accounts/{id}/export/results", s.handleExportResults).Methods("GET")

	// WebSocket
	s.router.HandleFunc(s.config.WebSocketPath, s.handleWebSocket)

	s.router.Use(s.metrics.Middleware)
}

// Handler returns the fully configured HTTP handler, CORS included.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)
}

// MetricsHandler returns the Prometheus scrape handler for this server's
// registry, served separately from the API listener.
func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting API server", zap.String("addr", addr))

	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrNoCredentials):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateBrokerRef):
		status = http.StatusConflict
	case errors.Is(err, errInvalidID):
		status = http.StatusBadRequest
	case isValidationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, integrations.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, integrations.ErrAuthFailed):
		status = http.StatusBadGateway
	case errors.Is(err, integrations.ErrUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func isValidationError(err error) bool {
	for _, target := range []error{
		types.ErrEmptySymbol,
		types.ErrNonPositiveQty,
		types.ErrNegativePrice,
		types.ErrNegativeCommission,
		types.ErrMissingOptionData,
		types.ErrInvalidMultiplier,
		analytics.ErrSymbolMismatch,
		analytics.ErrDirectionConflict,
		analytics.ErrInvalidQuantity,
		analytics.ErrInstrumentMismatch,
		analytics.ErrWrongAsset,
		analytics.ErrUnmatchedClose,
		integrations.ErrUnknownBroker,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
