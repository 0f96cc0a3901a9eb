package integrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradetracker/journal-backend/internal/analytics"
	"github.com/tradetracker/journal-backend/internal/store"
	"github.com/tradetracker/journal-backend/pkg/types"
)

// SyncResult summarizes one account import.
type SyncResult struct {
	AccountID int64 `json:"accountId"`
	Imported  int   `json:"imported"`
	Skipped   int   `json:"skipped"`
	Positions int   `json:"positions"`
}

// Manager imports broker fills into the journal on demand or on a cron
// schedule, and rebuilds derived positions after each import.
type Manager struct {
	store     *store.Store
	logger    *zap.Logger
	cfg       types.SyncConfig
	factories map[string]Factory
	cron      *cron.Cron

	// OnImport, when set, is invoked for every newly journaled leg.
	// Used to push live updates to websocket clients.
	OnImport func(*types.TradeLeg)
}

// NewManager creates a sync manager. Adapters are registered per broker
// name as stored on the account.
func NewManager(st *store.Store, logger *zap.Logger, cfg types.SyncConfig) *Manager {
	return &Manager{
		store:     st,
		logger:    logger,
		cfg:       cfg,
		factories: make(map[string]Factory),
	}
}

// Register makes a broker adapter available under the given name.
func (m *Manager) Register(name string, factory Factory) {
	m.factories[name] = factory
}

// Start schedules SyncAll on the configured cron expression. No-op when
// sync is disabled.
func (m *Manager) Start() error {
	if !m.cfg.Enabled {
		m.logger.Info("Broker sync disabled")
		return nil
	}

	m.cron = cron.New()
	_, err := m.cron.AddFunc(m.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := m.SyncAll(ctx); err != nil {
			m.logger.Error("Scheduled sync failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", m.cfg.Schedule, err)
	}

	m.cron.Start()
	m.logger.Info("Broker sync scheduled", zap.String("schedule", m.cfg.Schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sync to finish.
func (m *Manager) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
}

// SyncAll imports fills for every active account that has stored
// credentials and a registered adapter. Accounts without either are
// skipped, not failed.
func (m *Manager) SyncAll(ctx context.Context) ([]SyncResult, error) {
	accounts, err := m.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	var results []SyncResult
	for _, acct := range accounts {
		if !acct.IsActive {
			continue
		}
		res, err := m.SyncAccount(ctx, acct.ID)
		if err != nil {
			if errors.Is(err, store.ErrNoCredentials) || errors.Is(err, ErrUnknownBroker) {
				m.logger.Debug("Skipping account sync",
					zap.Int64("accountID", acct.ID), zap.Error(err))
				continue
			}
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// SyncAccount imports fills for one account across all of its journaled
// symbols, then rebuilds the account's positions.
func (m *Manager) SyncAccount(ctx context.Context, accountID int64) (SyncResult, error) {
	res := SyncResult{AccountID: accountID}

	acct, err := m.store.GetAccount(ctx, accountID)
	if err != nil {
		return res, err
	}
	factory, ok := m.factories[acct.Broker]
	if !ok {
		return res, fmt.Errorf("%w: %q", ErrUnknownBroker, acct.Broker)
	}
	creds, err := m.store.GetCredentials(ctx, accountID)
	if err != nil {
		return res, err
	}
	broker, err := factory(creds, m.logger)
	if err != nil {
		return res, err
	}

	symbols, err := m.store.DistinctSymbols(ctx, accountID)
	if err != nil {
		return res, err
	}

	since := time.Now().UTC().AddDate(0, 0, -m.cfg.Lookback)
	for _, symbol := range symbols {
		fills, err := broker.Fills(ctx, symbol, since)
		if err != nil {
			return res, fmt.Errorf("sync %s: %w", symbol, err)
		}
		for _, leg := range fills {
			leg.AccountID = accountID
			if _, err := m.store.CreateTrade(ctx, leg); err != nil {
				if errors.Is(err, store.ErrDuplicateBrokerRef) {
					res.Skipped++
					continue
				}
				return res, fmt.Errorf("journal fill %s: %w", leg.BrokerRef, err)
			}
			res.Imported++
			if m.OnImport != nil {
				m.OnImport(leg)
			}
		}

		if err := m.rebuildPosition(ctx, broker, accountID, symbol); err != nil {
			return res, err
		}
		res.Positions++
	}

	m.logger.Info("Account synced",
		zap.Int64("accountID", accountID),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// rebuildPosition recomputes the derived position for one symbol from the
// full journaled leg history. The open quantity and average price come
// from FIFO matching; whatever the matcher leaves open is the position.
func (m *Manager) rebuildPosition(ctx context.Context, broker Broker, accountID int64, symbol string) error {
	legs, err := m.store.ListTrades(ctx, store.TradeFilter{
		AccountID: accountID,
		Symbol:    symbol,
		Asset:     types.AssetStock,
	})
	if err != nil {
		return err
	}
	if len(legs) == 0 {
		return nil
	}

	_, open, err := analytics.MatchLegs(legs)
	if err != nil {
		return fmt.Errorf("rebuild %s: %w", symbol, err)
	}

	pos := &types.Position{
		AccountID: accountID,
		Symbol:    symbol,
		Asset:     types.AssetStock,
		Status:    types.StatusClosed,
		OpenedAt:  legs[0].ExecutedAt,
	}

	var qty int64
	cost := decimal.Zero
	for _, lot := range open {
		remaining := lot.Remaining
		if lot.Leg.Side == types.SideSellToOpen {
			remaining = -remaining
		}
		qty += remaining
		cost = cost.Add(lot.Leg.Price.Mul(decimal.NewFromInt(lot.Remaining)))
	}

	if qty != 0 {
		abs := qty
		if abs < 0 {
			abs = -abs
		}
		pos.Quantity = qty
		pos.AveragePrice = cost.Div(decimal.NewFromInt(abs)).Round(2)
		pos.Status = types.StatusOpen
		pos.OpenedAt = open[0].Leg.ExecutedAt

		if price, err := broker.Quote(ctx, symbol); err == nil {
			pos.CurrentPrice = price
		} else {
			m.logger.Warn("Quote unavailable", zap.String("symbol", symbol), zap.Error(err))
		}
	} else {
		pos.ClosedAt = legs[len(legs)-1].ExecutedAt
	}

	return m.store.UpsertPosition(ctx, pos)
}
