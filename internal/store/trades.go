package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/tradetracker/journal-backend/pkg/types"
)

// TradeFilter narrows ListTrades. Zero-valued fields are ignored.
type TradeFilter struct {
	AccountID int64
	Symbol    string
	Asset     types.AssetKind
	Status    types.TradeStatus
	Strategy  types.StrategyTag
	From      time.Time
	To        time.Time
	Limit     int
}

const tradeColumns = `id, account_id, symbol, asset, side, quantity, price, commission,
	executed_at, status, strategy, notes, broker_ref, strike, expiry, option_kind, multiplier,
	created_at, updated_at`

// CreateTrade validates and inserts a trade leg, returning its assigned ID.
// A duplicate broker reference within the account maps to
// ErrDuplicateBrokerRef so importers can skip already-journaled fills.
func (s *Store) CreateTrade(ctx context.Context, leg *types.TradeLeg) (int64, error) {
	if err := leg.Validate(); err != nil {
		return 0, err
	}

	const query = `
	INSERT INTO trades (account_id, symbol, asset, side, quantity, price, commission,
		executed_at, status, strategy, notes, broker_ref, strike, expiry, option_kind, multiplier,
		created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	var strike, kind sql.NullString
	var expiry sql.NullTime
	var multiplier sql.NullInt64
	if leg.Asset == types.AssetOption {
		strike = nullString(leg.Strike.String())
		kind = nullString(string(leg.Kind))
		expiry = nullTime(leg.Expiry)
		multiplier = sql.NullInt64{Int64: leg.Multiplier, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query,
		leg.AccountID, leg.Symbol, leg.Asset, leg.Side, leg.Quantity,
		leg.Price.String(), leg.Commission.String(), leg.ExecutedAt.UTC(),
		leg.Status, leg.Strategy, leg.Notes, nullString(leg.BrokerRef),
		strike, expiry, kind, multiplier, now, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("trade %s/%s: %w", leg.Symbol, leg.BrokerRef, ErrDuplicateBrokerRef)
		}
		return 0, fmt.Errorf("failed to insert trade for %s: %w", leg.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert ID for trade %s: %w", leg.Symbol, err)
	}
	leg.ID = id
	leg.CreatedAt = now
	leg.UpdatedAt = now
	s.logger.Debug("Trade created",
		zap.Int64("tradeID", id),
		zap.String("symbol", leg.Symbol),
		zap.String("side", string(leg.Side)))
	return id, nil
}

// GetTrade retrieves a trade leg by ID.
func (s *Store) GetTrade(ctx context.Context, id int64) (*types.TradeLeg, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = ?`

	leg, err := scanTrade(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trade %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query trade %d: %w", id, err)
	}
	return leg, nil
}

// ListTrades retrieves trade legs matching the filter, ordered by
// execution time ascending so analytics can consume the result directly.
func (s *Store) ListTrades(ctx context.Context, filter TradeFilter) ([]*types.TradeLeg, error) {
	var conds []string
	var args []interface{}

	if filter.AccountID != 0 {
		conds = append(conds, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.Symbol != "" {
		conds = append(conds, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if filter.Asset != "" {
		conds = append(conds, "asset = ?")
		args = append(args, filter.Asset)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Strategy != "" {
		conds = append(conds, "strategy = ?")
		args = append(args, filter.Strategy)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "executed_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		conds = append(conds, "executed_at < ?")
		args = append(args, filter.To.UTC())
	}

	query := `SELECT ` + tradeColumns + ` FROM trades`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY executed_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]*types.TradeLeg, 0)
	for rows.Next() {
		leg, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, leg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

// UpdateTrade modifies the mutable fields of a journaled leg. Identity
// fields (symbol, side, quantity, prices) are deliberately immutable;
// correcting a fill means deleting and re-entering it.
func (s *Store) UpdateTrade(ctx context.Context, leg *types.TradeLeg) error {
	const query = `
	UPDATE trades SET status = ?, strategy = ?, notes = ?, updated_at = ?
	WHERE id = ?`

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query, leg.Status, leg.Strategy, leg.Notes, now, leg.ID)
	if err != nil {
		return fmt.Errorf("failed to update trade %d: %w", leg.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for trade %d: %w", leg.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("trade %d: %w", leg.ID, ErrNotFound)
	}
	leg.UpdatedAt = now
	return nil
}

// DeleteTrade removes a trade leg.
func (s *Store) DeleteTrade(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for trade %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("trade %d: %w", id, ErrNotFound)
	}
	s.logger.Debug("Trade deleted", zap.Int64("tradeID", id))
	return nil
}

// DistinctSymbols returns the symbols an account has journaled trades
// for, alphabetically.
func (s *Store) DistinctSymbols(ctx context.Context, accountID int64) ([]string, error) {
	const query = `SELECT DISTINCT symbol FROM trades WHERE account_id = ? ORDER BY symbol`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}
	return symbols, nil
}

// HasBrokerRef reports whether the account already holds a trade with the
// given broker reference.
func (s *Store) HasBrokerRef(ctx context.Context, accountID int64, ref string) (bool, error) {
	const query = `SELECT COUNT(*) FROM trades WHERE account_id = ? AND broker_ref = ?`
	var count int
	if err := s.db.QueryRowContext(ctx, query, accountID, ref).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check broker ref %q: %w", ref, err)
	}
	return count > 0, nil
}

func scanTrade(sc scanner) (*types.TradeLeg, error) {
	leg := &types.TradeLeg{}
	var price, commission string
	var brokerRef, strike, kind sql.NullString
	var expiry sql.NullTime
	var multiplier sql.NullInt64

	err := sc.Scan(&leg.ID, &leg.AccountID, &leg.Symbol, &leg.Asset, &leg.Side,
		&leg.Quantity, &price, &commission, &leg.ExecutedAt, &leg.Status,
		&leg.Strategy, &leg.Notes, &brokerRef, &strike, &expiry, &kind,
		&multiplier, &leg.CreatedAt, &leg.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if leg.Price, err = parseDecimal(price); err != nil {
		return nil, err
	}
	if leg.Commission, err = parseDecimal(commission); err != nil {
		return nil, err
	}
	if brokerRef.Valid {
		leg.BrokerRef = brokerRef.String
	}
	if strike.Valid {
		if leg.Strike, err = parseDecimal(strike.String); err != nil {
			return nil, err
		}
	}
	if expiry.Valid {
		leg.Expiry = expiry.Time
	}
	if kind.Valid {
		leg.Kind = types.OptionKind(kind.String)
	}
	if multiplier.Valid {
		leg.Multiplier = multiplier.Int64
	}
	return leg, nil
}
