package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tradetracker/journal-backend/pkg/types"
)

const positionColumns = `id, account_id, symbol, asset, quantity, average_price,
	current_price, status, opened_at, closed_at`

// UpsertPosition inserts or replaces the position for (account, symbol,
// asset). Positions are derived state rebuilt from the trade journal, so
// last-write-wins is the correct merge.
func (s *Store) UpsertPosition(ctx context.Context, pos *types.Position) error {
	const query = `
	INSERT INTO positions (account_id, symbol, asset, quantity, average_price,
		current_price, status, opened_at, closed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (account_id, symbol, asset) DO UPDATE SET
		quantity = excluded.quantity,
		average_price = excluded.average_price,
		current_price = excluded.current_price,
		status = excluded.status,
		opened_at = excluded.opened_at,
		closed_at = excluded.closed_at`

	var current sql.NullString
	if !pos.CurrentPrice.IsZero() {
		current = nullString(pos.CurrentPrice.String())
	}

	_, err := s.db.ExecContext(ctx, query,
		pos.AccountID, pos.Symbol, pos.Asset, pos.Quantity,
		pos.AveragePrice.String(), current, pos.Status,
		pos.OpenedAt.UTC(), nullTime(pos.ClosedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert position %s/%s: %w", pos.Symbol, pos.Asset, err)
	}
	return nil
}

// GetPosition retrieves the position for (account, symbol, asset).
func (s *Store) GetPosition(ctx context.Context, accountID int64, symbol string, asset types.AssetKind) (*types.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions
	WHERE account_id = ? AND symbol = ? AND asset = ?`

	pos, err := scanPosition(s.db.QueryRowContext(ctx, query, accountID, symbol, asset))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("position %s/%s: %w", symbol, asset, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query position %s/%s: %w", symbol, asset, err)
	}
	return pos, nil
}

// ListOpenPositions retrieves all open positions for an account.
func (s *Store) ListOpenPositions(ctx context.Context, accountID int64) ([]*types.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions
	WHERE account_id = ? AND status = ? ORDER BY opened_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, accountID, types.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	positions := make([]*types.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

func scanPosition(sc scanner) (*types.Position, error) {
	pos := &types.Position{}
	var avgPrice string
	var current sql.NullString
	var closedAt sql.NullTime

	err := sc.Scan(&pos.ID, &pos.AccountID, &pos.Symbol, &pos.Asset, &pos.Quantity,
		&avgPrice, &current, &pos.Status, &pos.OpenedAt, &closedAt)
	if err != nil {
		return nil, err
	}

	if pos.AveragePrice, err = parseDecimal(avgPrice); err != nil {
		return nil, err
	}
	if current.Valid {
		if pos.CurrentPrice, err = parseDecimal(current.String); err != nil {
			return nil, err
		}
	}
	if closedAt.Valid {
		pos.ClosedAt = closedAt.Time
	}
	return pos, nil
}
