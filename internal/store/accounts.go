package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tradetracker/journal-backend/pkg/types"
)

// CreateAccount inserts a new account and returns its assigned ID.
func (s *Store) CreateAccount(ctx context.Context, acct *types.Account) (int64, error) {
	const query = `
	INSERT INTO accounts (name, broker, account_number, is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		acct.Name, acct.Broker, acct.AccountNumber, acct.IsActive, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert account %q: %w", acct.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert ID for account %q: %w", acct.Name, err)
	}
	acct.ID = id
	acct.CreatedAt = now
	acct.UpdatedAt = now
	s.logger.Debug("Account created", zap.Int64("accountID", id), zap.String("name", acct.Name))
	return id, nil
}

// GetAccount retrieves an account by ID.
func (s *Store) GetAccount(ctx context.Context, id int64) (*types.Account, error) {
	const query = `
	SELECT id, name, broker, account_number, is_active, created_at, updated_at
	FROM accounts WHERE id = ?`

	acct, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query account %d: %w", id, err)
	}
	return acct, nil
}

// ListAccounts retrieves all accounts, newest first.
func (s *Store) ListAccounts(ctx context.Context) ([]*types.Account, error) {
	const query = `
	SELECT id, name, broker, account_number, is_active, created_at, updated_at
	FROM accounts ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*types.Account, 0)
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccount modifies an existing account.
func (s *Store) UpdateAccount(ctx context.Context, acct *types.Account) error {
	const query = `
	UPDATE accounts SET name = ?, broker = ?, account_number = ?, is_active = ?, updated_at = ?
	WHERE id = ?`

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		acct.Name, acct.Broker, acct.AccountNumber, acct.IsActive, now, acct.ID)
	if err != nil {
		return fmt.Errorf("failed to update account %d: %w", acct.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for account %d: %w", acct.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("account %d: %w", acct.ID, ErrNotFound)
	}
	acct.UpdatedAt = now
	return nil
}

func scanAccount(sc scanner) (*types.Account, error) {
	acct := &types.Account{}
	err := sc.Scan(&acct.ID, &acct.Name, &acct.Broker, &acct.AccountNumber,
		&acct.IsActive, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return acct, nil
}
