package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Credentials are the broker API key pair for an account. Stored
// encrypted; never logged.
type Credentials struct {
	APIKey    string
	APISecret string
}

// SaveCredentials encrypts and stores the broker credentials for an
// account, replacing any existing pair.
func (s *Store) SaveCredentials(ctx context.Context, accountID int64, creds Credentials) error {
	if s.cipher == nil {
		return fmt.Errorf("credential storage disabled: no passphrase configured")
	}

	key, err := s.cipher.Encrypt([]byte(creds.APIKey))
	if err != nil {
		return fmt.Errorf("failed to encrypt API key: %w", err)
	}
	secret, err := s.cipher.Encrypt([]byte(creds.APISecret))
	if err != nil {
		return fmt.Errorf("failed to encrypt API secret: %w", err)
	}

	const query = `
	INSERT INTO credentials (account_id, api_key, api_secret, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (account_id) DO UPDATE SET
		api_key = excluded.api_key,
		api_secret = excluded.api_secret,
		updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, accountID, key, secret, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store credentials for account %d: %w", accountID, err)
	}
	s.logger.Info("Credentials stored", zap.Int64("accountID", accountID))
	return nil
}

// GetCredentials retrieves and decrypts the broker credentials for an
// account.
func (s *Store) GetCredentials(ctx context.Context, accountID int64) (Credentials, error) {
	if s.cipher == nil {
		return Credentials{}, fmt.Errorf("credential storage disabled: no passphrase configured")
	}

	const query = `SELECT api_key, api_secret FROM credentials WHERE account_id = ?`
	var key, secret []byte
	err := s.db.QueryRowContext(ctx, query, accountID).Scan(&key, &secret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credentials{}, fmt.Errorf("account %d: %w", accountID, ErrNoCredentials)
		}
		return Credentials{}, fmt.Errorf("failed to query credentials for account %d: %w", accountID, err)
	}

	apiKey, err := s.cipher.Decrypt(key)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to decrypt API key for account %d: %w", accountID, err)
	}
	apiSecret, err := s.cipher.Decrypt(secret)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to decrypt API secret for account %d: %w", accountID, err)
	}
	return Credentials{APIKey: string(apiKey), APISecret: string(apiSecret)}, nil
}

// DeleteCredentials removes the stored credentials for an account.
func (s *Store) DeleteCredentials(ctx context.Context, accountID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE account_id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete credentials for account %d: %w", accountID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for credentials %d: %w", accountID, err)
	}
	if affected == 0 {
		return fmt.Errorf("account %d: %w", accountID, ErrNoCredentials)
	}
	return nil
}
