// Package store persists accounts, trade legs, positions and broker
// credentials in SQLite. Monetary values are stored as TEXT so that
// decimals survive the round trip exactly.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store provides access to the journal database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	cipher *Cipher
}

// Config holds configuration for the store.
type Config struct {
	// Path is the SQLite database file. The parent directory is created
	// when missing.
	Path string
	// Passphrase protects broker credentials at rest. Leave empty to
	// disable credential storage.
	Passphrase string
	Logger     *zap.Logger
}

// Open opens the database, applies the schema and returns a ready store.
func Open(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	path := cfg.Path
	if path == "" {
		path = "./data/journal.db"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %q: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database at %q: %w", path, err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent API requests.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, logger: cfg.Logger}
	if cfg.Passphrase != "" {
		s.cipher = NewCipher(cfg.Passphrase)
	}

	if err := s.initializeSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	cfg.Logger.Info("Database opened", zap.String("path", path))
	return s, nil
}

func (s *Store) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		broker TEXT NOT NULL,
		account_number TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		symbol TEXT NOT NULL,
		asset TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price TEXT NOT NULL,
		commission TEXT NOT NULL DEFAULT '0',
		executed_at TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		strategy TEXT NOT NULL DEFAULT 'untagged',
		notes TEXT NOT NULL DEFAULT '',
		broker_ref TEXT DEFAULT NULL,
		strike TEXT DEFAULT NULL,
		expiry TIMESTAMP DEFAULT NULL,
		option_kind TEXT DEFAULT NULL,
		multiplier INTEGER DEFAULT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		symbol TEXT NOT NULL,
		asset TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		average_price TEXT NOT NULL,
		current_price TEXT DEFAULT NULL,
		status TEXT NOT NULL,
		opened_at TIMESTAMP NOT NULL,
		closed_at TIMESTAMP DEFAULT NULL,
		UNIQUE (account_id, symbol, asset)
	);

	CREATE TABLE IF NOT EXISTS credentials (
		account_id INTEGER PRIMARY KEY REFERENCES accounts(id),
		api_key BLOB NOT NULL,
		api_secret BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_account_executed ON trades (account_id, executed_at);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades (symbol);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_broker_ref ON trades (account_id, broker_ref)
		WHERE broker_ref IS NOT NULL;
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.logger.Info("Closing database")
	return s.db.Close()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt decimal %q: %w", raw, err)
	}
	return d, nil
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
