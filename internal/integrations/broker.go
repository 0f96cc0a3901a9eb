// Package integrations imports broker fill history into the journal and
// keeps derived positions current.
package integrations

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradetracker/journal-backend/internal/store"
	"github.com/tradetracker/journal-backend/pkg/types"
)

// Broker errors callers can test with errors.Is.
var (
	// ErrAuthFailed indicates the broker rejected the API credentials.
	ErrAuthFailed = errors.New("broker authentication failed")
	// ErrRateLimited indicates the broker throttled the request.
	ErrRateLimited = errors.New("broker rate limit exceeded")
	// ErrUnavailable indicates the broker could not be reached.
	ErrUnavailable = errors.New("broker unavailable")
	// ErrUnknownBroker indicates no adapter is registered for the name.
	ErrUnknownBroker = errors.New("unknown broker")
)

// Broker is a read-only connection to an external brokerage. Adapters
// translate broker-native records into journal trade legs; they never
// place orders.
type Broker interface {
	// Name identifies the adapter, e.g. "binance".
	Name() string
	// Fills returns executed fills for a symbol since the given time, in
	// execution order. Each leg carries a stable BrokerRef so repeated
	// imports are idempotent.
	Fills(ctx context.Context, symbol string, since time.Time) ([]*types.TradeLeg, error)
	// Quote returns the current price for a symbol, for marking open
	// positions.
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Factory builds a broker adapter from stored account credentials. The
// logger is the sync manager's, so adapter warnings land in one stream.
type Factory func(creds store.Credentials, logger *zap.Logger) (Broker, error)
