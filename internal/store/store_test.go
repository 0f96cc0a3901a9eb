package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradetracker/journal-backend/pkg/types"
)

// setupTestStore creates a temporary database for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "journal-test-*")
	require.NoError(t, err)

	s, err := Open(Config{
		Path:       filepath.Join(tmpDir, "test.db"),
		Passphrase: "test-passphrase",
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)

	cleanup := func() {
		s.Close()
		os.RemoveAll(tmpDir)
	}
	return s, cleanup
}

func testAccount(t *testing.T, s *Store) int64 {
	t.Helper()
	id, err := s.CreateAccount(context.Background(), &types.Account{
		Name:     "Main",
		Broker:   "binance",
		IsActive: true,
	})
	require.NoError(t, err)
	return id
}

func stockLeg(accountID int64, symbol string, side types.TradeSide, qty int64, price string) *types.TradeLeg {
	return &types.TradeLeg{
		AccountID:  accountID,
		Symbol:     symbol,
		Asset:      types.AssetStock,
		Side:       side,
		Quantity:   qty,
		Price:      decimal.RequireFromString(price),
		Commission: decimal.RequireFromString("1.25"),
		ExecutedAt: time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC),
		Status:     types.StatusOpen,
		Strategy:   types.StrategySwingTrade,
	}
}

func TestStore_AccountCRUD(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	id := testAccount(t, s)

	acct, err := s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Main", acct.Name)
	assert.Equal(t, "binance", acct.Broker)
	assert.True(t, acct.IsActive)

	acct.Name = "Renamed"
	acct.IsActive = false
	require.NoError(t, s.UpdateAccount(ctx, acct))

	got, err := s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.False(t, got.IsActive)

	all, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.GetAccount(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_TradeRoundTrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	acctID := testAccount(t, s)

	leg := stockLeg(acctID, "AAPL", types.SideBuy, 100, "150.50")
	leg.Notes = "earnings play"
	id, err := s.CreateTrade(ctx, leg)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := s.GetTrade(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, types.SideBuy, got.Side)
	assert.Equal(t, int64(100), got.Quantity)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("150.50")), "price: %s", got.Price)
	assert.True(t, got.Commission.Equal(decimal.RequireFromString("1.25")), "commission: %s", got.Commission)
	assert.Equal(t, "earnings play", got.Notes)
	assert.Equal(t, types.StrategySwingTrade, got.Strategy)
}

func TestStore_OptionTradeRoundTrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	acctID := testAccount(t, s)

	leg := &types.TradeLeg{
		AccountID:  acctID,
		Symbol:     "AAPL",
		Asset:      types.AssetOption,
		Side:       types.SideBuyToOpen,
		Quantity:   2,
		Price:      decimal.RequireFromString("5.50"),
		Commission: decimal.Zero,
		ExecutedAt: time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC),
		Status:     types.StatusOpen,
		Strategy:   types.StrategyLongCall,
		Strike:     decimal.RequireFromString("150"),
		Expiry:     time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
		Kind:       types.OptionCall,
		Multiplier: 100,
	}
	id, err := s.CreateTrade(ctx, leg)
	require.NoError(t, err)

	got, err := s.GetTrade(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.AssetOption, got.Asset)
	assert.True(t, got.Strike.Equal(decimal.RequireFromString("150")))
	assert.Equal(t, types.OptionCall, got.Kind)
	assert.Equal(t, int64(100), got.Multiplier)
	assert.Equal(t, 2024, got.Expiry.Year())
}

func TestStore_CreateTradeRejectsInvalid(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	acctID := testAccount(t, s)

	leg := stockLeg(acctID, "AAPL", types.SideBuy, 0, "150")
	_, err := s.CreateTrade(context.Background(), leg)
	assert.ErrorIs(t, err, types.ErrNonPositiveQty)
}

func TestStore_DuplicateBrokerRef(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	acctID := testAccount(t, s)

	first := stockLeg(acctID, "AAPL", types.SideBuy, 100, "150")
	first.BrokerRef = "fill-123"
	_, err := s.CreateTrade(ctx, first)
	require.NoError(t, err)

	dup := stockLeg(acctID, "AAPL", types.SideBuy, 50, "151")
	dup.BrokerRef = "fill-123"
	_, err = s.CreateTrade(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateBrokerRef)

	// Trades without a broker reference never collide.
	_, err = s.CreateTrade(ctx, stockLeg(acctID, "AAPL", types.SideBuy, 10, "152"))
	require.NoError(t, err)
	_, err = s.CreateTrade(ctx, stockLeg(acctID, "AAPL", types.SideBuy, 10, "153"))
	require.NoError(t, err)

	ok, err := s.HasBrokerRef(ctx, acctID, "fill-123")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasBrokerRef(ctx, acctID, "fill-999")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ListTradesFilter(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	acctID := testAccount(t, s)

	legs := []*types.TradeLeg{
		stockLeg(acctID, "AAPL", types.SideBuy, 100, "150"),
		stockLeg(acctID, "AAPL", types.SideSell, 100, "160"),
		stockLeg(acctID, "MSFT", types.SideBuy, 50, "400"),
	}
	legs[0].ExecutedAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	legs[1].ExecutedAt = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	legs[2].ExecutedAt = time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)
	for _, leg := range legs {
		_, err := s.CreateTrade(ctx, leg)
		require.NoError(t, err)
	}

	all, err := s.ListTrades(ctx, TradeFilter{AccountID: acctID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Ascending execution order for analytics consumption.
	assert.Equal(t, "AAPL", all[0].Symbol)
	assert.Equal(t, "MSFT", all[1].Symbol)
	assert.Equal(t, types.SideSell, all[2].Side)

	aapl, err := s.ListTrades(ctx, TradeFilter{AccountID: acctID, Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Len(t, aapl, 2)

	march4 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	early, err := s.ListTrades(ctx, TradeFilter{AccountID: acctID, To: march4})
	require.NoError(t, err)
	assert.Len(t, early, 2)

	limited, err := s.ListTrades(ctx, TradeFilter{AccountID: acctID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_UpdateAndDeleteTrade(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	acctID := testAccount(t, s)

	leg := stockLeg(acctID, "AAPL", types.SideBuy, 100, "150")
	id, err := s.CreateTrade(ctx, leg)
	require.NoError(t, err)

	leg.Status = types.StatusClosed
	leg.Strategy = types.StrategyMomentum
	leg.Notes = "closed into strength"
	require.NoError(t, s.UpdateTrade(ctx, leg))

	got, err := s.GetTrade(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusClosed, got.Status)
	assert.Equal(t, types.StrategyMomentum, got.Strategy)

	require.NoError(t, s.DeleteTrade(ctx, id))
	_, err = s.GetTrade(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteTrade(ctx, id), ErrNotFound)
}

func TestStore_PositionUpsert(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	acctID := testAccount(t, s)

	pos := &types.Position{
		AccountID:    acctID,
		Symbol:       "AAPL",
		Asset:        types.AssetStock,
		Quantity:     100,
		AveragePrice: decimal.RequireFromString("150.50"),
		Status:       types.StatusOpen,
		OpenedAt:     time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC),
	}
	require.NoError(t, s.UpsertPosition(ctx, pos))

	// Second upsert for the same contract replaces, never duplicates.
	pos.Quantity = 150
	pos.AveragePrice = decimal.RequireFromString("152.10")
	require.NoError(t, s.UpsertPosition(ctx, pos))

	open, err := s.ListOpenPositions(ctx, acctID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, int64(150), open[0].Quantity)
	assert.True(t, open[0].AveragePrice.Equal(decimal.RequireFromString("152.10")))

	got, err := s.GetPosition(ctx, acctID, "AAPL", types.AssetStock)
	require.NoError(t, err)
	assert.False(t, got.IsShort())

	_, err = s.GetPosition(ctx, acctID, "TSLA", types.AssetStock)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Credentials(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	acctID := testAccount(t, s)

	creds := Credentials{APIKey: "key-abc", APISecret: "secret-xyz"}
	require.NoError(t, s.SaveCredentials(ctx, acctID, creds))

	got, err := s.GetCredentials(ctx, acctID)
	require.NoError(t, err)
	assert.Equal(t, creds, got)

	// Overwrite rotates the pair.
	require.NoError(t, s.SaveCredentials(ctx, acctID, Credentials{APIKey: "k2", APISecret: "s2"}))
	got, err = s.GetCredentials(ctx, acctID)
	require.NoError(t, err)
	assert.Equal(t, "k2", got.APIKey)

	require.NoError(t, s.DeleteCredentials(ctx, acctID))
	_, err = s.GetCredentials(ctx, acctID)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestCipherRoundTrip(t *testing.T) {
	c := NewCipher("hunter2")

	blob, err := c.Encrypt([]byte("api-secret"))
	require.NoError(t, err)

	plain, err := c.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, "api-secret", string(plain))

	// Fresh salt and nonce per call: identical plaintexts never share a blob.
	blob2, err := c.Encrypt([]byte("api-secret"))
	require.NoError(t, err)
	assert.NotEqual(t, blob, blob2)

	_, err = NewCipher("wrong").Decrypt(blob)
	assert.True(t, errors.Is(err, ErrCiphertextCorrupt))

	_, err = c.Decrypt([]byte("short"))
	assert.ErrorIs(t, err, ErrCiphertextCorrupt)
}
