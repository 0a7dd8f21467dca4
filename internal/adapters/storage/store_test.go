package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tradepulse/internal/adapters/storage"
	"github.com/alejandrodnm/tradepulse/internal/domain"
)

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func makePosition(id, symbol string) domain.Position {
	return domain.Position{
		ID:         id,
		AccountID:  domain.DefaultAccountID,
		Symbol:     symbol,
		Direction:  domain.Long,
		Entry:      100,
		StopLoss:   90,
		TakeProfit: 110,
		RiskAmount: 50,
		Size:       5,
		Status:     domain.StatusActive,
		Source:     domain.SourceFallback,
		OpenedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := storage.Open("mysql", "x")
	assert.Error(t, err)
}

func TestEnsureAccount_Defaults(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	acct, err := s.EnsureAccount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAccountID, acct.ID)
	assert.Equal(t, domain.DefaultBalance, acct.Balance)
	assert.Equal(t, domain.DefaultRiskPercentage, acct.RiskPercentage)

	// Segunda llamada no resetea nada
	_, err = s.UpdateAccountSettings(ctx, "", 5000, 2)
	require.NoError(t, err)
	acct, err = s.EnsureAccount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 5000.0, acct.Balance)
}

func TestGetAccount_NotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.GetAccount(context.Background(), "ghost")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestUpdateAccountSettings_ValidatesBeforeMutation(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.UpdateAccountSettings(ctx, "", -1, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidBalance)
	_, err = s.UpdateAccountSettings(ctx, "", 100, 101)
	assert.ErrorIs(t, err, domain.ErrInvalidRisk)

	// La cuenta ni siquiera se creó
	_, err = s.GetAccount(ctx, domain.DefaultAccountID)
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestOpenPosition_EnforcesLimit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.OpenPosition(ctx, makePosition("p1", "BTC/USD")))
	err := s.OpenPosition(ctx, makePosition("p2", "BTC/USD"))
	assert.ErrorIs(t, err, domain.ErrPositionLimit)

	// Otro símbolo sí se permite
	require.NoError(t, s.OpenPosition(ctx, makePosition("p3", "ETH/USD")))

	has, err := s.HasActivePosition(ctx, domain.DefaultAccountID, "BTC/USD")
	require.NoError(t, err)
	assert.True(t, has)

	active, err := s.ActivePositions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, domain.Long, active[0].Direction)
	assert.Equal(t, domain.SourceFallback, active[0].Source)
	assert.Nil(t, active[0].ClosedAt)
}

func TestClosePosition_OnlyOnce(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.OpenPosition(ctx, makePosition("p1", "BTC/USD")))

	now := time.Now().UTC()
	ok, err := s.ClosePosition(ctx, "p1", domain.StatusWon, 50, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ClosePosition(ctx, "p1", domain.StatusLost, -50, now)
	require.NoError(t, err)
	assert.False(t, ok, "second close must not apply")

	acct, err := s.GetAccount(ctx, domain.DefaultAccountID)
	require.NoError(t, err)
	assert.InDelta(t, domain.DefaultBalance+50, acct.Balance, 1e-9)
	assert.Equal(t, 1, acct.TotalClosedTrades)
	assert.InDelta(t, 100.0, acct.WinRatePercent, 1e-9)

	won, err := s.ListPositions(ctx, "", domain.StatusWon)
	require.NoError(t, err)
	require.Len(t, won, 1)
	require.NotNil(t, won[0].ClosedAt)
	assert.InDelta(t, 50, won[0].PnL, 1e-9)

	// Cerrada → libera el límite del símbolo
	require.NoError(t, s.OpenPosition(ctx, makePosition("p2", "BTC/USD")))
}

func TestClosePosition_ConcurrentPassesBookOnce(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.OpenPosition(ctx, makePosition("p1", "BTC/USD")))

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ClosePosition(ctx, "p1", domain.StatusWon, 50, time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	acct, err := s.GetAccount(ctx, "")
	require.NoError(t, err)
	assert.InDelta(t, domain.DefaultBalance+50, acct.Balance, 1e-9)
}

func TestWinRate_RecomputedAndIdempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.OpenPosition(ctx, makePosition("a", "BTC/USD")))
	require.NoError(t, s.OpenPosition(ctx, makePosition("b", "ETH/USD")))

	// Cierra LOST primero y WON después: el orden no importa
	_, err := s.ClosePosition(ctx, "b", domain.StatusLost, -50, time.Now())
	require.NoError(t, err)
	_, err = s.ClosePosition(ctx, "a", domain.StatusWon, 50, time.Now())
	require.NoError(t, err)

	first, err := s.RecomputeAccountStats(ctx, "")
	require.NoError(t, err)
	second, err := s.RecomputeAccountStats(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 2, first.TotalClosedTrades)
	assert.InDelta(t, 50.0, first.WinRatePercent, 1e-9)
	assert.Equal(t, first.WinRatePercent, second.WinRatePercent)
	assert.Equal(t, first.TotalClosedTrades, second.TotalClosedTrades)
	assert.InDelta(t, domain.DefaultBalance, second.Balance, 1e-9)
}

func TestFlushActive(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.OpenPosition(ctx, makePosition("a", "BTC/USD")))
	require.NoError(t, s.OpenPosition(ctx, makePosition("b", "ETH/USD")))
	_, err := s.ClosePosition(ctx, "b", domain.StatusLost, -50, time.Now())
	require.NoError(t, err)

	n, err := s.FlushActive(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := s.ListPositions(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusLost, all[0].Status)
}

func TestBacktestRuns_SaveAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	closed := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	run := domain.BacktestRun{
		ID:                 "run-1",
		Asset:              "BTC/USD",
		Timeframe:          "4h",
		InitialBalance:     10000,
		FinalBalance:       10300,
		TotalPnL:           300,
		WinRatePercent:     50,
		ProfitFactor:       4,
		MaxDrawdownPercent: 1,
		Wins:               1,
		Losses:             1,
		Candles:            250,
		CreatedAt:          time.Now().UTC().Truncate(time.Second),
		Trades: []domain.Position{
			{Direction: domain.Long, Entry: 100, StopLoss: 90, TakeProfit: 140, RiskAmount: 100,
				Status: domain.StatusWon, PnL: 400, OpenedAt: closed.Add(-time.Hour), ClosedAt: &closed},
			{Direction: domain.Short, Entry: 100, StopLoss: 110, TakeProfit: 60, RiskAmount: 100,
				Status: domain.StatusLost, PnL: -100, OpenedAt: closed.Add(-48 * time.Hour), ClosedAt: &closed},
		},
	}
	require.NoError(t, s.SaveBacktestRun(ctx, run))

	runs, err := s.ListBacktestRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, "BTC/USD", got.Asset)
	assert.Equal(t, 250, got.Candles)
	require.Len(t, got.Trades, 2)
	assert.Equal(t, domain.StatusWon, got.Trades[0].Status)
	assert.Equal(t, domain.Short, got.Trades[1].Direction)
	require.NotNil(t, got.Trades[0].ClosedAt)
	assert.True(t, closed.Equal(*got.Trades[0].ClosedAt))
}
