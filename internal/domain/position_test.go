package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longPosition() Position {
	return Position{
		ID:         "p1",
		Symbol:     "BTC/USD",
		Direction:  Long,
		Entry:      100,
		StopLoss:   90,
		TakeProfit: 110,
		RiskAmount: 50,
		Status:     StatusActive,
	}
}

func shortPosition() Position {
	return Position{
		ID:         "p2",
		Symbol:     "BTC/USD",
		Direction:  Short,
		Entry:      100,
		StopLoss:   105,
		TakeProfit: 80,
		RiskAmount: 20,
		Status:     StatusActive,
	}
}

func TestExitAtPrice_Long(t *testing.T) {
	p := longPosition()

	st, ok := ExitAtPrice(p, 110)
	assert.True(t, ok)
	assert.Equal(t, StatusWon, st)

	st, ok = ExitAtPrice(p, 89.5)
	assert.True(t, ok)
	assert.Equal(t, StatusLost, st)

	_, ok = ExitAtPrice(p, 105)
	assert.False(t, ok)
}

func TestExitAtPrice_Short(t *testing.T) {
	p := shortPosition()

	st, ok := ExitAtPrice(p, 80)
	assert.True(t, ok)
	assert.Equal(t, StatusWon, st)

	st, ok = ExitAtPrice(p, 105)
	assert.True(t, ok)
	assert.Equal(t, StatusLost, st)

	_, ok = ExitAtPrice(p, 95)
	assert.False(t, ok)
}

func TestExitInRange_StopLossFirst(t *testing.T) {
	// La vela toca SL y TP: política conservadora → LOST
	st, ok := ExitInRange(longPosition(), 85, 115)
	assert.True(t, ok)
	assert.Equal(t, StatusLost, st)

	st, ok = ExitInRange(shortPosition(), 75, 110)
	assert.True(t, ok)
	assert.Equal(t, StatusLost, st)
}

func TestClosePnL(t *testing.T) {
	p := longPosition()
	// 50 × (110−100)/(100−90) = 50
	assert.InDelta(t, 50, ClosePnL(p, StatusWon), 1e-9)
	assert.InDelta(t, -50, ClosePnL(p, StatusLost), 1e-9)
	assert.Equal(t, 0.0, ClosePnL(p, StatusActive))

	s := shortPosition()
	// 20 × 20/5 = 80
	assert.InDelta(t, 80, ClosePnL(s, StatusWon), 1e-9)
}

func TestClosePnL_ZeroRiskDistance(t *testing.T) {
	p := longPosition()
	p.StopLoss = p.Entry
	assert.InDelta(t, p.RiskAmount, ClosePnL(p, StatusWon), 1e-9)
}

func TestPosition_CloseOnlyOnce(t *testing.T) {
	p := longPosition()
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, p.Close(StatusWon, at))
	assert.Equal(t, StatusWon, p.Status)
	assert.InDelta(t, 50, p.PnL, 1e-9)
	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, at, *p.ClosedAt)

	err := p.Close(StatusLost, at)
	assert.Error(t, err)
	assert.Equal(t, StatusWon, p.Status)
	assert.InDelta(t, 50, p.PnL, 1e-9)
}

func TestPosition_CloseRejectsNonTerminal(t *testing.T) {
	p := longPosition()
	assert.Error(t, p.Close(StatusActive, time.Now()))
	assert.Equal(t, StatusActive, p.Status)
}
