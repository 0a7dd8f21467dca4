package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskAmount(t *testing.T) {
	assert.InDelta(t, 100, RiskAmount(10000, 1), 1e-9)
	assert.InDelta(t, 250, RiskAmount(5000, 5), 1e-9)
	assert.InDelta(t, 5000, RiskAmount(5000, 100), 1e-9)
}

func TestCheckOpen(t *testing.T) {
	acct := DefaultAccount("")
	assert.Equal(t, DefaultAccountID, acct.ID)

	assert.NoError(t, CheckOpen(acct, 100, false))
	assert.ErrorIs(t, CheckOpen(acct, 100, true), ErrPositionLimit)
	assert.ErrorIs(t, CheckOpen(acct, acct.Balance+1, false), ErrInsufficientMargin)

	acct.RiskPercentage = 0
	assert.ErrorIs(t, CheckOpen(acct, 0, false), ErrInvalidRisk)
}

func TestValidateAccountSettings(t *testing.T) {
	assert.NoError(t, ValidateAccountSettings(0, 100))
	assert.NoError(t, ValidateAccountSettings(10000, 0.5))

	assert.ErrorIs(t, ValidateAccountSettings(-1, 1), ErrInvalidBalance)
	assert.ErrorIs(t, ValidateAccountSettings(math.Inf(1), 1), ErrInvalidBalance)
	assert.ErrorIs(t, ValidateAccountSettings(100, 0), ErrInvalidRisk)
	assert.ErrorIs(t, ValidateAccountSettings(100, 100.01), ErrInvalidRisk)
	assert.ErrorIs(t, ValidateAccountSettings(100, math.NaN()), ErrInvalidRisk)
}

func TestPositionSizeAndRealizedRisk(t *testing.T) {
	setup := TradeSetup{Entry: 100, StopLoss: 98, TakeProfit: 108}
	size := PositionSize(100, setup)
	assert.InDelta(t, 50, size, 1e-9)

	// fill peor que la entrada → el riesgo real crece
	assert.InDelta(t, 125, RealizedRisk(100.5, 98, size), 1e-9)
	assert.Equal(t, 0.0, PositionSize(100, TradeSetup{Entry: 100, StopLoss: 100}))
}

func TestWinRate(t *testing.T) {
	assert.Equal(t, 0.0, WinRate(0, 0))
	assert.InDelta(t, 50.0, WinRate(1, 2), 1e-9)
	assert.InDelta(t, 100.0, WinRate(3, 3), 1e-9)
}

func TestProfitFactor(t *testing.T) {
	pf, gp, gl := ProfitFactor([]float64{400, -100, -100})
	assert.InDelta(t, 2.0, pf, 1e-9)
	assert.InDelta(t, 400, gp, 1e-9)
	assert.InDelta(t, 200, gl, 1e-9)

	pf, _, _ = ProfitFactor([]float64{400})
	assert.Equal(t, ProfitFactorNoLosses, pf)

	pf, _, _ = ProfitFactor(nil)
	assert.Equal(t, 0.0, pf)
}

func TestDrawdownPercent(t *testing.T) {
	assert.InDelta(t, 10.0, DrawdownPercent(10000, 9000), 1e-9)
	assert.Equal(t, 0.0, DrawdownPercent(0, 0))
}
