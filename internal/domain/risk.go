package domain

import (
	"errors"
	"math"
	"time"
)

const (
	DefaultAccountID      = "default"
	DefaultBalance        = 10000.0
	DefaultRiskPercentage = 1.0
)

var (
	// ErrPositionLimit: ya existe una posición ACTIVE para la misma cuenta y símbolo.
	ErrPositionLimit = errors.New("position limit: active position already open for symbol")
	// ErrInsufficientMargin: el riesgo calculado supera el balance.
	ErrInsufficientMargin = errors.New("insufficient margin")
	ErrInvalidBalance     = errors.New("invalid balance: must be a finite number >= 0")
	ErrInvalidRisk        = errors.New("invalid risk percentage: must be in (0, 100]")
)

// Account es la cuenta virtual contra la que se dimensionan las posiciones.
// WinRatePercent es derivado: siempre se recalcula desde el conjunto de posiciones cerradas.
type Account struct {
	ID                string
	Balance           float64
	RiskPercentage    float64
	TotalClosedTrades int
	WinRatePercent    float64
	UpdatedAt         time.Time
}

// DefaultAccount devuelve la cuenta que se usa cuando no existe registro.
func DefaultAccount(id string) Account {
	if id == "" {
		id = DefaultAccountID
	}
	return Account{ID: id, Balance: DefaultBalance, RiskPercentage: DefaultRiskPercentage}
}

// ValidateBalance rechaza balances negativos o no finitos.
func ValidateBalance(balance float64) error {
	if math.IsNaN(balance) || math.IsInf(balance, 0) || balance < 0 {
		return ErrInvalidBalance
	}
	return nil
}

// ValidateRiskPercentage exige riesgo en (0, 100].
func ValidateRiskPercentage(pct float64) error {
	if math.IsNaN(pct) || pct <= 0 || pct > 100 {
		return ErrInvalidRisk
	}
	return nil
}

// ValidateAccountSettings valida balance y riesgo antes de cualquier mutación.
func ValidateAccountSettings(balance, riskPct float64) error {
	if err := ValidateBalance(balance); err != nil {
		return err
	}
	return ValidateRiskPercentage(riskPct)
}

// RiskAmount = balance × riskPct/100. Se calcula una vez al abrir y se congela.
func RiskAmount(balance, riskPct float64) float64 {
	return balance * (riskPct / 100)
}

// CheckOpen aplica las guardas previas a abrir una posición.
func CheckOpen(acct Account, riskAmount float64, hasActive bool) error {
	if err := ValidateAccountSettings(acct.Balance, acct.RiskPercentage); err != nil {
		return err
	}
	if hasActive {
		return ErrPositionLimit
	}
	if riskAmount > acct.Balance {
		return ErrInsufficientMargin
	}
	return nil
}

// PositionSize devuelve las unidades que arriesgan exactamente riskAmount hasta el SL.
func PositionSize(riskAmount float64, setup TradeSetup) float64 {
	d := setup.RiskDistance()
	if d == 0 {
		return 0
	}
	return riskAmount / d
}

// RealizedRisk recalcula el riesgo con el precio real de fill: |fill − SL| × size.
func RealizedRisk(fillPrice, stopLoss, size float64) float64 {
	return math.Abs(fillPrice-stopLoss) * size
}

// WinRate = won / closed × 100, 0 si no hay cerradas.
func WinRate(won, closed int) float64 {
	if closed <= 0 {
		return 0
	}
	return float64(won) / float64(closed) * 100
}
