package domain

import "time"

// ProfitFactorNoLosses es el valor centinela cuando hubo beneficio y ninguna pérdida.
const ProfitFactorNoLosses = 99.9

// BacktestRun es el informe inmutable de una simulación sobre (asset, timeframe).
type BacktestRun struct {
	ID                 string
	AccountID          string
	Asset              string
	Timeframe          string
	InitialBalance     float64
	FinalBalance       float64
	TotalPnL           float64
	WinRatePercent     float64
	ProfitFactor       float64
	MaxDrawdownPercent float64
	Wins               int
	Losses             int
	Candles            int
	CreatedAt          time.Time

	// Trades son las posiciones simuladas cerradas, la más reciente primero.
	Trades []Position
	// Open es la posición que seguía abierta al terminar la serie, si la había.
	Open *Position
}

// TotalTrades devuelve wins + losses.
func (r BacktestRun) TotalTrades() int {
	return r.Wins + r.Losses
}

// ProfitFactor = beneficio bruto / pérdida bruta (en valor absoluto) sobre los PnL dados.
// Sin pérdidas devuelve ProfitFactorNoLosses si hubo beneficio, 0 si no.
func ProfitFactor(pnls []float64) (factor, grossProfit, grossLoss float64) {
	for _, p := range pnls {
		switch {
		case p > 0:
			grossProfit += p
		case p < 0:
			grossLoss += -p
		}
	}
	if grossLoss > 0 {
		return grossProfit / grossLoss, grossProfit, grossLoss
	}
	if grossProfit > 0 {
		return ProfitFactorNoLosses, grossProfit, grossLoss
	}
	return 0, grossProfit, grossLoss
}

// DrawdownPercent = (peak − balance) / peak × 100.
func DrawdownPercent(peak, balance float64) float64 {
	if peak <= 0 {
		return 0
	}
	return (peak - balance) / peak * 100
}
