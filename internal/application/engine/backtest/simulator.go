package backtest

import (
	"math"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

const (
	defaultInitialBalance = 10000.0
	defaultRiskFraction   = 0.01
)

// EntryRule decide si una vela cerrada abre posición.
// Devuelve domain.ErrNoSetup cuando la vela no califica.
type EntryRule interface {
	Name() string
	Evaluate(c domain.Candle) (domain.Direction, domain.TradeSetup, error)
}

// Config contiene los parámetros de la simulación.
type Config struct {
	InitialBalance float64
	// RiskFraction es la fracción del balance actual que se arriesga por trade (0.01 = 1%).
	RiskFraction float64
}

// Simulator reproduce una serie de velas con una sola posición abierta a la vez.
// No tiene estado propio entre llamadas: dos Simulate con la misma entrada
// producen el mismo informe, así que es seguro usarlo desde varios goroutines.
type Simulator struct {
	cfg   Config
	entry EntryRule
}

// NewSimulator crea el simulador.
func NewSimulator(cfg Config, entry EntryRule) *Simulator {
	if cfg.InitialBalance <= 0 {
		cfg.InitialBalance = defaultInitialBalance
	}
	if cfg.RiskFraction <= 0 || cfg.RiskFraction > 1 {
		cfg.RiskFraction = defaultRiskFraction
	}
	return &Simulator{cfg: cfg, entry: entry}
}

// Simulate recorre candles (de la más antigua a la más reciente).
//
// Por vela: con posición abierta se comprueba la salida con high/low (SL antes
// que TP); sin posición se evalúa la regla de entrada con riesgo = balance
// actual × RiskFraction. Una vela que cierra una posición no abre otra.
//
// El informe devuelto no lleva ID ni CreatedAt; los asigna el Runner.
func (s *Simulator) Simulate(asset, timeframe string, candles []domain.Candle) domain.BacktestRun {
	balance := s.cfg.InitialBalance
	peak := balance
	maxDrawdown := 0.0

	var (
		active *domain.Position
		closed []domain.Position
		wins   int
		losses int
	)

	for _, c := range candles {
		if !validCandle(c) {
			continue
		}

		if active != nil {
			status, hit := domain.ExitInRange(*active, c.Low, c.High)
			if hit {
				if err := active.Close(status, c.Time); err != nil {
					continue
				}
				balance += active.PnL
				if status == domain.StatusWon {
					wins++
				} else {
					losses++
				}
				closed = append(closed, *active)
				active = nil
			}

			if balance > peak {
				peak = balance
			}
			if dd := domain.DrawdownPercent(peak, balance); dd > maxDrawdown {
				maxDrawdown = dd
			}
			continue
		}

		dir, setup, err := s.entry.Evaluate(c)
		if err != nil {
			continue
		}
		risk := balance * s.cfg.RiskFraction
		active = &domain.Position{
			Symbol:     asset,
			Direction:  dir,
			Entry:      setup.Entry,
			StopLoss:   setup.StopLoss,
			TakeProfit: setup.TakeProfit,
			RiskAmount: risk,
			Size:       domain.PositionSize(risk, setup),
			Status:     domain.StatusActive,
			Source:     setup.Source,
			OpenedAt:   c.Time,
		}
	}

	pnls := make([]float64, len(closed))
	for i, p := range closed {
		pnls[i] = p.PnL
	}
	pf, _, _ := domain.ProfitFactor(pnls)

	// Trade log del más reciente al más antiguo.
	trades := make([]domain.Position, len(closed))
	for i, p := range closed {
		trades[len(closed)-1-i] = p
	}

	return domain.BacktestRun{
		Asset:              asset,
		Timeframe:          timeframe,
		InitialBalance:     s.cfg.InitialBalance,
		FinalBalance:       balance,
		TotalPnL:           balance - s.cfg.InitialBalance,
		WinRatePercent:     domain.WinRate(wins, wins+losses),
		ProfitFactor:       pf,
		MaxDrawdownPercent: maxDrawdown,
		Wins:               wins,
		Losses:             losses,
		Candles:            len(candles),
		Trades:             trades,
		Open:               active,
	}
}

func validCandle(c domain.Candle) bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return c.High >= c.Low
}
