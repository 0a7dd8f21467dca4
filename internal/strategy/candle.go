package strategy

import "github.com/alejandrodnm/tradepulse/internal/domain"

// CandleMomentumName identifica la variante de backtest.
const CandleMomentumName = "candle_momentum"

// CandleMomentum entra a favor de velas con cuerpo fuerte. Es la regla que usa
// el simulador de backtest sobre cada vela cerrada.
type CandleMomentum struct{}

// NewCandleMomentum crea la regla de velas.
func NewCandleMomentum() *CandleMomentum {
	return &CandleMomentum{}
}

// Name devuelve el identificador de la regla.
func (CandleMomentum) Name() string {
	return CandleMomentumName
}

// Evaluate devuelve dirección y setup, o domain.ErrNoSetup si la vela no califica.
func (CandleMomentum) Evaluate(c domain.Candle) (domain.Direction, domain.TradeSetup, error) {
	return domain.CandleSetup(c)
}
