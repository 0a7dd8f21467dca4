package domain

import (
	"errors"
	"fmt"
	"math"
)

const (
	// RewardMultiple es la relación riesgo/beneficio fija 1:4.
	RewardMultiple = 4.0

	fallbackStopPct   = 0.01 // SL a 1% del precio
	fallbackTargetPct = 0.02 // TP a 2% del precio

	// MinBodyRatio: cuerpo/rango mínimo para considerar una vela "fuerte".
	MinBodyRatio = 0.65
	// StopBufferRatio: colchón del SL más allá del extremo de la vela, en fracción del rango.
	StopBufferRatio = 0.1
)

// ErrNoSetup indica que la vela no produce una entrada válida.
var ErrNoSetup = errors.New("no valid setup")

// Direction es el lado de una posición.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// DirectionFor convierte una señal direccional en el lado de la posición.
func DirectionFor(s Signal) (Direction, bool) {
	switch s {
	case SignalBuy:
		return Long, true
	case SignalSell:
		return Short, true
	}
	return "", false
}

// SetupSource registra de dónde salieron los niveles de una posición.
type SetupSource string

const (
	SourceAssisted SetupSource = "assisted"
	SourceFallback SetupSource = "fallback"
	SourceCandle   SetupSource = "candle"
)

// TradeSetup son los niveles de una operación, en la moneda de cotización.
type TradeSetup struct {
	Entry      float64     `json:"entry"`
	StopLoss   float64     `json:"stopLoss"`
	TakeProfit float64     `json:"takeProfit"`
	Source     SetupSource `json:"source,omitempty"`
}

// RiskDistance devuelve |entry − stopLoss|.
func (s TradeSetup) RiskDistance() float64 {
	return math.Abs(s.Entry - s.StopLoss)
}

// RewardToRisk devuelve la relación beneficio/riesgo real de los niveles.
func (s TradeSetup) RewardToRisk() float64 {
	return RewardToRisk(s.Entry, s.StopLoss, s.TakeProfit)
}

// Validate comprueba que los tres niveles sean números finitos y que estén
// ordenados según la dirección: LONG exige SL < entry < TP; SHORT lo inverso.
func (s TradeSetup) Validate(dir Direction) error {
	fields := []struct {
		name string
		v    float64
	}{{"entry", s.Entry}, {"stopLoss", s.StopLoss}, {"takeProfit", s.TakeProfit}}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v <= 0 {
			return fmt.Errorf("setup: %s is not a positive finite number (%v)", f.name, f.v)
		}
	}
	switch dir {
	case Long:
		if !(s.StopLoss < s.Entry && s.Entry < s.TakeProfit) {
			return fmt.Errorf("setup: long levels out of order (sl=%v entry=%v tp=%v)", s.StopLoss, s.Entry, s.TakeProfit)
		}
	case Short:
		if !(s.TakeProfit < s.Entry && s.Entry < s.StopLoss) {
			return fmt.Errorf("setup: short levels out of order (tp=%v entry=%v sl=%v)", s.TakeProfit, s.Entry, s.StopLoss)
		}
	default:
		return fmt.Errorf("setup: unknown direction %q", dir)
	}
	return nil
}

// RewardToRisk calcula |tp − entry| / |entry − sl|.
// Si la distancia de riesgo es 0 devuelve 1: es la única política de división
// por cero, compartida por la resolución en vivo y el backtest.
func RewardToRisk(entry, stopLoss, takeProfit float64) float64 {
	risk := math.Abs(entry - stopLoss)
	if risk == 0 {
		return 1
	}
	return math.Abs(takeProfit-entry) / risk
}

// FallbackSetup es el heurístico determinista usado cuando el generador externo
// falla. Nunca falla: BUY → SL −1%, TP +2%; SELL → SL +1%, TP −2%.
// Cualquier otra señal se trata como BUY.
func FallbackSetup(signal Signal, price float64) TradeSetup {
	if signal == SignalSell {
		return TradeSetup{
			Entry:      price,
			StopLoss:   price * (1 + fallbackStopPct),
			TakeProfit: price * (1 - fallbackTargetPct),
			Source:     SourceFallback,
		}
	}
	return TradeSetup{
		Entry:      price,
		StopLoss:   price * (1 - fallbackStopPct),
		TakeProfit: price * (1 + fallbackTargetPct),
		Source:     SourceFallback,
	}
}

// CandleSetup es la variante determinista del backtest sobre una única vela OHLC.
//
// Requiere cuerpo/rango > MinBodyRatio. Vela alcista: SL = low − 0.1×rango,
// riesgo = close − SL, TP = close + 4×riesgo. Vela bajista: simétrico con
// SL = high + 0.1×rango. Devuelve ErrNoSetup si la vela no califica.
func CandleSetup(c Candle) (Direction, TradeSetup, error) {
	rng := c.Range()
	if rng <= 0 {
		return "", TradeSetup{}, ErrNoSetup
	}
	if c.Body() <= rng*MinBodyRatio {
		return "", TradeSetup{}, ErrNoSetup
	}

	if c.Close > c.Open {
		sl := c.Low - rng*StopBufferRatio
		risk := c.Close - sl
		if risk <= 0 {
			return "", TradeSetup{}, ErrNoSetup
		}
		return Long, TradeSetup{
			Entry:      c.Close,
			StopLoss:   sl,
			TakeProfit: c.Close + risk*RewardMultiple,
			Source:     SourceCandle,
		}, nil
	}

	sl := c.High + rng*StopBufferRatio
	risk := sl - c.Close
	if risk <= 0 {
		return "", TradeSetup{}, ErrNoSetup
	}
	return Short, TradeSetup{
		Entry:      c.Close,
		StopLoss:   sl,
		TakeProfit: c.Close - risk*RewardMultiple,
		Source:     SourceCandle,
	}, nil
}
