package domain

import (
	"fmt"
	"time"
)

// PositionStatus es el ciclo de vida de una posición: ACTIVE → {WON, LOST}, una sola vez.
type PositionStatus string

const (
	StatusActive PositionStatus = "ACTIVE"
	StatusWon    PositionStatus = "WON"
	StatusLost   PositionStatus = "LOST"
)

// IsTerminal devuelve true para WON y LOST.
func (s PositionStatus) IsTerminal() bool {
	return s == StatusWon || s == StatusLost
}

// Position es una posición hipotética (en vivo o simulada).
// Entry, StopLoss, TakeProfit y RiskAmount se congelan al abrir y nunca se recalculan.
type Position struct {
	ID         string
	AccountID  string
	Symbol     string
	Direction  Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	RiskAmount float64
	Size       float64 // unidades del instrumento; 0 si no hubo fill
	Status     PositionStatus
	PnL        float64
	Source     SetupSource
	OpenedAt   time.Time
	ClosedAt   *time.Time
}

// Setup devuelve los niveles congelados de la posición.
func (p Position) Setup() TradeSetup {
	return TradeSetup{Entry: p.Entry, StopLoss: p.StopLoss, TakeProfit: p.TakeProfit, Source: p.Source}
}

// ExitInRange decide si un rango de precios [low, high] cierra la posición.
//
// El stop-loss se evalúa SIEMPRE antes que el take-profit: si el rango toca
// ambos niveles el resultado es LOST. Es la única política de desempate, usada
// tanto por el resolver en vivo (low == high == precio actual) como por el backtest.
func ExitInRange(p Position, low, high float64) (PositionStatus, bool) {
	switch p.Direction {
	case Long:
		if low <= p.StopLoss {
			return StatusLost, true
		}
		if high >= p.TakeProfit {
			return StatusWon, true
		}
	case Short:
		if high >= p.StopLoss {
			return StatusLost, true
		}
		if low <= p.TakeProfit {
			return StatusWon, true
		}
	}
	return StatusActive, false
}

// ExitAtPrice es ExitInRange para un único precio.
func ExitAtPrice(p Position, price float64) (PositionStatus, bool) {
	return ExitInRange(p, price, price)
}

// ClosePnL devuelve el PnL de cerrar la posición con el estado dado:
// riskAmount × R/R real si WON, −riskAmount si LOST.
func ClosePnL(p Position, status PositionStatus) float64 {
	switch status {
	case StatusWon:
		return p.RiskAmount * RewardToRisk(p.Entry, p.StopLoss, p.TakeProfit)
	case StatusLost:
		return -p.RiskAmount
	}
	return 0
}

// Close aplica la transición terminal. Falla si la posición ya no está ACTIVE.
func (p *Position) Close(status PositionStatus, at time.Time) error {
	if p.Status != StatusActive {
		return fmt.Errorf("position %s already %s", p.ID, p.Status)
	}
	if !status.IsTerminal() {
		return fmt.Errorf("position %s: %s is not a terminal status", p.ID, status)
	}
	p.Status = status
	p.PnL = ClosePnL(*p, status)
	t := at
	p.ClosedAt = &t
	return nil
}

// ResolutionReport es el resumen de una pasada del resolver.
type ResolutionReport struct {
	Checked  int `json:"checked"`
	Resolved int `json:"resolved"`
}
