package domain

import "time"

// SetupAlert es lo que se envía a los notificadores al abrir una posición.
type SetupAlert struct {
	Symbol    string
	Signal    Signal
	Setup     TradeSetup
	Label     string
	Risk      float64
	CreatedAt time.Time
}

// OrderRequest es la orden que se envía al ejecutor tras calcular setup y riesgo.
type OrderRequest struct {
	Symbol     string
	Direction  Direction
	Size       float64
	StopLoss   float64
	TakeProfit float64
	Entry      float64
}

// Fill es la respuesta del ejecutor.
type Fill struct {
	Price    float64
	Size     float64
	FilledAt time.Time
}
