package domain

import (
	"math"
	"time"
)

// Candle es una vela OHLC. Las series se ordenan de la más antigua a la más reciente.
type Candle struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Range devuelve high − low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Body devuelve |close − open|.
func (c Candle) Body() float64 {
	return math.Abs(c.Close - c.Open)
}
