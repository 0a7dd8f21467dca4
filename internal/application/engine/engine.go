package engine

import (
	"github.com/alejandrodnm/tradepulse/internal/scanner"
)

// SignalScanner es la interfaz mínima que los engines necesitan del scanner.
// Desacopla el engine live de *scanner.Scanner concreto.
type SignalScanner interface {
	Observe(symbol string, price float64) (scanner.Observation, error)
}
