package strategy

import (
	"context"

	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/ports"
)

// SetupCalculator define el contrato para convertir una señal confirmada en
// niveles de entrada, stop-loss y take-profit.
type SetupCalculator interface {
	// Name devuelve el identificador único del calculador.
	Name() string

	// Calculate devuelve el setup para la señal del request. Solo falla si la
	// señal no es direccional; los fallos externos se absorben con el fallback.
	Calculate(ctx context.Context, req ports.SetupRequest) (domain.TradeSetup, error)
}

// Registry mantiene los calculadores disponibles indexados por nombre.
type Registry map[string]SetupCalculator

// NewRegistry crea un registry vacío.
func NewRegistry() Registry {
	return make(Registry)
}

// Register añade un calculador al registry.
func (r Registry) Register(s SetupCalculator) {
	r[s.Name()] = s
}

// Get devuelve el calculador por nombre.
func (r Registry) Get(name string) (SetupCalculator, bool) {
	s, ok := r[name]
	return s, ok
}
