package ports

import (
	"context"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

// SetupRequest es el contexto que recibe un generador de setups.
type SetupRequest struct {
	Symbol       string
	Signal       domain.Signal
	CurrentPrice float64
	Swings       []domain.SwingPoint
}

// SetupGenerator produce niveles a partir de un servicio externo (p.ej. un LLM).
// El resultado no está validado: el llamador debe validarlo y caer al fallback.
type SetupGenerator interface {
	GenerateSetup(ctx context.Context, req SetupRequest) (domain.TradeSetup, error)
}
