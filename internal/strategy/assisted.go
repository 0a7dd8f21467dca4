package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/ports"
)

// AssistedName identifica el calculador asistido por el generador externo.
const AssistedName = "assisted"

const defaultGenerateTimeout = 20 * time.Second

// Assisted pide los niveles a un SetupGenerator y cae al heurístico determinista
// si el generador falla, tarda demasiado o devuelve niveles incoherentes.
type Assisted struct {
	generator ports.SetupGenerator
	timeout   time.Duration
}

// NewAssisted crea el calculador. Un generator nil equivale a usar siempre el fallback.
func NewAssisted(generator ports.SetupGenerator, timeout time.Duration) *Assisted {
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	return &Assisted{generator: generator, timeout: timeout}
}

// Name implementa SetupCalculator.
func (a *Assisted) Name() string {
	return AssistedName
}

// Calculate implementa SetupCalculator.
func (a *Assisted) Calculate(ctx context.Context, req ports.SetupRequest) (domain.TradeSetup, error) {
	dir, ok := domain.DirectionFor(req.Signal)
	if !ok {
		return domain.TradeSetup{}, fmt.Errorf("assisted: signal %s is not directional", req.Signal)
	}
	if a.generator == nil {
		return domain.FallbackSetup(req.Signal, req.CurrentPrice), nil
	}

	genCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	setup, err := a.generator.GenerateSetup(genCtx, req)
	if err != nil {
		slog.Warn("setup generator failed, using fallback", "symbol", req.Symbol, "signal", req.Signal, "err", err)
		return domain.FallbackSetup(req.Signal, req.CurrentPrice), nil
	}
	if err := setup.Validate(dir); err != nil {
		slog.Warn("setup generator returned invalid levels, using fallback",
			"symbol", req.Symbol, "signal", req.Signal, "err", err)
		return domain.FallbackSetup(req.Signal, req.CurrentPrice), nil
	}
	setup.Source = domain.SourceAssisted
	return setup, nil
}
