package strategy

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/ports"
)

// FallbackName identifica el calculador determinista.
const FallbackName = "fallback"

// Fallback usa solo el heurístico porcentual (SL 1%, TP 2%).
type Fallback struct{}

// NewFallback crea el calculador determinista.
func NewFallback() *Fallback {
	return &Fallback{}
}

// Name implementa SetupCalculator.
func (f *Fallback) Name() string {
	return FallbackName
}

// Calculate implementa SetupCalculator.
func (f *Fallback) Calculate(_ context.Context, req ports.SetupRequest) (domain.TradeSetup, error) {
	if !req.Signal.IsDirectional() {
		return domain.TradeSetup{}, fmt.Errorf("fallback: signal %s is not directional", req.Signal)
	}
	return domain.FallbackSetup(req.Signal, req.CurrentPrice), nil
}
