package paper

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

// Executor implementa ports.OrderExecutor sin enviar nada a un broker: llena la
// orden al precio de entrada desplazado slippageBps en contra de la posición.
type Executor struct {
	slippageBps float64
	now         func() time.Time
}

// NewExecutor crea el ejecutor simulado. slippageBps = 0 llena exactamente en la entrada.
func NewExecutor(slippageBps float64) *Executor {
	return &Executor{slippageBps: slippageBps, now: time.Now}
}

// Execute implementa ports.OrderExecutor.
func (e *Executor) Execute(_ context.Context, req domain.OrderRequest) (domain.Fill, error) {
	if req.Entry <= 0 || req.Size <= 0 {
		return domain.Fill{}, fmt.Errorf("paper.Execute: invalid order entry=%v size=%v", req.Entry, req.Size)
	}
	slip := req.Entry * e.slippageBps / 10_000
	price := req.Entry + slip
	if req.Direction == domain.Short {
		price = req.Entry - slip
	}
	return domain.Fill{Price: price, Size: req.Size, FilledAt: e.now().UTC()}, nil
}
