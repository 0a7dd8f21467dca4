package ports

import (
	"context"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

// OrderExecutor ejecuta la orden de una posición recién calculada.
type OrderExecutor interface {
	Execute(ctx context.Context, req domain.OrderRequest) (domain.Fill, error)
}
