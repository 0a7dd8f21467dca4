package ports

import (
	"context"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

// SignalNotifier avisa al usuario de una posición abierta.
type SignalNotifier interface {
	NotifySetup(ctx context.Context, alert domain.SetupAlert) error
}
