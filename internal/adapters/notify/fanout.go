package notify

import (
	"context"
	"errors"

	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/ports"
)

// Fanout reenvía cada alerta a todos los notificadores y agrega los errores.
// Un notificador que falla no impide que los demás reciban la alerta.
type Fanout []ports.SignalNotifier

// NotifySetup implementa ports.SignalNotifier.
func (f Fanout) NotifySetup(ctx context.Context, a domain.SetupAlert) error {
	var errs []error
	for _, n := range f {
		if err := n.NotifySetup(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
