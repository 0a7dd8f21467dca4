package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

// TradeStore persiste cuentas y posiciones.
type TradeStore interface {
	// EnsureAccount devuelve la cuenta, creándola con valores por defecto si no existe.
	EnsureAccount(ctx context.Context, id string) (domain.Account, error)
	GetAccount(ctx context.Context, id string) (domain.Account, error)
	// UpdateAccountSettings valida antes de mutar; nunca deja valores inválidos.
	UpdateAccountSettings(ctx context.Context, id string, balance, riskPct float64) (domain.Account, error)

	// OpenPosition inserta la posición dentro de una transacción que vuelve a
	// comprobar el límite de una posición ACTIVE por (cuenta, símbolo).
	// Devuelve domain.ErrPositionLimit si ya existe.
	OpenPosition(ctx context.Context, p domain.Position) error
	HasActivePosition(ctx context.Context, accountID, symbol string) (bool, error)
	ActivePositions(ctx context.Context) ([]domain.Position, error)
	// ClosePosition aplica ACTIVE → status solo si la posición sigue ACTIVE y
	// recalcula los agregados de la cuenta en la misma transacción.
	// Devuelve false si otra pasada ya la había cerrado.
	ClosePosition(ctx context.Context, id string, status domain.PositionStatus, pnl float64, at time.Time) (bool, error)
	ListPositions(ctx context.Context, accountID string, status domain.PositionStatus) ([]domain.Position, error)
	// FlushActive borra las posiciones ACTIVE de la cuenta y devuelve cuántas borró.
	FlushActive(ctx context.Context, accountID string) (int, error)

	Close() error
}

// BacktestStore persiste los informes de backtest con sus trades.
type BacktestStore interface {
	SaveBacktestRun(ctx context.Context, run domain.BacktestRun) error
	ListBacktestRuns(ctx context.Context, accountID string, limit int) ([]domain.BacktestRun, error)
}
