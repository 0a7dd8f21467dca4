package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/tradepulse/internal/application/engine"
	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/ports"
	"github.com/alejandrodnm/tradepulse/internal/scanner"
	"github.com/alejandrodnm/tradepulse/internal/strategy"
)

const defaultNotifyTimeout = 10 * time.Second

// Config contiene los ajustes del engine live.
type Config struct {
	AccountID     string
	NotifyTimeout time.Duration
}

// Engine es el pipeline de señales: tick → scanner → setup → riesgo → ejecución
// → persistencia → notificación.
type Engine struct {
	cfg      Config
	scanner  engine.SignalScanner
	setups   strategy.SetupCalculator
	store    ports.TradeStore
	executor ports.OrderExecutor
	notifier ports.SignalNotifier
	now      func() time.Time

	notifications sync.WaitGroup
}

// New crea el engine. executor y notifier pueden ser nil.
func New(
	cfg Config,
	sc engine.SignalScanner,
	setups strategy.SetupCalculator,
	store ports.TradeStore,
	executor ports.OrderExecutor,
	notifier ports.SignalNotifier,
) *Engine {
	if cfg.AccountID == "" {
		cfg.AccountID = domain.DefaultAccountID
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}
	return &Engine{
		cfg:      cfg,
		scanner:  sc,
		setups:   setups,
		store:    store,
		executor: executor,
		notifier: notifier,
		now:      time.Now,
	}
}

// OnTick procesa un precio. Devuelve la posición abierta si el tick confirmó una
// señal nueva y pasó las guardas de riesgo; nil si no hubo transición.
// domain.ErrPositionLimit indica que la señal se ignoró por tener ya una ACTIVE.
func (e *Engine) OnTick(ctx context.Context, symbol string, price float64) (*domain.Position, error) {
	obs, err := e.Observe(symbol, price)
	if err != nil || !obs.Triggered {
		return nil, err
	}
	return e.ProcessSignal(ctx, obs)
}

// Observe pasa el tick por el scanner. No hace I/O: es seguro llamarlo desde
// el goroutine de lectura del stream.
func (e *Engine) Observe(symbol string, price float64) (scanner.Observation, error) {
	obs, err := e.scanner.Observe(symbol, price)
	if err != nil {
		return scanner.Observation{}, fmt.Errorf("live.Observe: %s: %w", symbol, err)
	}
	if obs.Triggered {
		slog.Info("signal confirmed", "symbol", symbol, "signal", obs.Evaluation.Signal, "price", price, "label", obs.Evaluation.Label)
	}
	return obs, nil
}

// ProcessSignal calcula el setup de una señal confirmada, aplica el riesgo,
// abre la posición y notifica. Puede bloquear lo que tarde el generador de setups.
func (e *Engine) ProcessSignal(ctx context.Context, obs scanner.Observation) (*domain.Position, error) {
	symbol := obs.Symbol
	has, err := e.store.HasActivePosition(ctx, e.cfg.AccountID, symbol)
	if err != nil {
		return nil, fmt.Errorf("live.ProcessSignal: %w", err)
	}
	if has {
		return nil, fmt.Errorf("live.ProcessSignal: %s: %w", symbol, domain.ErrPositionLimit)
	}

	setup, err := e.setups.Calculate(ctx, ports.SetupRequest{
		Symbol:       symbol,
		Signal:       obs.Evaluation.Signal,
		CurrentPrice: obs.Price,
		Swings:       obs.Swings,
	})
	if err != nil {
		return nil, fmt.Errorf("live.ProcessSignal: setup: %w", err)
	}
	dir, _ := domain.DirectionFor(obs.Evaluation.Signal)

	pos, err := e.open(ctx, symbol, dir, setup)
	if err != nil {
		return nil, err
	}

	e.notify(domain.SetupAlert{
		Symbol:    symbol,
		Signal:    obs.Evaluation.Signal,
		Setup:     pos.Setup(),
		Label:     obs.Evaluation.Label,
		Risk:      pos.RiskAmount,
		CreatedAt: pos.OpenedAt,
	})
	return &pos, nil
}

// open aplica el RiskEngine, ejecuta la orden y persiste la posición.
func (e *Engine) open(ctx context.Context, symbol string, dir domain.Direction, setup domain.TradeSetup) (domain.Position, error) {
	acct, err := e.store.EnsureAccount(ctx, e.cfg.AccountID)
	if err != nil {
		return domain.Position{}, fmt.Errorf("live.open: %w", err)
	}
	risk := domain.RiskAmount(acct.Balance, acct.RiskPercentage)
	if err := domain.CheckOpen(acct, risk, false); err != nil {
		return domain.Position{}, fmt.Errorf("live.open: %s: %w", symbol, err)
	}

	pos := domain.Position{
		ID:         uuid.NewString(),
		AccountID:  acct.ID,
		Symbol:     symbol,
		Direction:  dir,
		Entry:      setup.Entry,
		StopLoss:   setup.StopLoss,
		TakeProfit: setup.TakeProfit,
		RiskAmount: risk,
		Size:       domain.PositionSize(risk, setup),
		Status:     domain.StatusActive,
		Source:     setup.Source,
		OpenedAt:   e.now().UTC(),
	}

	if e.executor != nil && pos.Size > 0 {
		fill, err := e.executor.Execute(ctx, domain.OrderRequest{
			Symbol:     symbol,
			Direction:  dir,
			Size:       pos.Size,
			Entry:      setup.Entry,
			StopLoss:   setup.StopLoss,
			TakeProfit: setup.TakeProfit,
		})
		if err != nil {
			return domain.Position{}, fmt.Errorf("live.open: execute %s: %w", symbol, err)
		}
		// Con fill, entrada y riesgo se miden desde el precio ejecutado:
		// riesgo = |fill − SL| × size y el R/R de cierre parte del mismo fill.
		filled := domain.TradeSetup{Entry: fill.Price, StopLoss: setup.StopLoss, TakeProfit: setup.TakeProfit, Source: setup.Source}
		if err := filled.Validate(dir); err != nil {
			return domain.Position{}, fmt.Errorf("live.open: fill %s at %v: %w", symbol, fill.Price, err)
		}
		pos.Entry = fill.Price
		pos.Size = fill.Size
		pos.RiskAmount = domain.RealizedRisk(fill.Price, setup.StopLoss, fill.Size)
		if !fill.FilledAt.IsZero() {
			pos.OpenedAt = fill.FilledAt.UTC()
		}
		if err := domain.CheckOpen(acct, pos.RiskAmount, false); err != nil {
			return domain.Position{}, fmt.Errorf("live.open: realized risk %s: %w", symbol, err)
		}
	}

	if err := e.store.OpenPosition(ctx, pos); err != nil {
		return domain.Position{}, fmt.Errorf("live.open: %w", err)
	}
	slog.Info("position opened",
		"id", pos.ID,
		"symbol", symbol,
		"direction", dir,
		"entry", pos.Entry,
		"sl", pos.StopLoss,
		"tp", pos.TakeProfit,
		"risk", pos.RiskAmount,
		"source", pos.Source,
	)
	return pos, nil
}

// notify envía la alerta en segundo plano; un fallo nunca afecta a la posición.
func (e *Engine) notify(alert domain.SetupAlert) {
	if e.notifier == nil {
		return
	}
	e.notifications.Add(1)
	go func() {
		defer e.notifications.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.NotifyTimeout)
		defer cancel()
		if err := e.notifier.NotifySetup(ctx, alert); err != nil {
			slog.Warn("notification failed", "symbol", alert.Symbol, "err", err)
		}
	}()
}

// Wait bloquea hasta que terminen las notificaciones en curso.
func (e *Engine) Wait() {
	e.notifications.Wait()
}

// logOutcome registra el resultado de procesar una señal.
func logOutcome(symbol string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPositionLimit):
		slog.Info("signal ignored: position already open", "symbol", symbol)
	default:
		slog.Warn("tick processing failed", "symbol", symbol, "err", err)
	}
}
