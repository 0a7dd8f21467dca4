package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/tradepulse/internal/scanner"
)

const (
	defaultSignalWorkers = 2
	defaultSignalBuffer  = 64
)

// Dispatcher separa la lectura de ticks del procesamiento de señales.
//
// HandleTick solo pasa el tick por el scanner (rápido, sin I/O) y encola las
// señales confirmadas; los workers de Run calculan el setup y abren la posición.
// Así una llamada lenta al generador de setups no frena el stream ni la cache.
type Dispatcher struct {
	eng     *Engine
	signals chan scanner.Observation
	workers int
}

// NewDispatcher crea el dispatcher. workers o buffer <= 0 usan los defaults.
func NewDispatcher(eng *Engine, workers, buffer int) *Dispatcher {
	if workers <= 0 {
		workers = defaultSignalWorkers
	}
	if buffer <= 0 {
		buffer = defaultSignalBuffer
	}
	return &Dispatcher{
		eng:     eng,
		signals: make(chan scanner.Observation, buffer),
		workers: workers,
	}
}

// HandleTick implementa twelvedata.PriceHandler. Nunca bloquea: si la cola
// está llena la señal se descarta con un Warn.
func (d *Dispatcher) HandleTick(_ context.Context, symbol string, price float64) {
	obs, err := d.eng.Observe(symbol, price)
	if err != nil {
		slog.Warn("tick rejected", "symbol", symbol, "err", err)
		return
	}
	if !obs.Triggered {
		return
	}
	select {
	case d.signals <- obs:
	default:
		slog.Warn("signal queue full, dropping signal", "symbol", symbol, "signal", obs.Evaluation.Signal)
	}
}

// Run procesa señales con el worker pool hasta que el contexto se cancele.
// Las señales que quedan en la cola al cancelar se descartan.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case obs := <-d.signals:
					_, err := d.eng.ProcessSignal(ctx, obs)
					logOutcome(obs.Symbol, err)
				}
			}
		}()
	}
	wg.Wait()
	d.eng.Wait()
	return nil
}
