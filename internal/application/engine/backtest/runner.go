package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/ports"
)

// Job es un par (asset, timeframe) a simular.
type Job struct {
	Asset     string
	Timeframe string
}

// Result es el resultado de un Job. Err != nil si el fetch, la simulación o el guardado fallaron.
type Result struct {
	Job Job
	Run domain.BacktestRun
	Err error
}

// Runner obtiene velas, simula y guarda el informe.
type Runner struct {
	candles   ports.CandleProvider
	store     ports.BacktestStore
	sim       *Simulator
	accountID string
	workers   int
	now       func() time.Time
}

// NewRunner crea el runner. store puede ser nil (no se persiste nada).
// Si workers <= 0 usa runtime.NumCPU().
func NewRunner(candles ports.CandleProvider, store ports.BacktestStore, sim *Simulator, accountID string, workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		candles:   candles,
		store:     store,
		sim:       sim,
		accountID: domain.DefaultAccount(accountID).ID,
		workers:   workers,
		now:       time.Now,
	}
}

// Run ejecuta un único backtest.
func (r *Runner) Run(ctx context.Context, job Job) (domain.BacktestRun, error) {
	candles, err := r.candles.FetchCandles(ctx, job.Asset, job.Timeframe)
	if err != nil {
		return domain.BacktestRun{}, fmt.Errorf("backtest.Run: %s %s: fetch candles: %w", job.Asset, job.Timeframe, err)
	}
	if len(candles) == 0 {
		return domain.BacktestRun{}, fmt.Errorf("backtest.Run: %s %s: no historical data", job.Asset, job.Timeframe)
	}

	run := r.sim.Simulate(job.Asset, job.Timeframe, candles)
	run.ID = uuid.NewString()
	run.AccountID = r.accountID
	run.CreatedAt = r.now().UTC()

	if r.store != nil {
		if err := r.store.SaveBacktestRun(ctx, run); err != nil {
			return run, fmt.Errorf("backtest.Run: %w", err)
		}
	}

	slog.Info("backtest complete",
		"asset", job.Asset,
		"timeframe", job.Timeframe,
		"candles", run.Candles,
		"trades", run.TotalTrades(),
		"pnl", run.TotalPnL,
		"win_rate", run.WinRatePercent,
		"profit_factor", run.ProfitFactor,
	)
	return run, nil
}

// RunMany ejecuta los jobs en paralelo con un worker pool.
// Los resultados conservan el orden de jobs; un fallo no detiene al resto.
func (r *Runner) RunMany(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	workers := r.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	workCh := make(chan int, len(jobs))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				job := jobs[idx]
				if err := ctx.Err(); err != nil {
					results[idx] = Result{Job: job, Err: err}
					continue
				}
				run, err := r.Run(ctx, job)
				if err != nil {
					slog.Warn("backtest failed", "asset", job.Asset, "timeframe", job.Timeframe, "err", err)
				}
				results[idx] = Result{Job: job, Run: run, Err: err}
			}
		}()
	}

	for i := range jobs {
		workCh <- i
	}
	close(workCh)
	wg.Wait()

	slog.Debug("backtest batch complete", "jobs", len(jobs), "workers", workers)
	return results
}
