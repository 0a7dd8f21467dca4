package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/tradepulse/config"
	"github.com/alejandrodnm/tradepulse/internal/adapters/notify"
	"github.com/alejandrodnm/tradepulse/internal/adapters/storage"
	"github.com/alejandrodnm/tradepulse/internal/adapters/twelvedata"
	"github.com/alejandrodnm/tradepulse/internal/application/engine/backtest"
	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/strategy"
)

func runBacktest(ctx context.Context, cfg *config.Config, store *storage.Store, assets, timeframes []string) error {
	slog.Info("=== BACKTEST MODE ===", "assets", assets, "timeframes", timeframes)

	client := newTwelveData(cfg)
	sim := backtest.NewSimulator(backtest.Config{
		InitialBalance: cfg.Backtest.InitialBalance,
		RiskFraction:   cfg.Backtest.RiskFraction,
	}, strategy.NewCandleMomentum())
	runner := backtest.NewRunner(client, store, sim, cfg.Account.ID, cfg.Backtest.Workers)

	var jobs []backtest.Job
	for _, a := range assets {
		for _, tf := range timeframes {
			jobs = append(jobs, backtest.Job{Asset: a, Timeframe: tf})
		}
	}

	results := runner.RunMany(ctx, jobs)
	runs := make([]domain.BacktestRun, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		runs = append(runs, r.Run)
	}

	notify.NewConsole().PrintBacktestReport(runs)
	if len(runs) == 0 && failed > 0 {
		return fmt.Errorf("backtest: all %d runs failed", failed)
	}
	slog.Info("backtest complete", "runs", len(runs), "failed", failed)
	return nil
}

func newTwelveData(cfg *config.Config) *twelvedata.Client {
	return twelvedata.NewClient(twelvedata.Config{
		APIKey:            cfg.API.TwelveDataKey,
		RESTBase:          cfg.API.TwelveDataREST,
		WSBase:            cfg.API.TwelveDataWS,
		RequestsPerMinute: cfg.API.RequestsPerMinute,
		OutputSize:        cfg.Backtest.OutputSize,
	})
}
