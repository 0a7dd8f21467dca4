package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alejandrodnm/tradepulse/config"
	"github.com/alejandrodnm/tradepulse/internal/adapters/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	resolveOnce := flag.Bool("resolve-once", false, "run one resolver pass over ACTIVE positions and exit")
	backtestMode := flag.Bool("backtest", false, "run historical simulations and exit")
	assets := flag.String("assets", "", "comma-separated assets for -backtest (default: config symbols)")
	timeframes := flag.String("timeframes", "", "comma-separated timeframes for -backtest: 1h,4h,1d")
	report := flag.Bool("report", false, "print account, positions and recent backtests and exit")
	flush := flag.Bool("flush", false, "delete all ACTIVE positions of the account and exit")
	setBalance := flag.Float64("set-balance", -1, "set the account balance and exit")
	setRisk := flag.Float64("set-risk", -1, "set the account risk percentage (0,100] and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "driver", cfg.Storage.Driver)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := ensureAccount(ctx, store, cfg.Account); err != nil {
		slog.Error("failed to prepare account", "err", err, "account", cfg.Account.ID)
		os.Exit(1)
	}

	switch {
	case *setBalance >= 0 || *setRisk >= 0:
		err = runSetAccount(ctx, store, cfg.Account.ID, *setBalance, *setRisk)
	case *flush:
		err = runFlush(ctx, store, cfg.Account.ID)
	case *report:
		err = runReport(ctx, store, cfg.Account.ID)
	case *backtestMode:
		err = runBacktest(ctx, cfg, store, splitList(*assets, cfg.Symbols), splitList(*timeframes, []string{cfg.Backtest.Timeframe}))
	case *resolveOnce:
		err = runResolveOnce(ctx, cfg, store)
	default:
		slog.Info("tradepulse starting",
			"config", *configPath,
			"symbols", cfg.Symbols,
			"setup", cfg.Strategy.Setup,
			"resolver_interval", cfg.ResolveInterval(),
			"price_source", cfg.Resolver.PriceSource,
		)
		err = runLive(ctx, cfg, store)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("tradepulse exited with error", "err", err)
		store.Close()
		os.Exit(1)
	}
}

func splitList(v string, fallback []string) []string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
