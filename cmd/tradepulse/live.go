package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/tradepulse/config"
	"github.com/alejandrodnm/tradepulse/internal/adapters/gemini"
	"github.com/alejandrodnm/tradepulse/internal/adapters/notify"
	"github.com/alejandrodnm/tradepulse/internal/adapters/paper"
	"github.com/alejandrodnm/tradepulse/internal/adapters/pricecache"
	"github.com/alejandrodnm/tradepulse/internal/adapters/storage"
	"github.com/alejandrodnm/tradepulse/internal/application/engine/live"
	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/ports"
	"github.com/alejandrodnm/tradepulse/internal/scanner"
	"github.com/alejandrodnm/tradepulse/internal/strategy"
)

// runLive arranca el stream de precios, el engine de señales y el resolver
// hasta que el contexto se cancele.
func runLive(ctx context.Context, cfg *config.Config, store *storage.Store) error {
	client := newTwelveData(cfg)

	cache, err := newPriceCache(ctx, cfg)
	if err != nil {
		return err
	}

	setups, err := newSetupCalculator(cfg)
	if err != nil {
		return err
	}

	var executor ports.OrderExecutor
	if cfg.Paper.Enabled {
		executor = paper.NewExecutor(cfg.Paper.SlippageBps)
	}

	sc := scanner.New(domain.WindowParams{SwingBars: cfg.Strategy.SwingBars, MaxTicks: cfg.Strategy.MaxTicks})
	eng := live.New(live.Config{
		AccountID:     cfg.Account.ID,
		NotifyTimeout: cfg.NotifyTimeout(),
	}, sc, setups, store, executor, newNotifier(cfg))
	dispatcher := live.NewDispatcher(eng, cfg.Strategy.SignalWorkers, 0)

	stream := client.NewStream(cfg.Symbols, func(ctx context.Context, symbol string, price float64) {
		if err := cache.SetPrice(ctx, symbol, price); err != nil {
			slog.Warn("price cache write failed", "symbol", symbol, "err", err)
		}
		dispatcher.HandleTick(ctx, symbol, price)
	})

	var prices ports.PriceSource = cache
	if cfg.Resolver.PriceSource == "rest" {
		prices = client
	}
	resolver := live.NewResolver(store, prices)
	console := notify.NewConsole()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		errCh <- dispatcher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		errCh <- stream.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		errCh <- resolver.Run(ctx, cfg.ResolveInterval(), console.PrintResolution)
	}()

	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	slog.Info("tradepulse stopped cleanly")
	return nil
}

// runResolveOnce ejecuta una sola pasada del resolver con precios REST.
func runResolveOnce(ctx context.Context, cfg *config.Config, store *storage.Store) error {
	resolver := live.NewResolver(store, newTwelveData(cfg))
	report, err := resolver.ResolveOnce(ctx)
	if err != nil {
		return err
	}
	notify.NewConsole().PrintResolution(report)
	return nil
}

func newPriceCache(ctx context.Context, cfg *config.Config) (ports.PriceCache, error) {
	if cfg.Cache.Addr == "" {
		return pricecache.NewMemory(cfg.CacheMaxAge()), nil
	}
	cache, err := pricecache.NewRedis(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.CacheMaxAge())
	if err != nil {
		return nil, fmt.Errorf("price cache: %w", err)
	}
	slog.Info("using redis price cache", "addr", cfg.Cache.Addr)
	return cache, nil
}

func newSetupCalculator(cfg *config.Config) (strategy.SetupCalculator, error) {
	var generator ports.SetupGenerator
	if cfg.API.GeminiKey != "" {
		generator = gemini.NewClient(gemini.Config{
			APIKey: cfg.API.GeminiKey,
			Base:   cfg.API.GeminiBase,
			Model:  cfg.API.GeminiModel,
		})
	} else if cfg.Strategy.Setup == strategy.AssistedName {
		slog.Warn("GEMINI_API_KEY not set: assisted setups will use the fallback levels")
	}

	registry := strategy.NewRegistry()
	registry.Register(strategy.NewAssisted(generator, cfg.SetupTimeout()))
	registry.Register(strategy.NewFallback())

	calc, ok := registry.Get(cfg.Strategy.Setup)
	if !ok {
		return nil, fmt.Errorf("unknown setup calculator %q", cfg.Strategy.Setup)
	}
	return calc, nil
}

func newNotifier(cfg *config.Config) ports.SignalNotifier {
	notifiers := notify.Fanout{notify.NewConsole()}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.Endpoint)
		if err != nil {
			slog.Warn("telegram disabled", "err", err)
		} else {
			notifiers = append(notifiers, tg)
		}
	}
	return notifiers
}
