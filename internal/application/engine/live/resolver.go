package live

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/ports"
)

const defaultResolveInterval = 3 * time.Second

// Resolver cierra posiciones ACTIVE cuando el precio toca SL o TP.
//
// Es seguro ante pasadas solapadas o repetidas: el cierre en el store es
// condicional sobre status = ACTIVE, así que una posición solo suma PnL una vez.
type Resolver struct {
	store  ports.TradeStore
	prices ports.PriceSource
	now    func() time.Time

	// inFlight evita lanzar una pasada mientras la anterior sigue corriendo.
	inFlight sync.Mutex
}

// NewResolver crea el resolver.
func NewResolver(store ports.TradeStore, prices ports.PriceSource) *Resolver {
	return &Resolver{store: store, prices: prices, now: time.Now}
}

// Resolve evalúa las posiciones dadas contra los precios dados.
// Un símbolo sin precio, o con precio NaN o no positivo, se salta sin error.
func (r *Resolver) Resolve(ctx context.Context, positions []domain.Position, prices map[string]float64) (domain.ResolutionReport, error) {
	report := domain.ResolutionReport{Checked: len(positions)}

	for _, p := range positions {
		if p.Status != domain.StatusActive {
			continue
		}
		price, ok := prices[p.Symbol]
		if !ok || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			continue
		}
		status, hit := domain.ExitAtPrice(p, price)
		if !hit {
			continue
		}

		pnl := domain.ClosePnL(p, status)
		closed, err := r.store.ClosePosition(ctx, p.ID, status, pnl, r.now().UTC())
		if err != nil {
			return report, fmt.Errorf("live.Resolve: %s: %w", p.ID, err)
		}
		if !closed {
			slog.Debug("position already closed by another pass", "id", p.ID)
			continue
		}
		report.Resolved++
		slog.Info("position closed",
			"id", p.ID,
			"symbol", p.Symbol,
			"status", status,
			"price", price,
			"pnl", pnl,
		)
	}
	return report, nil
}

// ResolveOnce carga las posiciones ACTIVE, pide sus precios y las resuelve.
func (r *Resolver) ResolveOnce(ctx context.Context) (domain.ResolutionReport, error) {
	positions, err := r.store.ActivePositions(ctx)
	if err != nil {
		return domain.ResolutionReport{}, fmt.Errorf("live.ResolveOnce: %w", err)
	}
	if len(positions) == 0 {
		return domain.ResolutionReport{}, nil
	}

	prices, err := r.prices.FetchPrices(ctx, uniqueSymbols(positions))
	if err != nil {
		// Sin precios no hay nada que resolver: se reintenta en la siguiente pasada.
		slog.Warn("resolver: price fetch failed", "err", err)
		return domain.ResolutionReport{Checked: len(positions)}, nil
	}
	return r.Resolve(ctx, positions, prices)
}

// Run ejecuta ResolveOnce cada interval hasta que el contexto se cancele.
// Si una pasada sigue en curso cuando llega el siguiente tick, ese tick se salta.
func (r *Resolver) Run(ctx context.Context, interval time.Duration, onReport func(domain.ResolutionReport)) error {
	if interval <= 0 {
		interval = defaultResolveInterval
	}
	slog.Info("resolver starting", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			slog.Info("resolver stopped")
			return nil
		case <-ticker.C:
			if !r.inFlight.TryLock() {
				slog.Debug("resolver pass still running, skipping tick")
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer r.inFlight.Unlock()
				report, err := r.ResolveOnce(ctx)
				if err != nil {
					slog.Error("resolver pass failed", "err", err)
					return
				}
				if onReport != nil && report.Resolved > 0 {
					onReport(report)
				}
			}()
		}
	}
}

func uniqueSymbols(positions []domain.Position) []string {
	seen := make(map[string]struct{}, len(positions))
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		if _, ok := seen[p.Symbol]; ok {
			continue
		}
		seen[p.Symbol] = struct{}{}
		out = append(out, p.Symbol)
	}
	sort.Strings(out)
	return out
}
