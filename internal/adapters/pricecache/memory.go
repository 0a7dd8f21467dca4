package pricecache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	price float64
	at    time.Time
}

// Memory implementa ports.PriceCache en memoria del proceso.
// Con maxAge > 0 los precios más viejos que maxAge no se devuelven.
type Memory struct {
	maxAge time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	prices map[string]entry
}

// NewMemory crea una cache vacía.
func NewMemory(maxAge time.Duration) *Memory {
	return &Memory{maxAge: maxAge, now: time.Now, prices: make(map[string]entry)}
}

// SetPrice implementa ports.PriceCache.
func (m *Memory) SetPrice(_ context.Context, symbol string, price float64) error {
	m.mu.Lock()
	m.prices[symbol] = entry{price: price, at: m.now()}
	m.mu.Unlock()
	return nil
}

// FetchPrices implementa ports.PriceSource.
func (m *Memory) FetchPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		e, ok := m.prices[s]
		if !ok {
			continue
		}
		if m.maxAge > 0 && now.Sub(e.at) > m.maxAge {
			continue
		}
		out[s] = e.price
	}
	return out, nil
}
