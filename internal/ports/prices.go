package ports

import (
	"context"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

// PriceSource devuelve el último precio conocido por símbolo.
// Los símbolos sin precio simplemente no aparecen en el mapa.
type PriceSource interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// PriceCache guarda los últimos precios recibidos por el stream para que el
// resolver los lea sin llamar a la API.
type PriceCache interface {
	PriceSource
	SetPrice(ctx context.Context, symbol string, price float64) error
}

// CandleProvider obtiene velas OHLC históricas en orden cronológico (la más antigua primero).
type CandleProvider interface {
	FetchCandles(ctx context.Context, asset, timeframe string) ([]domain.Candle, error)
}
