package pricecache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultPrefix = "tradepulse:"

// Redis implementa ports.PriceCache sobre dos hashes: precios y timestamps.
// Permite que el stream y el resolver corran en procesos distintos.
type Redis struct {
	client *redis.Client
	prefix string
	maxAge time.Duration
}

// NewRedis crea la cache y comprueba la conexión con PING.
func NewRedis(ctx context.Context, addr, password string, db int, maxAge time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pricecache.NewRedis: ping %s: %w", addr, err)
	}
	return &Redis{client: client, prefix: defaultPrefix, maxAge: maxAge}, nil
}

func (r *Redis) pricesKey() string { return r.prefix + "prices" }
func (r *Redis) updatedKey() string { return r.prefix + "prices:updated" }

// SetPrice implementa ports.PriceCache.
func (r *Redis) SetPrice(ctx context.Context, symbol string, price float64) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.pricesKey(), symbol, strconv.FormatFloat(price, 'f', -1, 64))
	pipe.HSet(ctx, r.updatedKey(), symbol, time.Now().UnixMilli())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pricecache.SetPrice: %w", err)
	}
	return nil
}

// FetchPrices implementa ports.PriceSource.
func (r *Redis) FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	pipe := r.client.Pipeline()
	pricesCmd := pipe.HMGet(ctx, r.pricesKey(), symbols...)
	updatedCmd := pipe.HMGet(ctx, r.updatedKey(), symbols...)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pricecache.FetchPrices: %w", err)
	}

	return decodeCached(symbols, pricesCmd.Val(), updatedCmd.Val(), time.Now(), r.maxAge), nil
}

// decodeCached arma el mapa de precios a partir de las respuestas de HMGET.
// prices y updated están alineados con symbols; los huecos llegan como nil.
// Con maxAge > 0 se descartan los precios sin timestamp o más viejos que maxAge.
func decodeCached(symbols []string, prices, updated []interface{}, now time.Time, maxAge time.Duration) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	for i, sym := range symbols {
		if i >= len(prices) {
			break
		}
		raw, ok := prices[i].(string)
		if !ok {
			continue
		}
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			slog.Warn("pricecache: bad cached price", "symbol", sym, "value", raw)
			continue
		}
		if maxAge > 0 {
			if i >= len(updated) {
				continue
			}
			ts, ok := updated[i].(string)
			if !ok {
				continue
			}
			ms, err := strconv.ParseInt(ts, 10, 64)
			if err != nil || now.Sub(time.UnixMilli(ms)) > maxAge {
				continue
			}
		}
		out[sym] = p
	}
	return out
}

// Close cierra la conexión.
func (r *Redis) Close() error {
	return r.client.Close()
}
