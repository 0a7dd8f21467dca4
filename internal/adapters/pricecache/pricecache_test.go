package pricecache

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetAndFetch(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	require.NoError(t, m.SetPrice(ctx, "BTC/USD", 64000))
	require.NoError(t, m.SetPrice(ctx, "BTC/USD", 64100))

	prices, err := m.FetchPrices(ctx, []string{"BTC/USD", "ETH/USD"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BTC/USD": 64100}, prices)
}

func TestMemory_DropsStalePrices(t *testing.T) {
	m := NewMemory(time.Minute)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	ctx := context.Background()

	require.NoError(t, m.SetPrice(ctx, "BTC/USD", 64000))
	m.now = func() time.Time { return base.Add(2 * time.Minute) }

	prices, err := m.FetchPrices(ctx, []string{"BTC/USD"})
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestDecodeCached_DropsStaleAndMalformed(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ms := func(d time.Duration) interface{} {
		return strconv.FormatInt(now.Add(-d).UnixMilli(), 10)
	}
	symbols := []string{"BTC/USD", "ETH/USD", "XAU/USD", "EUR/USD", "SOL/USD", "GBP/USD"}
	prices := []interface{}{"64000.5", "3100", "2400", "abc", nil, "1.27"}
	updated := []interface{}{ms(10 * time.Second), ms(2 * time.Minute), nil, ms(time.Second), ms(time.Second), "not-a-ts"}

	got := decodeCached(symbols, prices, updated, now, time.Minute)

	// ETH viejo, XAU sin timestamp, EUR mal formado, SOL sin precio, GBP con timestamp inválido
	assert.Equal(t, map[string]float64{"BTC/USD": 64000.5}, got)
}

func TestDecodeCached_NoMaxAgeIgnoresTimestamps(t *testing.T) {
	got := decodeCached(
		[]string{"BTC/USD", "ETH/USD"},
		[]interface{}{"64000", "3100"},
		[]interface{}{nil},
		time.Now(), 0,
	)
	assert.Equal(t, map[string]float64{"BTC/USD": 64000, "ETH/USD": 3100}, got)
}

func TestDecodeCached_ShortReply(t *testing.T) {
	got := decodeCached([]string{"BTC/USD", "ETH/USD"}, []interface{}{"64000"}, nil, time.Now(), time.Minute)
	assert.Empty(t, got)
}

// Requiere un Redis real: REDIS_ADDR=localhost:6379 go test ./...
func TestRedis_SetAndFetch(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, addr, "", 0, time.Minute)
	require.NoError(t, err)
	defer r.Close()
	r.prefix = "tradepulse:test:" + time.Now().Format("150405.000") + ":"
	defer r.client.Del(ctx, r.pricesKey(), r.updatedKey())

	require.NoError(t, r.SetPrice(ctx, "BTC/USD", 64000.5))
	prices, err := r.FetchPrices(ctx, []string{"BTC/USD", "NOPE"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BTC/USD": 64000.5}, prices)
}
