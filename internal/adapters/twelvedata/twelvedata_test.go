package twelvedata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tradepulse/internal/adapters/twelvedata"
)

func newTestClient(srv *httptest.Server) *twelvedata.Client {
	return twelvedata.NewClient(twelvedata.Config{
		APIKey:            "test-key",
		RESTBase:          srv.URL,
		WSBase:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		RequestsPerMinute: 600,
	})
}

func TestFetchPrices_SingleSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/price", r.URL.Path)
		assert.Equal(t, "BTC/USD", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"price":"64250.12500"}`))
	}))
	defer srv.Close()

	prices, err := newTestClient(srv).FetchPrices(context.Background(), []string{"BTC/USD"})

	require.NoError(t, err)
	assert.InDelta(t, 64250.125, prices["BTC/USD"], 1e-9)
}

func TestFetchPrices_MultipleSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTC/USD,ETH/USD,BAD", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{
			"BTC/USD": {"price": "64250.1"},
			"ETH/USD": {"price": "3120.55"},
			"BAD": {"code": 400, "message": "symbol not found", "status": "error"}
		}`))
	}))
	defer srv.Close()

	prices, err := newTestClient(srv).FetchPrices(context.Background(), []string{"BTC/USD", "ETH/USD", "BAD"})

	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.InDelta(t, 3120.55, prices["ETH/USD"], 1e-9)
	_, ok := prices["BAD"]
	assert.False(t, ok)
}

func TestFetchPrices_APIErrorWithStatus200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":401,"message":"invalid api key","status":"error"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchPrices(context.Background(), []string{"BTC/USD"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestFetchPrices_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchPrices(context.Background(), []string{"BTC/USD"})
	assert.Error(t, err)
}

func TestFetchCandles_ReversesToChronological(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		assert.Equal(t, "1day", r.URL.Query().Get("interval"))
		assert.Equal(t, "250", r.URL.Query().Get("outputsize"))
		w.Write([]byte(`{
			"meta": {"symbol": "BTC/USD", "interval": "1day"},
			"values": [
				{"datetime": "2025-01-03", "open": "102", "high": "110", "low": "101", "close": "108"},
				{"datetime": "2025-01-02", "open": "100", "high": "103", "low": "99", "close": "102"}
			],
			"status": "ok"
		}`))
	}))
	defer srv.Close()

	candles, err := newTestClient(srv).FetchCandles(context.Background(), "BTC/USD", "1d")

	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), candles[0].Time)
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, 108.0, candles[1].Close)
}

func TestFetchCandles_IntradayDatetime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4h", r.URL.Query().Get("interval"))
		w.Write([]byte(`{"values":[{"datetime":"2025-01-02 04:00:00","open":"1","high":"2","low":"0.5","close":"1.5"}],"status":"ok"}`))
	}))
	defer srv.Close()

	candles, err := newTestClient(srv).FetchCandles(context.Background(), "EUR/USD", "weird")

	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 4, candles[0].Time.Hour())
}

func TestInterval(t *testing.T) {
	assert.Equal(t, "1h", twelvedata.Interval("1h"))
	assert.Equal(t, "4h", twelvedata.Interval("4h"))
	assert.Equal(t, "1day", twelvedata.Interval("1d"))
	assert.Equal(t, "4h", twelvedata.Interval(""))
}

func TestStream_DeliversPrices(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/quotes/price", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		var sub map[string]any
		if !assert.NoError(t, conn.ReadJSON(&sub)) {
			return
		}
		assert.Equal(t, "subscribe", sub["action"])

		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"subscribe-status","status":"ok"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"price","symbol":"BTC/USD","price":64000.5}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"heartbeat","status":"ok"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"price","symbol":"ETH/USD","price":"3100.25"}`))

		// Mantener abierta hasta que el cliente se vaya
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	var mu sync.Mutex
	got := map[string]float64{}
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := newTestClient(srv).NewStream([]string{"BTC/USD", "ETH/USD"}, func(_ context.Context, sym string, price float64) {
		mu.Lock()
		defer mu.Unlock()
		got[sym] = price
		if len(got) == 2 {
			close(done)
		}
	})
	go stream.Run(ctx)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not deliver prices")
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	assert.InDelta(t, 64000.5, got["BTC/USD"], 1e-9)
	assert.InDelta(t, 3100.25, got["ETH/USD"], 1e-9)
}
