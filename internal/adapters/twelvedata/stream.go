package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	streamPath        = "/v1/quotes/price"
	streamReadTimeout = 60 * time.Second
	writeTimeout      = 10 * time.Second
	heartbeatInterval = 10 * time.Second
	maxReconnectWait  = 30 * time.Second
)

// PriceHandler recibe cada precio del stream.
type PriceHandler func(ctx context.Context, symbol string, price float64)

type subscribeMessage struct {
	Action string `json:"action"`
	Params struct {
		Symbols string `json:"symbols"`
	} `json:"params"`
}

type streamEvent struct {
	Event  string          `json:"event"`
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Status string          `json:"status"`
}

// Stream es el cliente websocket de precios de TwelveData.
type Stream struct {
	url     string
	symbols []string
	handler PriceHandler
	dialer  *websocket.Dialer
}

// NewStream crea el stream para los símbolos dados. Cada precio recibido se
// entrega a handler en la goroutine de lectura, en orden de llegada.
func (c *Client) NewStream(symbols []string, handler PriceHandler) *Stream {
	u := strings.TrimRight(c.wsBase, "/") + streamPath
	if c.apiKey != "" {
		u += "?" + url.Values{"apikey": {c.apiKey}}.Encode()
	}
	return &Stream{
		url:     u,
		symbols: symbols,
		handler: handler,
		dialer:  websocket.DefaultDialer,
	}
}

// Run conecta, se suscribe y entrega precios hasta que el contexto se cancele.
// Reconecta con backoff exponencial (máx 30s) ante cualquier corte.
func (s *Stream) Run(ctx context.Context) error {
	wait := time.Second
	for {
		start := time.Now()
		err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(start) > maxReconnectWait {
			wait = time.Second
		}
		slog.Warn("price stream disconnected, reconnecting", "err", err, "wait", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil
		}
		wait *= 2
		if wait > maxReconnectWait {
			wait = maxReconnectWait
		}
	}
}

// session mantiene una conexión hasta que falle o se cancele el contexto.
func (s *Stream) session(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	slog.Info("price stream connected", "symbols", len(s.symbols))

	var writeMu sync.Mutex
	write := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(v)
	}

	var sub subscribeMessage
	sub.Action = "subscribe"
	sub.Params.Symbols = strings.Join(s.symbols, ",")
	if err := write(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Heartbeat: TwelveData corta conexiones sin tráfico.
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sessCtx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := write(map[string]string{"action": "heartbeat"}); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	for {
		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		var ev streamEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			slog.Debug("price stream: ignoring unparsable message", "err", err)
			continue
		}
		switch ev.Event {
		case "price":
			if ev.Symbol == "" || !ev.Price.IsPositive() {
				continue
			}
			s.handler(ctx, ev.Symbol, ev.Price.InexactFloat64())
		case "subscribe-status":
			if ev.Status == "error" {
				return errors.New("subscribe rejected")
			}
		}
	}
}
