// Package httpx es el cliente HTTP común de los adapters: rate limiting,
// retries con backoff exponencial y decodificación JSON.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultMaxRetries    = 3
	defaultBaseRetryWait = 500 * time.Millisecond
)

// Config configura el cliente. Los campos a cero usan los defaults.
type Config struct {
	// Name identifica la API en los logs.
	Name              string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxRetries        int
	BaseRetryWait     time.Duration
}

// Client ejecuta requests con rate limiting y retries.
type Client struct {
	http       *http.Client
	name       string
	limiter    *rate.Limiter
	maxRetries int
	baseWait   time.Duration
}

// New crea el cliente. Con RequestsPerMinute <= 0 no hay límite.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseRetryWait <= 0 {
		cfg.BaseRetryWait = defaultBaseRetryWait
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		name:       cfg.Name,
		limiter:    limiter,
		maxRetries: cfg.MaxRetries,
		baseWait:   cfg.BaseRetryWait,
	}
}

// DoJSON construye el request con build en cada intento (así el body se puede
// releer), lo ejecuta y decodifica la respuesta en out.
// 429 y 5xx se reintentan; cualquier otro 4xx se devuelve sin reintentar.
func (c *Client) DoJSON(ctx context.Context, build func(ctx context.Context) (*http.Request, error), out any) error {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := build(ctx)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == c.maxRetries || ctx.Err() != nil {
				return fmt.Errorf("request failed after %d retries: %w", attempt, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == c.maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, c.maxRetries)
			}
			slog.Warn("api request retry", "api", c.name, "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", c.maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.baseWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
