package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alejandrodnm/tradepulse/internal/adapters/httpx"
)

const (
	defaultRESTBase = "https://api.twelvedata.com"
	defaultWSBase   = "wss://ws.twelvedata.com"

	// Plan gratuito: 8 requests/min. Burst igual al cupo del minuto.
	defaultRequestsPerMinute = 8

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Config configura el cliente de TwelveData.
type Config struct {
	APIKey            string
	RESTBase          string
	WSBase            string
	RequestsPerMinute int
	OutputSize        int
}

// Client es el HTTP client de TwelveData con rate limiting y retries.
type Client struct {
	http       *httpx.Client
	apiKey     string
	restBase   string
	wsBase     string
	outputSize int
}

// NewClient crea un Client. Los campos vacíos usan los valores de producción.
func NewClient(cfg Config) *Client {
	if cfg.RESTBase == "" {
		cfg.RESTBase = defaultRESTBase
	}
	if cfg.WSBase == "" {
		cfg.WSBase = defaultWSBase
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaultRequestsPerMinute
	}
	if cfg.OutputSize <= 0 {
		cfg.OutputSize = defaultOutputSize
	}
	return &Client{
		http: httpx.New(httpx.Config{
			Name:              "twelvedata",
			Timeout:           10 * time.Second,
			RequestsPerMinute: cfg.RequestsPerMinute,
			MaxRetries:        maxRetries,
			BaseRetryWait:     baseRetryWait,
		}),
		apiKey:     cfg.APIKey,
		restBase:   cfg.RESTBase,
		wsBase:     cfg.WSBase,
		outputSize: cfg.OutputSize,
	}
}

// apiError es el cuerpo de error de TwelveData; llega con HTTP 200.
type apiError struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// get hace un GET con rate limiting y retries y devuelve el cuerpo crudo.
// Un cuerpo con status "error" se convierte en error aunque el HTTP sea 200.
func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	u := c.restBase + path + "?" + params.Encode()

	var raw json.RawMessage
	err := c.http.DoJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, &raw)
	if err != nil {
		return nil, err
	}

	var apiErr apiError
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Status == "error" {
		return nil, fmt.Errorf("api error %d: %s", apiErr.Code, apiErr.Message)
	}
	return raw, nil
}
