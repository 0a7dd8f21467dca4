package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alejandrodnm/tradepulse/internal/adapters/httpx"
	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/ports"
)

const (
	defaultBase  = "https://generativelanguage.googleapis.com"
	defaultModel = "gemini-2.5-flash"

	// Plan gratuito de flash: 10 RPM. Se usa el 60%.
	requestsPerMinute = 6
	temperature       = 0.2

	maxRetries    = 2
	baseRetryWait = time.Second
)

// Config configura el generador.
type Config struct {
	APIKey string
	Base   string
	Model  string
}

// Client implementa ports.SetupGenerator sobre la API generateContent de Gemini.
type Client struct {
	http   *httpx.Client
	apiKey string
	base   string
	model  string
}

// NewClient crea el cliente. Base y Model vacíos usan los valores de producción.
func NewClient(cfg Config) *Client {
	if cfg.Base == "" {
		cfg.Base = defaultBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Client{
		http: httpx.New(httpx.Config{
			Name:              "gemini",
			Timeout:           30 * time.Second,
			RequestsPerMinute: requestsPerMinute,
			MaxRetries:        maxRetries,
			BaseRetryWait:     baseRetryWait,
		}),
		apiKey: cfg.APIKey,
		base:   strings.TrimRight(cfg.Base, "/"),
		model:  cfg.Model,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string  `json:"responseMimeType"`
		Temperature      float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateSetup implementa ports.SetupGenerator.
// El resultado no está validado direccionalmente: eso lo hace el calculador asistido.
func (c *Client) GenerateSetup(ctx context.Context, req ports.SetupRequest) (domain.TradeSetup, error) {
	if c.apiKey == "" {
		return domain.TradeSetup{}, fmt.Errorf("gemini.GenerateSetup: api key not configured")
	}
	prompt, err := buildPrompt(req)
	if err != nil {
		return domain.TradeSetup{}, fmt.Errorf("gemini.GenerateSetup: %w", err)
	}

	var body generateRequest
	body.Contents = []content{{Parts: []part{{Text: prompt}}}}
	body.GenerationConfig.ResponseMimeType = "application/json"
	body.GenerationConfig.Temperature = temperature

	var resp generateResponse
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.base, c.model)
	if err := c.post(ctx, url, body, &resp); err != nil {
		return domain.TradeSetup{}, fmt.Errorf("gemini.GenerateSetup: %w", err)
	}

	text := responseText(resp)
	setup, err := ParseSetup(text)
	if err != nil {
		return domain.TradeSetup{}, fmt.Errorf("gemini.GenerateSetup: %w", err)
	}
	return setup, nil
}

func responseText(resp generateResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.http.DoJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)
		return req, nil
	}, out)
}
