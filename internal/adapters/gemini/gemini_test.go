package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tradepulse/internal/adapters/gemini"
	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/ports"
)

func sellRequest() ports.SetupRequest {
	return ports.SetupRequest{
		Symbol:       "BTC/USD",
		Signal:       domain.SignalSell,
		CurrentPrice: 79,
		Swings: []domain.SwingPoint{
			{Kind: domain.SwingTrough, Price: 90, Index: 0},
			{Kind: domain.SwingPeak, Price: 100, Index: 1},
		},
	}
}

func geminiReply(text string) []byte {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return b
}

func TestGenerateSetup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-goog-api-key"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw, _ := json.Marshal(body)
		assert.Contains(t, string(raw), "BTC/USD")
		assert.Contains(t, string(raw), "SELL")
		assert.Contains(t, string(raw), `\"type\":\"trough\"`)

		w.Write(geminiReply("```json\n{\"entry\": 79, \"sl\": 81, \"tp\": 71}\n```"))
	}))
	defer srv.Close()

	c := gemini.NewClient(gemini.Config{APIKey: "k", Base: srv.URL, Model: "test-model"})
	setup, err := c.GenerateSetup(context.Background(), sellRequest())

	require.NoError(t, err)
	assert.Equal(t, 79.0, setup.Entry)
	assert.Equal(t, 81.0, setup.StopLoss)
	assert.Equal(t, 71.0, setup.TakeProfit)
	assert.Equal(t, domain.SourceAssisted, setup.Source)
}

func TestGenerateSetup_NoAPIKey(t *testing.T) {
	c := gemini.NewClient(gemini.Config{})
	_, err := c.GenerateSetup(context.Background(), sellRequest())
	assert.Error(t, err)
}

func TestGenerateSetup_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"denied"}}`))
	}))
	defer srv.Close()

	c := gemini.NewClient(gemini.Config{APIKey: "k", Base: srv.URL})
	_, err := c.GenerateSetup(context.Background(), sellRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestParseSetup_AlternateFieldNames(t *testing.T) {
	setup, err := gemini.ParseSetup(`{"entry": 100, "stopLoss": 98, "takeProfit": 108}`)
	require.NoError(t, err)
	assert.Equal(t, 98.0, setup.StopLoss)
	assert.Equal(t, 108.0, setup.TakeProfit)
}

func TestParseSetup_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":       "I think you should buy",
		"missing tp":     `{"entry": 100, "sl": 98}`,
		"string numbers": `{"entry": "100", "sl": "98", "tp": "108"}`,
		"empty":          "",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := gemini.ParseSetup(text)
			assert.Error(t, err)
		})
	}
}

func TestParseSetup_StripsFencesAndWhitespace(t *testing.T) {
	setup, err := gemini.ParseSetup("  ```\n{\"entry\":1.1,\"sl\":1.0,\"tp\":1.5}\n```  ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(setup.Source), "assisted"))
	assert.InDelta(t, 1.1, setup.Entry, 1e-12)
}
