package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/ports"
)

var promptTmpl = template.Must(template.New("prompt").Parse(
	`You are a quantitative swing trader. You only trade the ICC market structure
(Indication, Correction, Continuation). Never guess.

Market logic:
- BUY setup: Higher High (indication), Higher Low (correction), then a new Higher High (continuation).
- SELL setup: Lower Low (indication), Lower High (correction), then a new Lower Low (continuation).

Expectations:
- After a Lower High, a Lower Low is most likely.
- After a Higher High, a Higher Low is most likely.
- After a Lower Low, a Lower High is most likely.
- After a Higher Low, a Higher High is most likely.

Market data:
Asset: {{.Symbol}}
Current price: {{.Price}}
Signal: {{.Signal}}
Recent swing points: {{.Swings}}

Task: compute Entry, Stop Loss (sl) and Take Profit (tp) for this setup.

Risk management is mandatory: reward/risk must be exactly 1:4.
- BUY: sl goes below the recent Higher Low and (tp - entry) = 4 * (entry - sl).
- SELL: sl goes above the recent Lower High and (entry - tp) = 4 * (sl - entry).

Reply with a raw JSON object only, no markdown and no backticks:
{ "entry": number, "sl": number, "tp": number }`))

type swingJSON struct {
	Type  string  `json:"type"`
	Price float64 `json:"price"`
	Index int     `json:"index"`
}

func buildPrompt(req ports.SetupRequest) (string, error) {
	swings := make([]swingJSON, 0, len(req.Swings))
	for _, s := range req.Swings {
		swings = append(swings, swingJSON{Type: string(s.Kind), Price: s.Price, Index: s.Index})
	}
	b, err := json.Marshal(swings)
	if err != nil {
		return "", fmt.Errorf("marshal swings: %w", err)
	}

	var sb strings.Builder
	err = promptTmpl.Execute(&sb, map[string]any{
		"Symbol": req.Symbol,
		"Price":  req.CurrentPrice,
		"Signal": string(req.Signal),
		"Swings": string(b),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}

// rawSetup acepta tanto {entry, sl, tp} como {entry, stopLoss, takeProfit}.
// Los punteros distinguen un campo ausente de un cero.
type rawSetup struct {
	Entry      *float64 `json:"entry"`
	SL         *float64 `json:"sl"`
	TP         *float64 `json:"tp"`
	StopLoss   *float64 `json:"stopLoss"`
	TakeProfit *float64 `json:"takeProfit"`
}

var errMissingField = errors.New("setup response missing numeric field")

// ParseSetup extrae el setup del texto del modelo, quitando fences de markdown.
// Cualquier campo ausente o no numérico es un error.
func ParseSetup(text string) (domain.TradeSetup, error) {
	clean := strings.ReplaceAll(text, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var raw rawSetup
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return domain.TradeSetup{}, fmt.Errorf("parse setup %q: %w", truncate(clean, 200), err)
	}

	sl, tp := raw.SL, raw.TP
	if sl == nil {
		sl = raw.StopLoss
	}
	if tp == nil {
		tp = raw.TakeProfit
	}
	switch {
	case raw.Entry == nil:
		return domain.TradeSetup{}, fmt.Errorf("entry: %w", errMissingField)
	case sl == nil:
		return domain.TradeSetup{}, fmt.Errorf("sl: %w", errMissingField)
	case tp == nil:
		return domain.TradeSetup{}, fmt.Errorf("tp: %w", errMissingField)
	}
	return domain.TradeSetup{
		Entry:      *raw.Entry,
		StopLoss:   *sl,
		TakeProfit: *tp,
		Source:     domain.SourceAssisted,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
