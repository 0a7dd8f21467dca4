package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

type priceQuote struct {
	Price decimal.Decimal `json:"price"`
}

// FetchPrices implementa ports.PriceSource sobre GET /price.
//
// Con un símbolo la respuesta es {"price":"…"}; con varios es
// {"BTC/USD":{"price":"…"}, …}. Los símbolos con error o precio no positivo
// se omiten del resultado.
func (c *Client) FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	params := url.Values{}
	params.Set("symbol", strings.Join(symbols, ","))
	raw, err := c.get(ctx, "/price", params)
	if err != nil {
		return nil, fmt.Errorf("twelvedata.FetchPrices: %w", err)
	}

	out := make(map[string]float64, len(symbols))
	if len(symbols) == 1 {
		var q priceQuote
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("twelvedata.FetchPrices: decode single: %w", err)
		}
		if q.Price.IsPositive() {
			out[symbols[0]] = q.Price.InexactFloat64()
		}
		return out, nil
	}

	var multi map[string]json.RawMessage
	if err := json.Unmarshal(raw, &multi); err != nil {
		return nil, fmt.Errorf("twelvedata.FetchPrices: decode multi: %w", err)
	}
	for _, sym := range symbols {
		body, ok := multi[sym]
		if !ok {
			continue
		}
		var q priceQuote
		if err := json.Unmarshal(body, &q); err != nil {
			slog.Warn("twelvedata: skipping unparsable quote", "symbol", sym, "err", err)
			continue
		}
		if q.Price.IsPositive() {
			out[sym] = q.Price.InexactFloat64()
		}
	}
	return out, nil
}
