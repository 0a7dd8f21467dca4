package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

const (
	defaultOutputSize = 250
	defaultInterval   = "4h"
)

// intervals traduce los timeframes propios a los intervalos de TwelveData.
var intervals = map[string]string{
	"1h": "1h",
	"4h": "4h",
	"1d": "1day",
}

// Interval devuelve el intervalo de TwelveData para el timeframe; 4h si no se reconoce.
func Interval(timeframe string) string {
	if iv, ok := intervals[timeframe]; ok {
		return iv
	}
	return defaultInterval
}

type timeSeriesResponse struct {
	Values []struct {
		Datetime string          `json:"datetime"`
		Open     decimal.Decimal `json:"open"`
		High     decimal.Decimal `json:"high"`
		Low      decimal.Decimal `json:"low"`
		Close    decimal.Decimal `json:"close"`
	} `json:"values"`
}

var datetimeLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

func parseDatetime(s string) (time.Time, error) {
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

// FetchCandles implementa ports.CandleProvider sobre GET /time_series.
// TwelveData devuelve la vela más reciente primero; aquí se invierte el orden.
func (c *Client) FetchCandles(ctx context.Context, asset, timeframe string) ([]domain.Candle, error) {
	params := url.Values{}
	params.Set("symbol", asset)
	params.Set("interval", Interval(timeframe))
	params.Set("outputsize", strconv.Itoa(c.outputSize))

	raw, err := c.get(ctx, "/time_series", params)
	if err != nil {
		return nil, fmt.Errorf("twelvedata.FetchCandles: %s %s: %w", asset, timeframe, err)
	}
	var resp timeSeriesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("twelvedata.FetchCandles: decode: %w", err)
	}

	candles := make([]domain.Candle, len(resp.Values))
	for i, v := range resp.Values {
		t, err := parseDatetime(v.Datetime)
		if err != nil {
			return nil, fmt.Errorf("twelvedata.FetchCandles: %w", err)
		}
		candles[len(resp.Values)-1-i] = domain.Candle{
			Time:  t,
			Open:  v.Open.InexactFloat64(),
			High:  v.High.InexactFloat64(),
			Low:   v.Low.InexactFloat64(),
			Close: v.Close.InexactFloat64(),
		}
	}
	return candles, nil
}
