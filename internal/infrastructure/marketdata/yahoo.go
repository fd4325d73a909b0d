package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

const DefaultYahooChartBaseURL = "https://query2.finance.yahoo.com/v8/finance/chart"

// Ranges accepted by GetHistory, mapped to the bar interval requested.
var rangeIntervals = map[string]string{
	"1d":  "5m",
	"5d":  "30m",
	"1mo": "1d",
	"3mo": "1d",
	"6mo": "1d",
	"1y":  "1d",
	"2y":  "1wk",
	"5y":  "1wk",
	"max": "1mo",
}

// ValidRange reports whether r is a supported history range.
func ValidRange(r string) bool {
	_, ok := rangeIntervals[r]
	return ok
}

// YahooChartClient serves historical close series from the v8 chart API.
type YahooChartClient struct {
	BaseURL  string
	Timeout  time.Duration
	Client   *http.Client
	Location *time.Location
}

// FetchHistory returns closes for symbol over rng. Bars without a close are
// dropped with their date and volume so the three series stay aligned; a
// missing volume is reported as 0.
func (c *YahooChartClient) FetchHistory(ctx context.Context, symbol, rng string) (History, error) {
	interval, ok := rangeIntervals[rng]
	if !ok {
		return History{}, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
	}
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = DefaultYahooChartBaseURL
	}
	q := url.Values{}
	q.Set("range", rng)
	q.Set("interval", interval)
	addr := base + "/" + url.PathEscape(symbol) + "?" + q.Encode()

	var doc interface{}
	if err := getJSON(ctx, httpClient(c.Client, c.Timeout), c.Timeout, addr, &doc); err != nil {
		return History{}, err
	}

	stamps, err := jsonArray(doc, "$.chart.result[0].timestamp")
	if err != nil {
		return History{}, fmt.Errorf("%w: %s: %v", ErrSymbolUnavailable, symbol, err)
	}
	closes, err := jsonArray(doc, "$.chart.result[0].indicators.quote[0].close")
	if err != nil {
		return History{}, fmt.Errorf("%w: %s: %v", ErrSymbolUnavailable, symbol, err)
	}
	volumes, _ := jsonArray(doc, "$.chart.result[0].indicators.quote[0].volume")

	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	layout := "2006-01-02"
	if interval == "5m" || interval == "30m" {
		layout = "2006-01-02 15:04"
	}

	h := History{Symbol: symbol, Range: rng}
	for i, ts := range stamps {
		sec, ok := ts.(float64)
		if !ok || i >= len(closes) {
			continue
		}
		closeVal, ok := closes[i].(float64)
		if !ok {
			continue
		}
		var vol int64
		if i < len(volumes) {
			if v, ok := volumes[i].(float64); ok {
				vol = int64(v)
			}
		}
		h.Dates = append(h.Dates, time.Unix(int64(sec), 0).In(loc).Format(layout))
		h.Prices = append(h.Prices, decimal.NewFromFloat(closeVal).Round(4))
		h.Volumes = append(h.Volumes, vol)
	}
	if len(h.Dates) == 0 {
		return History{}, fmt.Errorf("%w: %s: empty series", ErrSymbolUnavailable, symbol)
	}
	return h, nil
}

// jsonArray evaluates path and returns the array found there.
func jsonArray(doc interface{}, path string) ([]interface{}, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: not an array", path)
	}
	return arr, nil
}
