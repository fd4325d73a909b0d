package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultFinnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient serves quotes and company profiles.
type FinnhubClient struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Client  *http.Client
	Now     func() time.Time
}

type finnhubQuote struct {
	Current       decimal.Decimal `json:"c"`
	PreviousClose decimal.Decimal `json:"pc"`
	Timestamp     int64           `json:"t"`
}

type finnhubProfile struct {
	Ticker            string          `json:"ticker"`
	Name              string          `json:"name"`
	Industry          string          `json:"finnhubIndustry"`
	MarketCap         decimal.Decimal `json:"marketCapitalization"`
	SharesOutstanding decimal.Decimal `json:"shareOutstanding"`
}

func (c *FinnhubClient) endpoint(path, symbol string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = DefaultFinnhubBaseURL
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	if c.APIKey != "" {
		q.Set("token", c.APIKey)
	}
	return base + path + "?" + q.Encode()
}

func (c *FinnhubClient) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// FetchQuote returns the latest price. Finnhub answers unknown symbols with
// an all-zero body, which maps to ErrSymbolUnavailable.
func (c *FinnhubClient) FetchQuote(ctx context.Context, symbol string) (Quote, error) {
	var raw finnhubQuote
	if err := getJSON(ctx, httpClient(c.Client, c.Timeout), c.Timeout, c.endpoint("/quote", symbol), &raw); err != nil {
		return Quote{Symbol: symbol}, err
	}
	if raw.Current.IsZero() && raw.PreviousClose.IsZero() {
		return Quote{Symbol: symbol}, fmt.Errorf("%w: %s: empty quote", ErrSymbolUnavailable, symbol)
	}
	return Quote{
		Symbol:        symbol,
		CurrentPrice:  raw.Current,
		PreviousClose: raw.PreviousClose,
		FetchedAt:     c.now(),
	}, nil
}

// FetchProfile returns company metadata. Market cap and share count are
// reported by Finnhub in millions.
func (c *FinnhubClient) FetchProfile(ctx context.Context, symbol string) (Profile, error) {
	var raw finnhubProfile
	if err := getJSON(ctx, httpClient(c.Client, c.Timeout), c.Timeout, c.endpoint("/stock/profile2", symbol), &raw); err != nil {
		return Profile{Symbol: symbol}, err
	}
	if raw.Name == "" && raw.Ticker == "" {
		return Profile{Symbol: symbol}, fmt.Errorf("%w: %s: empty profile", ErrSymbolUnavailable, symbol)
	}
	return Profile{
		Symbol:            symbol,
		CompanyName:       raw.Name,
		Sector:            raw.Industry,
		MarketCap:         raw.MarketCap,
		SharesOutstanding: raw.SharesOutstanding,
	}, nil
}
