package marketdata

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrSymbolUnavailable = errors.New("symbol unavailable")
	ErrProviderTimeout   = errors.New("provider timeout")
	ErrInvalidRange      = errors.New("invalid history range")
)

// Quote is a point-in-time price. A zero PreviousClose means the provider had
// no usable data, not a real close of zero.
type Quote struct {
	Symbol        string          `json:"symbol"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// HasData reports whether both price fields are usable.
func (q Quote) HasData() bool {
	return q.CurrentPrice.IsPositive() && q.PreviousClose.IsPositive()
}

// Profile describes the company behind a symbol. MarketCap is in dollars
// after normalisation; zero means unknown.
type Profile struct {
	Symbol            string          `json:"symbol"`
	CompanyName       string          `json:"company_name"`
	Sector            string          `json:"sector"`
	MarketCap         decimal.Decimal `json:"market_cap"`
	SharesOutstanding decimal.Decimal `json:"shares_outstanding"`
}

// History is a close-price series. Dates, Prices and Volumes are index aligned.
type History struct {
	Symbol  string            `json:"symbol"`
	Range   string            `json:"range"`
	Dates   []string          `json:"dates"`
	Prices  []decimal.Decimal `json:"prices"`
	Volumes []int64           `json:"volumes"`
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

var (
	tenBillion     = decimal.NewFromInt(10_000_000_000)
	twoBillion     = decimal.NewFromInt(2_000_000_000)
	threeHundredM  = decimal.NewFromInt(300_000_000)
	millionsCutoff = decimal.NewFromInt(10_000_000)
	oneMillion     = decimal.NewFromInt(1_000_000)
)

// MarketCapBucket classifies a capitalization in dollars.
func MarketCapBucket(capitalization decimal.Decimal) string {
	switch {
	case !capitalization.IsPositive():
		return "N/A"
	case capitalization.GreaterThanOrEqual(tenBillion):
		return "Large cap"
	case capitalization.GreaterThanOrEqual(twoBillion):
		return "Mid cap"
	case capitalization.GreaterThanOrEqual(threeHundredM):
		return "Small cap"
	default:
		return "Micro cap"
	}
}

// normalizeMarketCap treats positive values under 1e7 as millions.
// Providers disagree on units; this is a heuristic, not a contract.
func normalizeMarketCap(capitalization decimal.Decimal) decimal.Decimal {
	if capitalization.IsPositive() && capitalization.LessThan(millionsCutoff) {
		return capitalization.Mul(oneMillion)
	}
	return capitalization
}
