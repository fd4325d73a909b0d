package marketdata

import (
	"context"
	"fmt"

	"papertrade-backend/internal/infrastructure/quotecache"
)

type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (Quote, error)
}

type ProfileProvider interface {
	FetchProfile(ctx context.Context, symbol string) (Profile, error)
}

type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol, rng string) (History, error)
}

const (
	opQuote   = "quote"
	opProfile = "profile"
	opHistory = "history"
)

// Stores selects the backing store per lookup kind. Nil fields fall back to
// in-process memory.
type Stores struct {
	Quotes   quotecache.Store[Quote]
	Profiles quotecache.Store[Profile]
	History  quotecache.Store[History]
}

// Gateway is the cached front of the external providers. Every lookup goes
// through a cache keyed by (operation, symbol, params).
type Gateway struct {
	quotes   QuoteProvider
	profiles ProfileProvider
	history  HistoryProvider

	quoteCache   *quotecache.Cache[Quote]
	profileCache *quotecache.Cache[Profile]
	historyCache *quotecache.Cache[History]
}

func NewGateway(quotes QuoteProvider, profiles ProfileProvider, history HistoryProvider, stores Stores, cfg quotecache.Config) *Gateway {
	if cfg.Classify == nil {
		cfg.Classify = ClassifyError
	}
	if cfg.Rehydrate == nil {
		cfg.Rehydrate = RehydrateError
	}
	return &Gateway{
		quotes:       quotes,
		profiles:     profiles,
		history:      history,
		quoteCache:   quotecache.New[Quote](stores.Quotes, cfg),
		profileCache: quotecache.New[Profile](stores.Profiles, cfg),
		historyCache: quotecache.New[History](stores.History, cfg),
	}
}

// GetQuote fails soft: on error the returned quote carries the symbol and
// zero prices, alongside ErrSymbolUnavailable or ErrProviderTimeout.
func (g *Gateway) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return Quote{}, fmt.Errorf("%w: empty symbol", ErrSymbolUnavailable)
	}
	q, err := g.quoteCache.GetOrFetch(ctx, quotecache.Key{Op: opQuote, Symbol: symbol}, func(ctx context.Context) (Quote, error) {
		return g.quotes.FetchQuote(ctx, symbol)
	})
	if err != nil {
		return Quote{Symbol: symbol}, err
	}
	return q, nil
}

// GetProfile returns company metadata with MarketCap in dollars. When the
// provider omits the cap it is estimated as shares outstanding × current price.
func (g *Gateway) GetProfile(ctx context.Context, symbol string) (Profile, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return Profile{}, fmt.Errorf("%w: empty symbol", ErrSymbolUnavailable)
	}
	return g.profileCache.GetOrFetch(ctx, quotecache.Key{Op: opProfile, Symbol: symbol}, func(ctx context.Context) (Profile, error) {
		p, err := g.profiles.FetchProfile(ctx, symbol)
		if err != nil {
			return p, err
		}
		if !p.MarketCap.IsPositive() && p.SharesOutstanding.IsPositive() {
			if q, qerr := g.GetQuote(ctx, symbol); qerr == nil && q.CurrentPrice.IsPositive() {
				p.MarketCap = p.SharesOutstanding.Mul(q.CurrentPrice)
			}
		}
		p.MarketCap = normalizeMarketCap(p.MarketCap)
		return p, nil
	})
}

// GetHistory returns the close series for rng (see ValidRange).
func (g *Gateway) GetHistory(ctx context.Context, symbol, rng string) (History, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return History{}, fmt.Errorf("%w: empty symbol", ErrSymbolUnavailable)
	}
	if !ValidRange(rng) {
		return History{}, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
	}
	return g.historyCache.GetOrFetch(ctx, quotecache.Key{Op: opHistory, Symbol: symbol, Params: rng}, func(ctx context.Context) (History, error) {
		return g.history.FetchHistory(ctx, symbol, rng)
	})
}

// CacheStats reports counters per lookup kind.
func (g *Gateway) CacheStats() map[string]quotecache.Stats {
	return map[string]quotecache.Stats{
		opQuote:   g.quoteCache.Stats(),
		opProfile: g.profileCache.Stats(),
		opHistory: g.historyCache.Stats(),
	}
}
