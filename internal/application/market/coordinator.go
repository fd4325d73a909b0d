package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"papertrade-backend/internal/infrastructure/marketdata"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers = 15
	DefaultTimeout = 10 * time.Second
)

// MarketData is the gateway surface the coordinator fans out to.
type MarketData interface {
	GetQuote(ctx context.Context, symbol string) (marketdata.Quote, error)
	GetProfile(ctx context.Context, symbol string) (marketdata.Profile, error)
	GetHistory(ctx context.Context, symbol, rng string) (marketdata.History, error)
}

// StockRecord is one row of a stock list.
type StockRecord struct {
	Symbol         string          `json:"symbol"`
	CompanyName    string          `json:"company_name"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	PrevPrice      decimal.Decimal `json:"prev_price"`
	GainLoss       decimal.Decimal `json:"gain_loss"`
	PercentChange  decimal.Decimal `json:"percent_change"`
	Sector         string          `json:"sector"`
	MarketCap      string          `json:"market_cap"`
	MarketCapValue decimal.Decimal `json:"market_cap_value"`
	InWatchlist    bool            `json:"in_watchlist"`
}

// Dropped records a symbol left out of a batch and why.
type Dropped struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// Batch is the outcome of FetchMany. Records has no defined order.
type Batch struct {
	Records []StockRecord `json:"records"`
	Dropped []Dropped     `json:"dropped,omitempty"`
}

// Coordinator fans per-symbol lookups out to the gateway with bounded
// concurrency. It never fails a batch because one symbol failed.
type Coordinator struct {
	Gateway MarketData
	Workers int
	Timeout time.Duration
}

func (c *Coordinator) workers() int {
	if c.Workers <= 0 {
		return DefaultWorkers
	}
	return c.Workers
}

func (c *Coordinator) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// FetchMany loads quote and profile for every symbol. Symbols whose lookup
// fails or whose quote is incomplete are reported in Dropped.
func (c *Coordinator) FetchMany(ctx context.Context, symbols []string, watchlist map[string]bool) Batch {
	var mu sync.Mutex
	batch := Batch{Records: []StockRecord{}}
	dropped := c.fanOut(ctx, symbols, func(ctx context.Context, symbol string) error {
		rec, err := c.fetchRecord(ctx, symbol, watchlist[symbol])
		if err != nil {
			return err
		}
		mu.Lock()
		batch.Records = append(batch.Records, rec)
		mu.Unlock()
		return nil
	})
	batch.Dropped = dropped
	return batch
}

// FetchQuotes loads only quotes, keyed by normalized symbol.
func (c *Coordinator) FetchQuotes(ctx context.Context, symbols []string) (map[string]marketdata.Quote, []Dropped) {
	var mu sync.Mutex
	quotes := make(map[string]marketdata.Quote, len(symbols))
	dropped := c.fanOut(ctx, symbols, func(ctx context.Context, symbol string) error {
		q, err := c.Gateway.GetQuote(ctx, symbol)
		if err != nil {
			return err
		}
		if !q.HasData() {
			return fmt.Errorf("%w: incomplete quote", marketdata.ErrSymbolUnavailable)
		}
		mu.Lock()
		quotes[symbol] = q
		mu.Unlock()
		return nil
	})
	return quotes, dropped
}

// fanOut runs task once per unique symbol, at most min(workers, n) at a time,
// and blocks until all finish. Tasks are detached from ctx cancellation but
// each carries its own timeout. Failed or panicking tasks are returned as
// Dropped and logged.
func (c *Coordinator) fanOut(ctx context.Context, symbols []string, task func(context.Context, string) error) []Dropped {
	unique := uniqueSymbols(symbols)
	if len(unique) == 0 {
		return nil
	}

	base := context.WithoutCancel(ctx)
	timeout := c.timeout()

	var g errgroup.Group
	g.SetLimit(min(c.workers(), len(unique)))

	var mu sync.Mutex
	var dropped []Dropped
	drop := func(symbol, reason string) {
		log.Warn().Str("symbol", symbol).Str("reason", reason).Msg("market: symbol dropped from batch")
		mu.Lock()
		dropped = append(dropped, Dropped{Symbol: symbol, Reason: reason})
		mu.Unlock()
	}

	for _, symbol := range unique {
		symbol := symbol
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					drop(symbol, fmt.Sprint("panic: ", r))
				}
			}()
			tctx, cancel := context.WithTimeout(base, timeout)
			defer cancel()
			if err := task(tctx, symbol); err != nil {
				drop(symbol, err.Error())
			}
			return nil
		})
	}
	_ = g.Wait()
	return dropped
}

func (c *Coordinator) fetchRecord(ctx context.Context, symbol string, inWatchlist bool) (StockRecord, error) {
	q, err := c.Gateway.GetQuote(ctx, symbol)
	if err != nil {
		return StockRecord{}, err
	}
	if !q.HasData() {
		return StockRecord{}, fmt.Errorf("%w: incomplete quote", marketdata.ErrSymbolUnavailable)
	}
	p, err := c.Gateway.GetProfile(ctx, symbol)
	if err != nil {
		return StockRecord{}, err
	}

	gain := q.CurrentPrice.Sub(q.PreviousClose)
	name := p.CompanyName
	if name == "" {
		name = symbol
	}
	return StockRecord{
		Symbol:         symbol,
		CompanyName:    name,
		CurrentPrice:   q.CurrentPrice,
		PrevPrice:      q.PreviousClose,
		GainLoss:       gain.Round(2),
		PercentChange:  gain.Div(q.PreviousClose).Mul(decimal.NewFromInt(100)).Round(2),
		Sector:         p.Sector,
		MarketCap:      marketdata.MarketCapBucket(p.MarketCap),
		MarketCapValue: p.MarketCap,
		InWatchlist:    inWatchlist,
	}, nil
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = marketdata.NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
