package market

import (
	"context"
	"fmt"
	"sort"

	"papertrade-backend/internal/infrastructure/marketdata"

	"github.com/google/uuid"
)

// DefaultSymbols is the browse list shown when the caller names none.
var DefaultSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "BRK.B", "JPM", "V",
	"JNJ", "WMT", "PG", "MA", "UNH", "HD", "XOM", "KO", "PEP", "DIS",
	"NFLX", "INTC", "AMD", "CSCO", "ORCL", "CRM", "NKE", "BA", "PFE", "T",
}

// WatchlistReader exposes the account's watched symbols.
type WatchlistReader interface {
	Symbols(ctx context.Context, accountID uuid.UUID) ([]string, error)
	Set(ctx context.Context, accountID uuid.UUID) (map[string]bool, error)
}

// Service serves stock lists, single quotes and price history.
type Service struct {
	Coordinator *Coordinator
	Watchlist   WatchlistReader
}

// Browse returns records for symbols (DefaultSymbols when empty), flagged
// with the account's watchlist membership and sorted by symbol.
func (s *Service) Browse(ctx context.Context, accountID uuid.UUID, symbols []string) (Batch, error) {
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	set, err := s.Watchlist.Set(ctx, accountID)
	if err != nil {
		return Batch{}, err
	}
	b := s.Coordinator.FetchMany(ctx, symbols, set)
	sortRecords(b.Records)
	return b, nil
}

// WatchlistView returns records for every watched symbol.
func (s *Service) WatchlistView(ctx context.Context, accountID uuid.UUID) (Batch, error) {
	symbols, err := s.Watchlist.Symbols(ctx, accountID)
	if err != nil {
		return Batch{}, err
	}
	set := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		set[sym] = true
	}
	b := s.Coordinator.FetchMany(ctx, symbols, set)
	sortRecords(b.Records)
	return b, nil
}

// Stock returns the record for a single symbol.
func (s *Service) Stock(ctx context.Context, accountID uuid.UUID, symbol string) (StockRecord, error) {
	symbol = marketdata.NormalizeSymbol(symbol)
	set, err := s.Watchlist.Set(ctx, accountID)
	if err != nil {
		return StockRecord{}, err
	}
	b := s.Coordinator.FetchMany(ctx, []string{symbol}, set)
	if len(b.Records) == 0 {
		reason := "no data"
		if len(b.Dropped) > 0 {
			reason = b.Dropped[0].Reason
		}
		return StockRecord{}, fmt.Errorf("%w: %s: %s", marketdata.ErrSymbolUnavailable, symbol, reason)
	}
	return b.Records[0], nil
}

// History returns the close series for symbol over rng.
func (s *Service) History(ctx context.Context, symbol, rng string) (marketdata.History, error) {
	if rng == "" {
		rng = "1mo"
	}
	return s.Coordinator.Gateway.GetHistory(ctx, symbol, rng)
}

func sortRecords(records []StockRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Symbol < records[j].Symbol })
}
