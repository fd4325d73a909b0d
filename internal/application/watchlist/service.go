package watchlist

import (
	"context"
	"errors"

	"papertrade-backend/internal/domain"
	"papertrade-backend/internal/infrastructure/marketdata"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSymbolRequired = errors.New("symbol is required")

// Service manages per-account watchlist membership.
type Service struct {
	DB *gorm.DB
}

// Add puts symbol on the watchlist. Adding a watched symbol is a no-op.
func (s *Service) Add(ctx context.Context, accountID uuid.UUID, symbol string) error {
	symbol = marketdata.NormalizeSymbol(symbol)
	if symbol == "" {
		return ErrSymbolRequired
	}
	entry := domain.WatchlistEntry{AccountID: accountID, Symbol: symbol}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
}

// Remove takes symbol off the watchlist. Removing an absent symbol is a no-op.
func (s *Service) Remove(ctx context.Context, accountID uuid.UUID, symbol string) error {
	symbol = marketdata.NormalizeSymbol(symbol)
	if symbol == "" {
		return ErrSymbolRequired
	}
	return s.DB.WithContext(ctx).
		Where("account_id = ? AND symbol = ?", accountID, symbol).
		Delete(&domain.WatchlistEntry{}).Error
}

func (s *Service) Contains(ctx context.Context, accountID uuid.UUID, symbol string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.WatchlistEntry{}).
		Where("account_id = ? AND symbol = ?", accountID, marketdata.NormalizeSymbol(symbol)).
		Count(&n).Error
	return n > 0, err
}

// Symbols returns watched symbols in insertion order.
func (s *Service) Symbols(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	var symbols []string
	err := s.DB.WithContext(ctx).Model(&domain.WatchlistEntry{}).
		Where("account_id = ?", accountID).
		Order(`"createdAt" ASC`).
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, err
	}
	if symbols == nil {
		symbols = []string{}
	}
	return symbols, nil
}

// Set returns the watchlist as a membership set.
func (s *Service) Set(ctx context.Context, accountID uuid.UUID) (map[string]bool, error) {
	symbols, err := s.Symbols(ctx, accountID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		set[sym] = true
	}
	return set, nil
}
