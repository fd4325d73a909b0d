package transactions

import (
	"context"

	"papertrade-backend/internal/domain"
	"papertrade-backend/internal/infrastructure/marketdata"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

type Service struct {
	DB *gorm.DB
}

// Query filters an account's ledger. Symbol is optional.
type Query struct {
	Symbol string
	Limit  int
	Offset int
}

// Page is one page of the ledger plus the total number of matching rows.
type Page struct {
	Transactions []domain.Transaction `json:"transactions"`
	Total        int64                `json:"total"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

// History lists ledger entries newest first.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, q Query) (*Page, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	base := s.DB.WithContext(ctx).Model(&domain.Transaction{}).Where("account_id = ?", accountID)
	if sym := marketdata.NormalizeSymbol(q.Symbol); sym != "" {
		base = base.Where("symbol = ?", sym)
	}

	page := &Page{Transactions: []domain.Transaction{}, Limit: q.Limit, Offset: q.Offset}
	if err := base.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return nil, err
	}
	if page.Total == 0 {
		return page, nil
	}
	if err := base.Session(&gorm.Session{}).
		Order(`"createdAt" DESC`).
		Order("tx_id DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&page.Transactions).Error; err != nil {
		return nil, err
	}
	return page, nil
}
