package trading

import (
	"context"

	"papertrade-backend/internal/domain"
	"papertrade-backend/internal/infrastructure/marketdata"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AverageCosts returns, per symbol, Σ buy amounts / Σ buy quantities over the
// whole ledger. Sells are ignored, so the figure does not move on partial
// sells; this is a weighted average, not lot accounting.
func (s *Service) AverageCosts(ctx context.Context, accountID uuid.UUID) (map[string]decimal.Decimal, error) {
	var buys []domain.Transaction
	if err := s.DB.WithContext(ctx).
		Where("account_id = ? AND side = ?", accountID, domain.SideBuy).
		Find(&buys).Error; err != nil {
		return nil, err
	}
	return averageCosts(buys), nil
}

// AverageCost is AverageCosts for one symbol; zero when never bought.
func (s *Service) AverageCost(ctx context.Context, accountID uuid.UUID, symbol string) (decimal.Decimal, error) {
	var buys []domain.Transaction
	if err := s.DB.WithContext(ctx).
		Where("account_id = ? AND symbol = ? AND side = ?", accountID, marketdata.NormalizeSymbol(symbol), domain.SideBuy).
		Find(&buys).Error; err != nil {
		return decimal.Zero, err
	}
	return averageCosts(buys)[marketdata.NormalizeSymbol(symbol)], nil
}

func averageCosts(buys []domain.Transaction) map[string]decimal.Decimal {
	amounts := map[string]decimal.Decimal{}
	quantities := map[string]decimal.Decimal{}
	for _, t := range buys {
		if t.Side != domain.SideBuy {
			continue
		}
		amounts[t.Symbol] = amounts[t.Symbol].Add(t.Amount)
		quantities[t.Symbol] = quantities[t.Symbol].Add(t.Quantity)
	}
	out := make(map[string]decimal.Decimal, len(amounts))
	for sym, amt := range amounts {
		qty := quantities[sym]
		if !qty.IsPositive() {
			continue
		}
		out[sym] = amt.Div(qty).Round(4)
	}
	return out
}
