package trading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"papertrade-backend/internal/domain"
	"papertrade-backend/internal/infrastructure/marketdata"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidTrade       = errors.New("quantity and amount must be positive")
	ErrInvalidSide        = errors.New("side must be buy or sell")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrAccountNotFound    = errors.New("account not found")
	ErrPersistence        = errors.New("trade could not be persisted")
	ErrMarketUnavailable  = errors.New("market data not configured")
)

// Pricer prices market orders.
type Pricer interface {
	GetQuote(ctx context.Context, symbol string) (marketdata.Quote, error)
	GetProfile(ctx context.Context, symbol string) (marketdata.Profile, error)
}

// SettleInput is a buy or sell intent. Amount is the total cash moved.
// Snapshot, when set, is stored as JSON on the ledger entry.
type SettleInput struct {
	AccountID   uuid.UUID
	Symbol      string
	Side        string
	Quantity    decimal.Decimal
	Amount      decimal.Decimal
	CompanyName string
	Sector      string
	Snapshot    interface{}
}

type SettleResult struct {
	Transaction     domain.Transaction `json:"transaction"`
	Balance         decimal.Decimal    `json:"balance"`
	HoldingQuantity decimal.Decimal    `json:"holding_quantity"`
}

// Service settles trades against the account balance, holdings and ledger.
type Service struct {
	DB     *gorm.DB
	Market Pricer

	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func (s *Service) lockAccount(id uuid.UUID) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Settle applies one trade atomically: balance update, ledger insert and
// holding upsert or delete commit together or not at all. Both sides are
// fully validated before anything is written.
func (s *Service) Settle(ctx context.Context, in SettleInput) (*SettleResult, error) {
	in.Symbol = marketdata.NormalizeSymbol(in.Symbol)
	if in.Symbol == "" || !in.Quantity.IsPositive() || !in.Amount.IsPositive() {
		return nil, ErrInvalidTrade
	}
	if in.Side != domain.SideBuy && in.Side != domain.SideSell {
		return nil, ErrInvalidSide
	}
	var snapshot datatypes.JSON
	if in.Snapshot != nil {
		b, err := json.Marshal(in.Snapshot)
		if err != nil {
			return nil, err
		}
		snapshot = datatypes.JSON(b)
	}

	unlock := s.lockAccount(in.AccountID)
	defer unlock()

	var result SettleResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var acct domain.Account
		if err := q.Where("account_id = ?", in.AccountID).First(&acct).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		var holding domain.Holding
		held := true
		if err := tx.Where("account_id = ? AND symbol = ?", in.AccountID, in.Symbol).First(&holding).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			held = false
		}

		switch in.Side {
		case domain.SideBuy:
			if acct.Balance.LessThan(in.Amount) {
				return ErrInsufficientFunds
			}
		case domain.SideSell:
			if !held || holding.Quantity.LessThan(in.Quantity) {
				return ErrInsufficientShares
			}
		}

		balance := acct.Balance.Add(in.Amount)
		if in.Side == domain.SideBuy {
			balance = acct.Balance.Sub(in.Amount)
		}
		if err := tx.Model(&domain.Account{}).Where("account_id = ?", in.AccountID).Update("balance", balance).Error; err != nil {
			return err
		}

		entry := domain.Transaction{
			AccountID:     in.AccountID,
			Symbol:        in.Symbol,
			Side:          in.Side,
			Quantity:      in.Quantity,
			PricePerUnit:  in.Amount.Div(in.Quantity).Round(4),
			Amount:        in.Amount,
			QuoteSnapshot: snapshot,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		remaining, err := applyToHolding(tx, in, holding, held)
		if err != nil {
			return err
		}

		result = SettleResult{Transaction: entry, Balance: balance, HoldingQuantity: remaining}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInsufficientShares):
			return nil, err
		}
		log.Error().Err(err).Str("account_id", in.AccountID.String()).Str("symbol", in.Symbol).Str("side", in.Side).Msg("trading: settlement rolled back")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &result, nil
}

// applyToHolding upserts the position, deleting it once nothing is left.
func applyToHolding(tx *gorm.DB, in SettleInput, holding domain.Holding, held bool) (decimal.Decimal, error) {
	if in.Side == domain.SideBuy && !held {
		holding = domain.Holding{
			AccountID:   in.AccountID,
			Symbol:      in.Symbol,
			Quantity:    in.Quantity,
			CompanyName: in.CompanyName,
			Sector:      in.Sector,
		}
		return holding.Quantity, tx.Create(&holding).Error
	}

	qty := holding.Quantity.Add(in.Quantity)
	if in.Side == domain.SideSell {
		qty = holding.Quantity.Sub(in.Quantity)
	}
	if !qty.IsPositive() {
		return decimal.Zero, tx.Delete(&holding).Error
	}
	updates := map[string]interface{}{"quantity": qty}
	if in.CompanyName != "" {
		updates["company_name"] = in.CompanyName
	}
	if in.Sector != "" {
		updates["sector"] = in.Sector
	}
	return qty, tx.Model(&holding).Updates(updates).Error
}

// Buy settles a market buy of quantity shares at the current quote.
func (s *Service) Buy(ctx context.Context, accountID uuid.UUID, symbol string, quantity decimal.Decimal) (*SettleResult, error) {
	return s.marketOrder(ctx, accountID, symbol, domain.SideBuy, quantity)
}

// Sell settles a market sell of quantity shares at the current quote.
func (s *Service) Sell(ctx context.Context, accountID uuid.UUID, symbol string, quantity decimal.Decimal) (*SettleResult, error) {
	return s.marketOrder(ctx, accountID, symbol, domain.SideSell, quantity)
}

type quoteSnapshot struct {
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	FetchedAt     interface{}     `json:"fetched_at"`
}

func (s *Service) marketOrder(ctx context.Context, accountID uuid.UUID, symbol, side string, quantity decimal.Decimal) (*SettleResult, error) {
	if s.Market == nil {
		return nil, ErrMarketUnavailable
	}
	symbol = marketdata.NormalizeSymbol(symbol)
	if symbol == "" || !quantity.IsPositive() {
		return nil, ErrInvalidTrade
	}
	q, err := s.Market.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if !q.CurrentPrice.IsPositive() {
		return nil, fmt.Errorf("%w: %s: no price", marketdata.ErrSymbolUnavailable, symbol)
	}
	amount := quantity.Mul(q.CurrentPrice).Round(2)

	in := SettleInput{
		AccountID: accountID,
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Amount:    amount,
		Snapshot:  quoteSnapshot{Price: q.CurrentPrice, PreviousClose: q.PreviousClose, FetchedAt: q.FetchedAt},
	}
	if p, err := s.Market.GetProfile(ctx, symbol); err == nil {
		in.CompanyName = p.CompanyName
		in.Sector = p.Sector
	}
	return s.Settle(ctx, in)
}
