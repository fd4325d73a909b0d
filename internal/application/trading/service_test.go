package trading

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"papertrade-backend/internal/domain"
	"papertrade-backend/internal/infrastructure/marketdata"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setupTradingTest(t *testing.T) (*Service, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(domain.Models()...))

	acct := domain.Account{Username: "alice", PasswordHash: "x", Balance: d("1000")}
	require.NoError(t, db.Create(&acct).Error)
	return &Service{DB: db}, acct.AccountID
}

func balanceOf(t *testing.T, s *Service, id uuid.UUID) decimal.Decimal {
	var acct domain.Account
	require.NoError(t, s.DB.Where("account_id = ?", id).First(&acct).Error)
	return acct.Balance
}

func countRows(t *testing.T, s *Service, model interface{}) int64 {
	var n int64
	require.NoError(t, s.DB.Model(model).Count(&n).Error)
	return n
}

func buy(id uuid.UUID, sym, qty, amt string) SettleInput {
	return SettleInput{AccountID: id, Symbol: sym, Side: domain.SideBuy, Quantity: d(qty), Amount: d(amt)}
}

func sell(id uuid.UUID, sym, qty, amt string) SettleInput {
	return SettleInput{AccountID: id, Symbol: sym, Side: domain.SideSell, Quantity: d(qty), Amount: d(amt)}
}

func TestSettleBuyCreatesHoldingAndLedgerEntry(t *testing.T) {
	s, id := setupTradingTest(t)
	ctx := context.Background()

	in := buy(id, "aapl", "2", "300.50")
	in.CompanyName = "Apple Inc"
	in.Sector = "Technology"
	res, err := s.Settle(ctx, in)
	require.NoError(t, err)

	assert.True(t, res.Balance.Equal(d("699.50")))
	assert.True(t, res.HoldingQuantity.Equal(d("2")))
	assert.Equal(t, "AAPL", res.Transaction.Symbol)
	assert.True(t, res.Transaction.PricePerUnit.Equal(d("150.25")))
	assert.True(t, balanceOf(t, s, id).Equal(d("699.50")))

	var h domain.Holding
	require.NoError(t, s.DB.Where("account_id = ? AND symbol = ?", id, "AAPL").First(&h).Error)
	assert.True(t, h.Quantity.Equal(d("2")))
	assert.Equal(t, "Apple Inc", h.CompanyName)
	assert.Equal(t, "Technology", h.Sector)
	assert.Equal(t, int64(1), countRows(t, s, &domain.Transaction{}))
}

func TestSettleBuyAddsToExistingHolding(t *testing.T) {
	s, id := setupTradingTest(t)
	ctx := context.Background()

	_, err := s.Settle(ctx, buy(id, "MSFT", "1", "100"))
	require.NoError(t, err)
	res, err := s.Settle(ctx, buy(id, "MSFT", "3", "330"))
	require.NoError(t, err)

	assert.True(t, res.HoldingQuantity.Equal(d("4")))
	assert.Equal(t, int64(1), countRows(t, s, &domain.Holding{}))
	assert.True(t, balanceOf(t, s, id).Equal(d("570")))
}

func TestSettleInsufficientFundsLeavesStateUntouched(t *testing.T) {
	s, id := setupTradingTest(t)

	_, err := s.Settle(context.Background(), buy(id, "AAPL", "10", "1000.01"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.True(t, balanceOf(t, s, id).Equal(d("1000")))
	assert.Equal(t, int64(0), countRows(t, s, &domain.Holding{}))
	assert.Equal(t, int64(0), countRows(t, s, &domain.Transaction{}))
}

func TestSettleBuyExactBalanceIsAllowed(t *testing.T) {
	s, id := setupTradingTest(t)

	res, err := s.Settle(context.Background(), buy(id, "AAPL", "10", "1000"))
	require.NoError(t, err)
	assert.True(t, res.Balance.IsZero())
}

func TestSettleSellWithoutHolding(t *testing.T) {
	s, id := setupTradingTest(t)

	_, err := s.Settle(context.Background(), sell(id, "AAPL", "1", "100"))
	assert.ErrorIs(t, err, ErrInsufficientShares)
	assert.True(t, balanceOf(t, s, id).Equal(d("1000")))
	assert.Equal(t, int64(0), countRows(t, s, &domain.Transaction{}))
}

func TestSettleSellMoreThanHeldLeavesStateUntouched(t *testing.T) {
	s, id := setupTradingTest(t)
	ctx := context.Background()

	_, err := s.Settle(ctx, buy(id, "AAPL", "5", "500"))
	require.NoError(t, err)

	_, err = s.Settle(ctx, sell(id, "AAPL", "6", "600"))
	assert.ErrorIs(t, err, ErrInsufficientShares)

	assert.True(t, balanceOf(t, s, id).Equal(d("500")))
	assert.Equal(t, int64(1), countRows(t, s, &domain.Transaction{}))
	var h domain.Holding
	require.NoError(t, s.DB.Where("account_id = ? AND symbol = ?", id, "AAPL").First(&h).Error)
	assert.True(t, h.Quantity.Equal(d("5")))
}

func TestSettleRoundTripRestoresBalanceAndDeletesHolding(t *testing.T) {
	s, id := setupTradingTest(t)
	ctx := context.Background()

	_, err := s.Settle(ctx, buy(id, "TSLA", "3", "600"))
	require.NoError(t, err)
	res, err := s.Settle(ctx, sell(id, "tsla", "3", "600"))
	require.NoError(t, err)

	assert.True(t, res.HoldingQuantity.IsZero())
	assert.True(t, balanceOf(t, s, id).Equal(d("1000")))
	assert.Equal(t, int64(0), countRows(t, s, &domain.Holding{}))
	assert.Equal(t, int64(2), countRows(t, s, &domain.Transaction{}))
}

func TestSettlePartialSellKeepsAverageCost(t *testing.T) {
	s, id := setupTradingTest(t)
	ctx := context.Background()

	_, err := s.Settle(ctx, buy(id, "NVDA", "10", "100"))
	require.NoError(t, err)
	_, err = s.Settle(ctx, buy(id, "NVDA", "10", "200"))
	require.NoError(t, err)

	avg, err := s.AverageCost(ctx, id, "nvda")
	require.NoError(t, err)
	assert.True(t, avg.Equal(d("15")), avg.String())

	_, err = s.Settle(ctx, sell(id, "NVDA", "5", "100"))
	require.NoError(t, err)

	avg, err = s.AverageCost(ctx, id, "NVDA")
	require.NoError(t, err)
	assert.True(t, avg.Equal(d("15")), avg.String())

	all, err := s.AverageCosts(ctx, id)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	none, err := s.AverageCost(ctx, id, "AMD")
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}

func TestSettleRejectsInvalidInput(t *testing.T) {
	s, id := setupTradingTest(t)
	ctx := context.Background()

	_, err := s.Settle(ctx, buy(id, "AAPL", "0", "10"))
	assert.ErrorIs(t, err, ErrInvalidTrade)
	_, err = s.Settle(ctx, buy(id, "AAPL", "1", "-10"))
	assert.ErrorIs(t, err, ErrInvalidTrade)
	_, err = s.Settle(ctx, buy(id, "  ", "1", "10"))
	assert.ErrorIs(t, err, ErrInvalidTrade)

	in := buy(id, "AAPL", "1", "10")
	in.Side = "short"
	_, err = s.Settle(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidSide)

	assert.Equal(t, int64(0), countRows(t, s, &domain.Transaction{}))
}

func TestSettleUnknownAccount(t *testing.T) {
	s, _ := setupTradingTest(t)

	_, err := s.Settle(context.Background(), buy(uuid.New(), "AAPL", "1", "10"))
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSettlePersistenceFailureRollsBack(t *testing.T) {
	s, id := setupTradingTest(t)
	require.NoError(t, s.DB.Callback().Create().Before("gorm:create").Register("test:fail_ledger", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "Transactions" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	_, err := s.Settle(context.Background(), buy(id, "AAPL", "1", "100"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "disk full")

	assert.True(t, balanceOf(t, s, id).Equal(d("1000")))
	assert.Equal(t, int64(0), countRows(t, s, &domain.Holding{}))
	assert.Equal(t, int64(0), countRows(t, s, &domain.Transaction{}))
}

func TestSettleConcurrentBuysNeverOverdraw(t *testing.T) {
	s, id := setupTradingTest(t)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Settle(context.Background(), buy(id, "AAPL", "1", "100"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 10, rejected)
	assert.True(t, balanceOf(t, s, id).IsZero())

	var h domain.Holding
	require.NoError(t, s.DB.Where("account_id = ? AND symbol = ?", id, "AAPL").First(&h).Error)
	assert.True(t, h.Quantity.Equal(d("10")))
}

type fakePricer struct {
	quote      marketdata.Quote
	quoteErr   error
	profile    marketdata.Profile
	profileErr error
}

func (f *fakePricer) GetQuote(ctx context.Context, symbol string) (marketdata.Quote, error) {
	if f.quoteErr != nil {
		return marketdata.Quote{Symbol: symbol}, f.quoteErr
	}
	return f.quote, nil
}

func (f *fakePricer) GetProfile(ctx context.Context, symbol string) (marketdata.Profile, error) {
	return f.profile, f.profileErr
}

func TestBuyPricesFromQuoteAndStoresSnapshot(t *testing.T) {
	s, id := setupTradingTest(t)
	s.Market = &fakePricer{
		quote:   marketdata.Quote{Symbol: "AAPL", CurrentPrice: d("150.255"), PreviousClose: d("148"), FetchedAt: time.Unix(1700000000, 0).UTC()},
		profile: marketdata.Profile{Symbol: "AAPL", CompanyName: "Apple Inc", Sector: "Technology"},
	}

	res, err := s.Buy(context.Background(), id, "aapl", d("2"))
	require.NoError(t, err)
	assert.True(t, res.Transaction.Amount.Equal(d("300.51")), res.Transaction.Amount.String())
	assert.True(t, res.Balance.Equal(d("699.49")))
	assert.Contains(t, string(res.Transaction.QuoteSnapshot), `"price":"150.255"`)

	var h domain.Holding
	require.NoError(t, s.DB.Where("account_id = ?", id).First(&h).Error)
	assert.Equal(t, "Apple Inc", h.CompanyName)
}

func TestSellWithoutProfileStillSettles(t *testing.T) {
	s, id := setupTradingTest(t)
	ctx := context.Background()
	_, err := s.Settle(ctx, buy(id, "AAPL", "2", "200"))
	require.NoError(t, err)

	s.Market = &fakePricer{
		quote:      marketdata.Quote{Symbol: "AAPL", CurrentPrice: d("110"), PreviousClose: d("100")},
		profileErr: marketdata.ErrSymbolUnavailable,
	}
	res, err := s.Sell(ctx, id, "AAPL", d("1"))
	require.NoError(t, err)
	assert.True(t, res.Balance.Equal(d("910")))
	assert.True(t, res.HoldingQuantity.Equal(d("1")))
}

func TestBuyFailsWhenQuoteUnavailable(t *testing.T) {
	s, id := setupTradingTest(t)
	s.Market = &fakePricer{quoteErr: marketdata.ErrSymbolUnavailable}

	_, err := s.Buy(context.Background(), id, "ZZZZ", d("1"))
	assert.ErrorIs(t, err, marketdata.ErrSymbolUnavailable)

	s.Market = &fakePricer{quote: marketdata.Quote{Symbol: "ZZZZ"}}
	_, err = s.Buy(context.Background(), id, "ZZZZ", d("1"))
	assert.ErrorIs(t, err, marketdata.ErrSymbolUnavailable)
	assert.Equal(t, int64(0), countRows(t, s, &domain.Transaction{}))
}

func TestMarketOrderWithoutPricer(t *testing.T) {
	s, id := setupTradingTest(t)
	_, err := s.Buy(context.Background(), id, "AAPL", d("1"))
	assert.ErrorIs(t, err, ErrMarketUnavailable)
}
