package trading

import (
	"context"
	"testing"
	"time"

	tradesvc "papertrade-backend/internal/application/trading"
	"papertrade-backend/internal/domain"
	"papertrade-backend/internal/infrastructure/marketdata"
	"papertrade-backend/internal/infrastructure/quotecache"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type emptyProvider struct{}

func (emptyProvider) FetchQuote(_ context.Context, symbol string) (marketdata.Quote, error) {
	return marketdata.Quote{Symbol: symbol}, marketdata.ErrSymbolUnavailable
}

func (emptyProvider) FetchProfile(_ context.Context, symbol string) (marketdata.Profile, error) {
	return marketdata.Profile{Symbol: symbol}, marketdata.ErrSymbolUnavailable
}

func (emptyProvider) FetchHistory(_ context.Context, symbol, _ string) (marketdata.History, error) {
	return marketdata.History{}, marketdata.ErrSymbolUnavailable
}

func TestBuy_UnknownSymbolStays404WithRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	gateway := marketdata.NewGateway(emptyProvider{}, emptyProvider{}, emptyProvider{}, marketdata.Stores{
		Quotes:   quotecache.NewRedisStore[marketdata.Quote](rdb),
		Profiles: quotecache.NewRedisStore[marketdata.Profile](rdb),
		History:  quotecache.NewRedisStore[marketdata.History](rdb),
	}, quotecache.Config{FailureTTL: 30 * time.Second})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(domain.Models()...))
	acct := domain.Account{Username: "carol", PasswordHash: "x", Balance: decimal.NewFromInt(1000)}
	require.NoError(t, db.Create(&acct).Error)

	h := &Handlers{Service: &tradesvc.Service{DB: db, Market: gateway}}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("account", map[string]interface{}{"account_id": acct.AccountID.String()})
		return c.Next()
	})
	app.Post("/buy", h.Buy)

	var codes []int
	for i := 0; i < 2; i++ {
		resp, _ := order(t, app, "/buy", map[string]interface{}{"symbol": "ZZZZ", "quantity": "1"})
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{404, 404}, codes)
}
