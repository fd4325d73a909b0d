package watchlist

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	mktsvc "papertrade-backend/internal/application/market"
	watchsvc "papertrade-backend/internal/application/watchlist"
	"papertrade-backend/internal/domain"
	"papertrade-backend/internal/infrastructure/marketdata"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct{}

func (fakeGateway) GetQuote(ctx context.Context, symbol string) (marketdata.Quote, error) {
	if symbol == "GONE" {
		return marketdata.Quote{Symbol: symbol}, marketdata.ErrSymbolUnavailable
	}
	return marketdata.Quote{Symbol: symbol, CurrentPrice: decimal.NewFromInt(50), PreviousClose: decimal.NewFromInt(40)}, nil
}

func (fakeGateway) GetProfile(ctx context.Context, symbol string) (marketdata.Profile, error) {
	return marketdata.Profile{Symbol: symbol}, nil
}

func (fakeGateway) GetHistory(ctx context.Context, symbol, rng string) (marketdata.History, error) {
	return marketdata.History{}, marketdata.ErrSymbolUnavailable
}

func setupWatchlistApp(t *testing.T) (*fiber.App, *watchsvc.Service, domain.Account) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(domain.Models()...))

	acct := domain.Account{Username: "bob", PasswordHash: "x", Balance: decimal.NewFromInt(1000)}
	require.NoError(t, db.Create(&acct).Error)

	svc := &watchsvc.Service{DB: db}
	h := &Handlers{
		Service: svc,
		Market:  &mktsvc.Service{Coordinator: &mktsvc.Coordinator{Gateway: fakeGateway{}}, Watchlist: svc},
	}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("account", map[string]interface{}{"account_id": acct.AccountID.String()})
		return c.Next()
	})
	app.Get("/watchlist", h.View)
	app.Post("/watchlist", h.Add)
	app.Delete("/watchlist/:symbol", h.Remove)
	return app, svc, acct
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestAddViewRemove(t *testing.T) {
	app, svc, acct := setupWatchlistApp(t)

	code, body := do(t, app, "POST", "/watchlist", `{"symbol":"msft"}`)
	assert.Equal(t, 201, code)
	assert.Equal(t, "MSFT", body["data"].(map[string]interface{})["symbol"])

	code, _ = do(t, app, "POST", "/watchlist", `{"symbol":"MSFT"}`)
	assert.Equal(t, 201, code)

	code, _ = do(t, app, "POST", "/watchlist", `{"symbol":"GONE"}`)
	assert.Equal(t, 201, code)

	code, body = do(t, app, "GET", "/watchlist", "")
	assert.Equal(t, 200, code)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	rec := data[0].(map[string]interface{})
	assert.Equal(t, "MSFT", rec["symbol"])
	assert.Equal(t, true, rec["in_watchlist"])
	dropped := body["metadata"].(map[string]interface{})["dropped"].([]interface{})
	require.Len(t, dropped, 1)

	code, _ = do(t, app, "DELETE", "/watchlist/msft", "")
	assert.Equal(t, 200, code)
	ok, err := svc.Contains(context.Background(), acct.AccountID, "MSFT")
	require.NoError(t, err)
	assert.False(t, ok)

	code, _ = do(t, app, "DELETE", "/watchlist/MSFT", "")
	assert.Equal(t, 200, code)
}

func TestAdd_InvalidSymbol(t *testing.T) {
	app, _, _ := setupWatchlistApp(t)

	code, _ := do(t, app, "POST", "/watchlist", `{"symbol":""}`)
	assert.Equal(t, 400, code)

	code, _ = do(t, app, "POST", "/watchlist", `{"symbol":"not a symbol"}`)
	assert.Equal(t, 400, code)
}

func TestView_Empty(t *testing.T) {
	app, _, _ := setupWatchlistApp(t)
	code, body := do(t, app, "GET", "/watchlist", "")
	assert.Equal(t, 200, code)
	assert.Equal(t, []interface{}{}, body["data"])
}
