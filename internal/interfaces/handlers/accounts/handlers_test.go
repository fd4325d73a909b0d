package accounts

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	acctsvc "papertrade-backend/internal/application/accounts"
	"papertrade-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAccountsApp(t *testing.T, accountID string) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Account{}))

	h := &Handlers{Service: &acctsvc.Service{DB: db}}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if accountID != "" {
			c.Locals("account", map[string]interface{}{"account_id": accountID})
		}
		return c.Next()
	})
	app.Get("/me", h.Get)
	return app, db
}

func TestGet_ReturnsBalance(t *testing.T) {
	acct := domain.Account{AccountID: uuid.New(), Username: "alice", PasswordHash: "secret", Balance: decimal.RequireFromString("1234.5")}
	app, db := setupAccountsApp(t, acct.AccountID.String())
	require.NoError(t, db.Create(&acct).Error)

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "secret")
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "alice", data["username"])
	assert.Equal(t, "1234.5", data["balance"])
}

func TestGet_Unauthenticated(t *testing.T) {
	app, _ := setupAccountsApp(t, "")
	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGet_UnknownAccount(t *testing.T) {
	app, _ := setupAccountsApp(t, uuid.New().String())
	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
