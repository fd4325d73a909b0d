package watchlist

import (
	"errors"

	mktsvc "papertrade-backend/internal/application/market"
	watchsvc "papertrade-backend/internal/application/watchlist"
	"papertrade-backend/internal/infrastructure/marketdata"
	"papertrade-backend/internal/middleware"
	"papertrade-backend/internal/pkg/response"
	"papertrade-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *watchsvc.Service
	Market  *mktsvc.Service
}

// View GET /api/v1/watchlist: stock records for every watched symbol.
func (h *Handlers) View(c *fiber.Ctx) error {
	id, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	batch, err := h.Market.WatchlistView(c.UserContext(), id)
	if err != nil {
		return err
	}
	records := batch.Records
	if records == nil {
		records = []mktsvc.StockRecord{}
	}
	dropped := batch.Dropped
	if dropped == nil {
		dropped = []mktsvc.Dropped{}
	}
	return response.Success(c, "Watchlist fetched", records, fiber.Map{"dropped": dropped})
}

// Add POST /api/v1/watchlist {symbol}
func (h *Handlers) Add(c *fiber.Ctx) error {
	id, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		Symbol string `json:"symbol"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "symbol is required", fiber.StatusBadRequest, nil)
	}
	symbol := marketdata.NormalizeSymbol(body.Symbol)
	if !validation.IsValidSymbol(symbol) {
		return response.Error(c, "Invalid symbol", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Add(c.UserContext(), id, symbol); err != nil {
		if errors.Is(err, watchsvc.ErrSymbolRequired) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		return err
	}
	return response.SuccessCreated(c, "Added to watchlist", fiber.Map{"symbol": symbol}, nil)
}

// Remove DELETE /api/v1/watchlist/:symbol
func (h *Handlers) Remove(c *fiber.Ctx) error {
	id, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	symbol := marketdata.NormalizeSymbol(c.Params("symbol"))
	if err := h.Service.Remove(c.UserContext(), id, symbol); err != nil {
		if errors.Is(err, watchsvc.ErrSymbolRequired) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		return err
	}
	return response.Success(c, "Removed from watchlist", fiber.Map{"symbol": symbol}, nil)
}
