package market

import (
	"errors"
	"strings"

	mktsvc "papertrade-backend/internal/application/market"
	"papertrade-backend/internal/infrastructure/marketdata"
	"papertrade-backend/internal/middleware"
	"papertrade-backend/internal/pkg/response"
	"papertrade-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

const maxBrowseSymbols = 100

type Handlers struct {
	Service *mktsvc.Service
}

// Stocks GET /api/v1/market/stocks?symbols=AAPL,MSFT: best-effort batch of
// stock records; symbols that fail are listed under metadata.dropped.
func (h *Handlers) Stocks(c *fiber.Ctx) error {
	id, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	symbols, err := parseSymbols(c.Query("symbols"))
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	batch, err := h.Service.Browse(c.UserContext(), id, symbols)
	if err != nil {
		return err
	}
	records := batch.Records
	if records == nil {
		records = []mktsvc.StockRecord{}
	}
	return response.Success(c, "Stocks fetched", records, fiber.Map{
		"count":   len(records),
		"dropped": dropped(batch),
	})
}

// Stock GET /api/v1/market/stocks/:symbol
func (h *Handlers) Stock(c *fiber.Ctx) error {
	id, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	symbol := marketdata.NormalizeSymbol(c.Params("symbol"))
	if !validation.IsValidSymbol(symbol) {
		return response.Error(c, "Invalid symbol", fiber.StatusBadRequest, nil)
	}
	rec, err := h.Service.Stock(c.UserContext(), id, symbol)
	if err != nil {
		return marketError(c, err)
	}
	return response.Success(c, "Stock fetched", rec, nil)
}

// History GET /api/v1/market/stocks/:symbol/history?range=1mo
func (h *Handlers) History(c *fiber.Ctx) error {
	symbol := marketdata.NormalizeSymbol(c.Params("symbol"))
	if !validation.IsValidSymbol(symbol) {
		return response.Error(c, "Invalid symbol", fiber.StatusBadRequest, nil)
	}
	hist, err := h.Service.History(c.UserContext(), symbol, c.Query("range"))
	if err != nil {
		return marketError(c, err)
	}
	return response.Success(c, "History fetched", hist, nil)
}

func parseSymbols(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		sym := marketdata.NormalizeSymbol(part)
		if sym == "" {
			continue
		}
		if !validation.IsValidSymbol(sym) {
			return nil, errors.New("Invalid symbol: " + sym)
		}
		out = append(out, sym)
	}
	if len(out) > maxBrowseSymbols {
		return nil, errors.New("Too many symbols")
	}
	return out, nil
}

func dropped(b mktsvc.Batch) []mktsvc.Dropped {
	if b.Dropped == nil {
		return []mktsvc.Dropped{}
	}
	return b.Dropped
}

func marketError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, marketdata.ErrInvalidRange):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, marketdata.ErrProviderTimeout):
		return response.Error(c, "Market data provider timed out", fiber.StatusGatewayTimeout, nil)
	case errors.Is(err, marketdata.ErrSymbolUnavailable):
		return response.Error(c, "Symbol unavailable", fiber.StatusNotFound, nil)
	}
	return err
}
