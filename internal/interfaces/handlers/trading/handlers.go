package trading

import (
	"errors"

	tradesvc "papertrade-backend/internal/application/trading"
	"papertrade-backend/internal/infrastructure/marketdata"
	"papertrade-backend/internal/middleware"
	"papertrade-backend/internal/pkg/response"
	"papertrade-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *tradesvc.Service
}

type orderRequest struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Buy POST /api/v1/trading/buy {symbol, quantity}: market buy at the current quote.
func (h *Handlers) Buy(c *fiber.Ctx) error {
	return h.order(c, true)
}

// Sell POST /api/v1/trading/sell {symbol, quantity}: market sell at the current quote.
func (h *Handlers) Sell(c *fiber.Ctx) error {
	return h.order(c, false)
}

func (h *Handlers) order(c *fiber.Ctx, buy bool) error {
	id, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req orderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	req.Symbol = marketdata.NormalizeSymbol(req.Symbol)
	if !validation.IsValidSymbol(req.Symbol) {
		return response.Error(c, "Invalid symbol", fiber.StatusBadRequest, nil)
	}
	if !req.Quantity.IsPositive() {
		return response.Error(c, "Quantity must be a positive number", fiber.StatusBadRequest, nil)
	}

	var (
		res *tradesvc.SettleResult
		err error
	)
	if buy {
		res, err = h.Service.Buy(c.UserContext(), id, req.Symbol, req.Quantity)
	} else {
		res, err = h.Service.Sell(c.UserContext(), id, req.Symbol, req.Quantity)
	}
	if err != nil {
		return tradeError(c, err)
	}

	msg := "Sell order settled"
	if buy {
		msg = "Buy order settled"
	}
	return response.Success(c, msg, res, nil)
}

func tradeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, tradesvc.ErrInvalidTrade), errors.Is(err, tradesvc.ErrInvalidSide):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, tradesvc.ErrInsufficientFunds), errors.Is(err, tradesvc.ErrInsufficientShares):
		return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, nil)
	case errors.Is(err, tradesvc.ErrAccountNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, marketdata.ErrSymbolUnavailable):
		return response.Error(c, "Symbol unavailable", fiber.StatusNotFound, nil)
	case errors.Is(err, marketdata.ErrProviderTimeout):
		return response.Error(c, "Market data provider timed out", fiber.StatusGatewayTimeout, nil)
	case errors.Is(err, tradesvc.ErrMarketUnavailable):
		return response.Error(c, err.Error(), fiber.StatusServiceUnavailable, nil)
	}
	return err
}
