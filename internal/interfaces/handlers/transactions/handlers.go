package transactions

import (
	txsvc "papertrade-backend/internal/application/transactions"
	"papertrade-backend/internal/middleware"
	"papertrade-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *txsvc.Service
}

// GetTransactions GET /api/v1/transactions?symbol=&limit=&offset=: ledger, newest first.
func (h *Handlers) GetTransactions(c *fiber.Ctx) error {
	id, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	page, err := h.Service.History(c.UserContext(), id, txsvc.Query{
		Symbol: c.Query("symbol"),
		Limit:  c.QueryInt("limit", txsvc.DefaultLimit),
		Offset: c.QueryInt("offset", 0),
	})
	if err != nil {
		return err
	}
	return response.Success(c, "Transactions fetched", page.Transactions, fiber.Map{
		"total":  page.Total,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}
