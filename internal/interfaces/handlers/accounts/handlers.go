package accounts

import (
	"errors"

	acctsvc "papertrade-backend/internal/application/accounts"
	"papertrade-backend/internal/middleware"
	"papertrade-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *acctsvc.Service
}

// Get GET /api/v1/accounts/me: the logged-in account with its cash balance.
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	account, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, acctsvc.ErrAccountNotFound) {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return err
	}
	return response.Success(c, "Account fetched", account, nil)
}
