package holdings

import (
	"errors"

	holdsvc "papertrade-backend/internal/application/holdings"
	"papertrade-backend/internal/middleware"
	"papertrade-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *holdsvc.Service
}

// Holdings GET /api/v1/holdings: every position valued at the current price.
func (h *Handlers) Holdings(c *fiber.Ctx) error {
	id, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	vals, err := h.Service.ValueHoldings(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Holdings fetched", vals, fiber.Map{"count": len(vals)})
}

// Sectors GET /api/v1/holdings/sectors
func (h *Handlers) Sectors(c *fiber.Ctx) error {
	id, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	slices, err := h.Service.SectorDistribution(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Sector distribution fetched", slices, nil)
}

// Portfolio GET /api/v1/holdings/portfolio: summary, positions and sectors.
func (h *Handlers) Portfolio(c *fiber.Ctx) error {
	id, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	p, err := h.Service.Portfolio(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, holdsvc.ErrAccountNotFound) {
			return response.Error(c, "Account not found", fiber.StatusNotFound, nil)
		}
		return err
	}
	return response.Success(c, "Portfolio fetched", p, nil)
}
