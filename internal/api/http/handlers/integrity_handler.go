package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sales-crm/internal/service"
)

// IntegrityHandler exposes the data audit and repair.
type IntegrityHandler struct {
	integrity *service.IntegrityService
}

// NewIntegrityHandler constructs handler.
func NewIntegrityHandler(integrity *service.IntegrityService) *IntegrityHandler {
	return &IntegrityHandler{integrity: integrity}
}

// Validate handles GET /integrity/validate.
func (h *IntegrityHandler) Validate(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	report, err := h.integrity.Validate(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// Repair handles POST /integrity/repair.
func (h *IntegrityHandler) Repair(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	outcome, err := h.integrity.Repair(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": outcome})
}
