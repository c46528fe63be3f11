package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sales-crm/internal/api/dto"
	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/service"
)

// SalesHandler exposes sales records.
type SalesHandler struct {
	sales *service.SalesService
}

// NewSalesHandler constructs handler.
func NewSalesHandler(sales *service.SalesService) *SalesHandler {
	return &SalesHandler{sales: sales}
}

// List handles GET /sales.
func (h *SalesHandler) List(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	filter := service.SalesFilter{
		UserID:        c.Query("userId"),
		From:          c.Query("from"),
		To:            c.Query("to"),
		DealStage:     domain.DealStage(c.Query("dealStage")),
		PaymentStatus: domain.PaymentStatus(c.Query("paymentStatus")),
		Search:        c.Query("q"),
	}
	records, err := h.sales.List(c.UserContext(), user, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": records})
}

// Get handles GET /sales/:id.
func (h *SalesHandler) Get(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	rec, err := h.sales.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rec})
}

// Create handles POST /sales.
func (h *SalesHandler) Create(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.SaleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rec, err := h.sales.Create(c.UserContext(), user, req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": rec})
}

// Update handles PUT /sales/:id.
func (h *SalesHandler) Update(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.SaleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rec, err := h.sales.Update(c.UserContext(), user, c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rec})
}

// Delete handles DELETE /sales/:id.
func (h *SalesHandler) Delete(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.sales.Delete(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
