package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sales-crm/internal/api/dto"
	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/service"
)

// AttendanceHandler exposes attendance tracking.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// CheckIn handles POST /attendance/check-in.
func (h *AttendanceHandler) CheckIn(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	rec, err := h.attendance.CheckIn(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": rec})
}

// CheckOut handles POST /attendance/check-out.
func (h *AttendanceHandler) CheckOut(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	rec, err := h.attendance.CheckOut(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rec})
}

// Mark handles POST /attendance/mark.
func (h *AttendanceHandler) Mark(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.MarkAttendanceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rec, err := h.attendance.Mark(c.UserContext(), user, req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rec})
}

// List handles GET /attendance.
func (h *AttendanceHandler) List(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	filter := service.AttendanceFilter{
		UserID: c.Query("userId"),
		From:   c.Query("from"),
		To:     c.Query("to"),
		Status: domain.AttendanceStatus(c.Query("status")),
	}
	records, err := h.attendance.List(c.UserContext(), user, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": records})
}
