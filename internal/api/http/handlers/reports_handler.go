package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sales-crm/internal/service"
)

// ReportsHandler exposes summaries and file exports.
type ReportsHandler struct {
	reports *service.ReportService
	exports *service.ExportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService, exports *service.ExportService) *ReportsHandler {
	return &ReportsHandler{reports: reports, exports: exports}
}

// Sales handles GET /reports/sales.
func (h *ReportsHandler) Sales(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	summary, err := h.reports.SalesSummary(c.UserContext(), user, c.Query("from"), c.Query("to"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// Attendance handles GET /reports/attendance.
func (h *ReportsHandler) Attendance(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	stats, err := h.reports.AttendanceSummary(c.UserContext(), user, c.Query("from"), c.Query("to"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// ExportCSV handles GET /exports/:kind.
func (h *ReportsHandler) ExportCSV(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	file, err := h.exports.CSV(c.UserContext(), user, c.Params("kind"))
	if err != nil {
		return err
	}
	return sendFile(c, file)
}

// ExportSalesPDF handles GET /exports/sales.pdf.
func (h *ReportsHandler) ExportSalesPDF(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	file, err := h.exports.SalesPDF(c.UserContext(), user, c.Query("from"), c.Query("to"))
	if err != nil {
		return err
	}
	return sendFile(c, file)
}

func sendFile(c *fiber.Ctx, file *service.ExportFile) error {
	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Attachment(file.Filename)
	return c.Send(file.Data)
}
