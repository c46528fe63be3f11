package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sales-crm/internal/api/dto"
	"github.com/spec-kit/sales-crm/internal/service"
)

// EmployeesHandler exposes employee management.
type EmployeesHandler struct {
	employees *service.EmployeeService
}

// NewEmployeesHandler constructs handler.
func NewEmployeesHandler(employees *service.EmployeeService) *EmployeesHandler {
	return &EmployeesHandler{employees: employees}
}

// List handles GET /employees.
func (h *EmployeesHandler) List(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	users, err := h.employees.List(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUsers(users)})
}

// Get handles GET /employees/:id.
func (h *EmployeesHandler) Get(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	found, err := h.employees.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUser(*found)})
}

// Create handles POST /employees.
func (h *EmployeesHandler) Create(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CreateEmployeeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.employees.Add(c.UserContext(), user, req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromUser(*created)})
}

// Update handles PATCH /employees/:id.
func (h *EmployeesHandler) Update(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.employees.UpdateProfile(c.UserContext(), user, c.Params("id"), req.ToPatch())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUser(*updated)})
}

// Delete handles DELETE /employees/:id.
func (h *EmployeesHandler) Delete(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.employees.Delete(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Team handles GET /employees/:id/team.
func (h *EmployeesHandler) Team(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	team, err := h.employees.Team(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTeam(team)})
}

// Structure handles GET /employees/structure.
func (h *EmployeesHandler) Structure(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	structure, err := h.employees.ReportingStructure(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromStructure(structure)})
}

// SetTarget handles PUT /employees/:id/target.
func (h *EmployeesHandler) SetTarget(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.TargetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	target, err := h.employees.SetTarget(c.UserContext(), user, c.Params("id"), req.Month, req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": target})
}

// Targets handles GET /targets.
func (h *EmployeesHandler) Targets(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	targets, err := h.employees.Targets(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": targets})
}
