package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cs-ops-service/internal/api/dto"
	"github.com/spec-kit/cs-ops-service/internal/auth"
	"github.com/spec-kit/cs-ops-service/internal/service"
	apperrors "github.com/spec-kit/cs-ops-service/pkg/util"
)

// CyclesHandler manages ongoing-cycle endpoints.
type CyclesHandler struct {
	service *service.OngoingService
}

// NewCyclesHandler constructs handler.
func NewCyclesHandler(ongoingService *service.OngoingService) *CyclesHandler {
	return &CyclesHandler{service: ongoingService}
}

// AssignCycle POST /customers/:id/cycles.
func (h *CyclesHandler) AssignCycle(c *fiber.Ctx) error {
	var req dto.AssignCycleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	actions := make([]service.ActionTemplate, 0, len(req.Actions))
	for _, entry := range req.Actions {
		actions = append(actions, service.ActionTemplate{Name: entry.Name, DayOffset: entry.DayOffset})
	}
	input := service.AssignCycleInput{
		Segment: req.Segment,
		Cadence: req.Cadence,
		Actions: actions,
		Mirror:  req.Mirror,
	}
	if req.StartDate != nil {
		input.StartDate = *req.StartDate
	}

	cycle, err := h.service.AssignCycle(c.Context(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCycleResponse(cycle)})
}

// ActiveCycle GET /customers/:id/cycles/active.
func (h *CyclesHandler) ActiveCycle(c *fiber.Ctx) error {
	cycle, err := h.service.ActiveCycle(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if cycle == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": dto.NewCycleResponse(cycle)})
}

// ListCycles GET /customers/:id/cycles.
func (h *CyclesHandler) ListCycles(c *fiber.Ctx) error {
	limit := defaultPageSize
	offset := 0
	if raw := c.Query("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			if size > maxPageSize {
				size = maxPageSize
			}
			limit = size
		}
	}
	if raw := c.Query("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 1 {
			offset = (page - 1) * limit
		}
	}

	cycles, err := h.service.ListCycles(c.Context(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCycleListResponse(cycles)})
}

// UpdateAction PATCH /customers/:id/cycles/:cycleId/actions/:index.
func (h *CyclesHandler) UpdateAction(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil || index < 0 {
		return apperrors.NewValidationError("invalid action index", nil)
	}
	var req dto.UpdateActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.service.UpdateAction(c.Context(), c.Params("id"), c.Params("cycleId"), index, req.Status, req.Notes, principal.Agent.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// CancelCycle POST /customers/:id/cycles/:cycleId/cancel.
func (h *CyclesHandler) CancelCycle(c *fiber.Ctx) error {
	if err := h.service.CancelCycle(c.Context(), c.Params("id"), c.Params("cycleId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"cancelled": true}})
}
