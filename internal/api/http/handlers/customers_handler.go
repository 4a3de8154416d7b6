package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cs-ops-service/internal/api/dto"
	"github.com/spec-kit/cs-ops-service/internal/domain"
	"github.com/spec-kit/cs-ops-service/internal/repository"
	"github.com/spec-kit/cs-ops-service/internal/service"
	apperrors "github.com/spec-kit/cs-ops-service/pkg/util"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// CustomersHandler manages customer, bug and usage endpoints.
type CustomersHandler struct {
	customers    *service.CustomerService
	segmentation *service.SegmentationService
}

// NewCustomersHandler constructs handler.
func NewCustomersHandler(customers *service.CustomerService, segmentation *service.SegmentationService) *CustomersHandler {
	return &CustomersHandler{customers: customers, segmentation: segmentation}
}

// CreateCustomer POST /customers.
func (h *CustomersHandler) CreateCustomer(c *fiber.Ctx) error {
	var req dto.CreateCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	customer, err := h.customers.CreateCustomer(c.Context(), service.CustomerCreateInput{
		Name:          req.Name,
		AccountType:   req.AccountType,
		UserCount:     req.UserCount,
		LinkedTeamIDs: req.LinkedTeamIDs,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCustomerSummary(customer)})
}

// ListCustomers GET /customers.
func (h *CustomersHandler) ListCustomers(c *fiber.Ctx) error {
	filter := parseCustomerQuery(c)
	customers, err := h.customers.ListCustomers(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.CustomerSummary, 0, len(customers))
	for i := range customers {
		items = append(items, dto.NewCustomerSummary(&customers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetCustomer GET /customers/:id.
func (h *CustomersHandler) GetCustomer(c *fiber.Ctx) error {
	customer, threads, err := h.customers.GetCustomer(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCustomerDetailResponse(customer, threads)})
}

// Recompute POST /customers/:id/recompute.
func (h *CustomersHandler) Recompute(c *fiber.Ctx) error {
	outcome, err := h.segmentation.RecomputeCustomer(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": outcome})
}

// OverrideTier PUT /customers/:id/tier-override.
func (h *CustomersHandler) OverrideTier(c *fiber.Ctx) error {
	var req dto.OverrideTierRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.segmentation.OverrideTier(c.Context(), c.Params("id"), req.Tier, req.Reason); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"overridden": true}})
}

// ReleaseOverride DELETE /customers/:id/tier-override.
func (h *CustomersHandler) ReleaseOverride(c *fiber.Ctx) error {
	if err := h.segmentation.ReleaseOverride(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"released": true}})
}

// AddBug POST /customers/:id/bugs.
func (h *CustomersHandler) AddBug(c *fiber.Ctx) error {
	var req dto.CreateBugRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	bug, err := h.customers.AddBug(c.Context(), c.Params("id"), service.BugInput{
		Title:    req.Title,
		Priority: req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": bug})
}

// UpdateBug PATCH /customers/:id/bugs/:bugId.
func (h *CustomersHandler) UpdateBug(c *fiber.Ctx) error {
	var req dto.UpdateBugRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	bug, err := h.customers.UpdateBugStatus(c.Context(), c.Params("id"), c.Params("bugId"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bug})
}

// RecordUsage POST /customers/:id/usage.
func (h *CustomersHandler) RecordUsage(c *fiber.Ctx) error {
	var req dto.RecordUsageDayRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	day := domain.UsageDay{
		Day:           req.Day,
		Logins:        req.Logins,
		PiecesCreated: req.PiecesCreated,
		Downloads:     req.Downloads,
		AIUsage:       req.AIUsage,
	}
	if err := h.customers.RecordUsageDay(c.Context(), c.Params("id"), day); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"recorded": true}})
}

// GetUsage GET /customers/:id/usage.
func (h *CustomersHandler) GetUsage(c *fiber.Ctx) error {
	metrics, err := h.customers.Usage30d(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": metrics})
}

func parseCustomerQuery(c *fiber.Ctx) repository.CustomerFilter {
	filter := repository.CustomerFilter{Limit: defaultPageSize}

	if raw := c.Query("status"); raw != "" {
		status := domain.CustomerStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("segmento"); raw != "" {
		tier := domain.HealthTier(raw)
		filter.Tier = &tier
	}
	if raw := c.Query("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			if size > maxPageSize {
				size = maxPageSize
			}
			filter.Limit = size
		}
	}
	if raw := c.Query("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 1 {
			filter.Offset = (page - 1) * filter.Limit
		}
	}
	return filter
}
