package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cs-ops-service/internal/api/dto"
	"github.com/spec-kit/cs-ops-service/internal/repository"
	"github.com/spec-kit/cs-ops-service/internal/service"
	"github.com/spec-kit/cs-ops-service/internal/worker"
	apperrors "github.com/spec-kit/cs-ops-service/pkg/util"
)

// AdminHandler exposes threshold configuration and operational sweeps.
type AdminHandler struct {
	segmentation *service.SegmentationService
	ongoing      *service.OngoingService
	config       repository.SegmentConfigRepository
	syncWorker   *worker.SyncWorker
}

// NewAdminHandler constructs handler.
func NewAdminHandler(segmentation *service.SegmentationService, ongoing *service.OngoingService, configRepo repository.SegmentConfigRepository, syncWorker *worker.SyncWorker) *AdminHandler {
	return &AdminHandler{
		segmentation: segmentation,
		ongoing:      ongoing,
		config:       configRepo,
		syncWorker:   syncWorker,
	}
}

// GetSegmentConfig GET /admin/segment-config.
func (h *AdminHandler) GetSegmentConfig(c *fiber.Ctx) error {
	cfg, err := h.config.Get(c.Context())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": cfg})
}

// UpdateSegmentConfig PUT /admin/segment-config.
func (h *AdminHandler) UpdateSegmentConfig(c *fiber.Ctx) error {
	var req dto.SegmentConfigUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.config.Save(c.Context(), req.Override()); err != nil {
		return apperrors.MapError(err)
	}
	cfg, err := h.config.Get(c.Context())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": cfg})
}

// RecomputeAll POST /admin/recompute.
func (h *AdminHandler) RecomputeAll(c *fiber.Ctx) error {
	summary, err := h.segmentation.RecomputeAll(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// SyncTracker POST /admin/sync.
func (h *AdminHandler) SyncTracker(c *fiber.Ctx) error {
	summary, err := h.ongoing.SyncExternalTasks(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// WorkerStatus GET /admin/worker.
func (h *AdminHandler) WorkerStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{
		"last_sync":      h.syncWorker.LastSync(),
		"last_recompute": h.syncWorker.LastRecompute(),
	}})
}
