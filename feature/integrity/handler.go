package integrity

import (
	"errors"

	"domain-manager/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/ledger", h.HandleLedgerCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/storage", h.HandleStorageCheck)
}

// HandleIntegrityCheck runs all checks. Unhealthy systems answer 503.
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	report := h.service.CheckAll(c.UserContext())
	if !report.Healthy() {
		l.Warn("Integrity check found problems")
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// HandleLedgerCheck checks the ledger.
func (h *Handler) HandleLedgerCheck(c *fiber.Ctx) error {
	report := h.service.CheckLedger(c.UserContext())
	if !report.Reachable {
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// HandleSchemaCheck verifies the SQL mirror schema.
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	return c.JSON(h.service.CheckSchema())
}

// HandleStorageCheck inspects the export bucket, creating it with ?fix=true.
func (h *Handler) HandleStorageCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckStorage(c.UserContext())
	if err != nil {
		return h.storageError(c, err)
	}

	if !report.Exists && fix {
		l.Info("Attempting to create export bucket", zap.String("bucket", report.Bucket))
		if err := h.service.FixStorage(c.UserContext()); err != nil {
			return h.storageError(c, err)
		}
		return c.JSON(fiber.Map{
			"status": "fixed",
			"bucket": report.Bucket,
		})
	}
	return c.JSON(report)
}

func (h *Handler) storageError(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrStorageDisabled) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	logger.WithRayID(h.service.logger, c).Error("Storage check failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
