package export

import (
	"errors"
	"strconv"

	"domain-manager/core/logger"
	"domain-manager/core/names"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for exports.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the export routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/export")
	group.Post("/", h.HandleExport)
	group.Get("/:account", h.HandleList)
	group.Get("/:account/latest", h.HandleLatest)
	group.Delete("/:account", h.HandlePrune)
}

// HandleExport stores the current snapshot.
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	obj, err := h.service.Export(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}

// HandleList lists the exports of an account.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	objects, err := h.service.List(c.UserContext(), c.Params("account"))
	if err != nil {
		return h.fail(c, err)
	}
	if objects == nil {
		objects = []Object{}
	}
	return c.JSON(objects)
}

// HandleLatest returns the most recent export of an account.
func (h *Handler) HandleLatest(c *fiber.Ctx) error {
	snap, err := h.service.Latest(c.UserContext(), c.Params("account"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(snap)
}

// HandlePrune keeps the newest ?keep=N exports of an account.
func (h *Handler) HandlePrune(c *fiber.Ctx) error {
	keep, err := strconv.Atoi(c.Query("keep", "10"))
	if err != nil {
		return h.fail(c, names.NewError(names.KindInvalidInput, "prune", "keep must be a number", err))
	}
	removed, err := h.service.Prune(c.UserContext(), c.Params("account"), keep)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var resp minio.ErrorResponse
	switch {
	case errors.Is(err, names.ErrInvalidAccount), errors.Is(err, names.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.As(err, &resp) && resp.Code == "NoSuchKey":
		status = fiber.StatusNotFound
	}
	if status == fiber.StatusInternalServerError {
		logger.WithRayID(h.service.logger, c).Error("Export request failed", zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
