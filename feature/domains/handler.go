package domains

import (
	"errors"

	"domain-manager/core/logger"
	"domain-manager/core/names"
	"domain-manager/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for domains.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type accountRequest struct {
	Account string `json:"account"`
}

type recordRequest struct {
	Value string `json:"value"`
}

// RegisterRoutes registers the domain routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/domains")
	group.Get("/", h.HandleSnapshot)
	group.Get("/stream", h.HandleStream)
	group.Get("/catalog", h.HandleCatalog)
	group.Put("/account", h.HandleChangeAccount)
	group.Post("/reload", h.HandleReload)
	group.Get("/:id", h.HandleDetail)
	group.Put("/:id/records/:key", h.HandleSetRecord)
	group.Delete("/:id/records/:key", h.HandleDeleteRecord)
	group.Post("/:id/records/:key/retry", h.HandleRetry)
	group.Delete("/:id/edits/:key", h.HandleDismiss)
}

// HandleSnapshot returns the current engine snapshot.
func (h *Handler) HandleSnapshot(c *fiber.Ctx) error {
	return c.JSON(h.service.Snapshot())
}

// HandleCatalog returns the supported record keys in display order.
func (h *Handler) HandleCatalog(c *fiber.Ctx) error {
	return c.JSON(names.Catalog)
}

// HandleChangeAccount switches the engine to another account.
func (h *Handler) HandleChangeAccount(c *fiber.Ctx) error {
	var req accountRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, names.NewError(names.KindInvalidInput, "changeAccount", "malformed body", err))
	}
	if err := h.service.ChangeAccount(c.UserContext(), req.Account); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"account": names.NormalizeAddress(req.Account),
	})
}

// HandleReload restarts the ownership load of the current account.
func (h *Handler) HandleReload(c *fiber.Ctx) error {
	if err := h.service.Reload(c.UserContext()); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// HandleDetail fetches metadata and records of one name.
func (h *Handler) HandleDetail(c *fiber.Ctx) error {
	detail, err := h.service.Detail(c.UserContext(), names.EntityID(c.Params("id")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(detail)
}

// HandleSetRecord submits a set intent.
func (h *Handler) HandleSetRecord(c *fiber.Ctx) error {
	var req recordRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, names.NewError(names.KindInvalidInput, "setRecord", "malformed body", err))
	}
	edit, err := h.service.SetRecord(c.UserContext(), names.EntityID(c.Params("id")), names.RecordKey(c.Params("key")), req.Value)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(edit)
}

// HandleDeleteRecord submits a delete intent.
func (h *Handler) HandleDeleteRecord(c *fiber.Ctx) error {
	edit, err := h.service.DeleteRecord(c.UserContext(), names.EntityID(c.Params("id")), names.RecordKey(c.Params("key")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(edit)
}

// HandleRetry re-submits a failed edit.
func (h *Handler) HandleRetry(c *fiber.Ctx) error {
	edit, err := h.service.Retry(c.UserContext(), names.EntityID(c.Params("id")), names.RecordKey(c.Params("key")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(edit)
}

// HandleDismiss clears a settled edit.
func (h *Handler) HandleDismiss(c *fiber.Ctx) error {
	if err := h.service.Dismiss(names.EntityID(c.Params("id")), names.RecordKey(c.Params("key"))); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	l := logger.WithRayID(h.service.logger, c)
	if status >= fiber.StatusInternalServerError {
		l.Error("Domain request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		l.Debug("Domain request rejected", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, reconcile.ErrUnknownEdit):
		return fiber.StatusNotFound
	case errors.Is(err, reconcile.ErrNotRetryable), errors.Is(err, reconcile.ErrEditActive):
		return fiber.StatusConflict
	}
	switch names.KindOf(err) {
	case names.KindInvalidAccount, names.KindInvalidInput:
		return fiber.StatusBadRequest
	case names.KindTimeout:
		return fiber.StatusGatewayTimeout
	case names.KindRemoteRejected:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
