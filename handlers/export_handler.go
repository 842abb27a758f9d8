package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"sp-export/middleware"
	"sp-export/models"
	"sp-export/services"
)

type ExportHandler struct {
	exports *services.ExportService
	queue   services.Queue
	results services.ResultStore
}

// NewExportHandler wires the HTTP surface. queue and results may be nil when
// Redis is not configured; the async routes then answer 503.
func NewExportHandler(exports *services.ExportService, queue services.Queue, results services.ResultStore) *ExportHandler {
	return &ExportHandler{exports: exports, queue: queue, results: results}
}

// Register mounts the export routes on an /api group.
func (h *ExportHandler) Register(api fiber.Router) {
	api.Post("/export/invoke", h.Invoke)
	api.Post("/export/enqueue", h.Enqueue)
	api.Get("/export/invocations/:id", h.GetInvocation)
}

// Invoke godoc
// @Summary Run the export
// @Description Call the stored procedure, render the workbook and upload it. Blocks until done.
// @Tags export
// @Accept json
// @Produce json
// @Param event body object false "Trigger event, ignored"
// @Success 200 {object} models.SuccessBody
// @Failure 500 {string} string
// @Router /export/invoke [post]
func (h *ExportHandler) Invoke(c *fiber.Ctx) error {
	resp := h.exports.Invoke(middleware.GetXRayContext(c), c.Body())

	if resp.StatusCode == fiber.StatusOK {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	}
	return c.Status(resp.StatusCode).SendString(resp.Body)
}

// Enqueue godoc
// @Summary Queue the export
// @Description Queue an export for the worker and return its invocation id
// @Tags export
// @Accept json
// @Produce json
// @Param event body object false "Trigger event, ignored"
// @Success 202 {object} models.EnqueueResponse
// @Failure 503 {object} map[string]string
// @Router /export/enqueue [post]
func (h *ExportHandler) Enqueue(c *fiber.Ctx) error {
	if h.queue == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "queue is not configured",
		})
	}

	// fiber reuses the body buffer after the handler returns
	event := append([]byte(nil), c.Body()...)

	inv, err := services.Enqueue(middleware.GetXRayContext(c), h.queue, h.results, uuid.NewString(), event)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(models.EnqueueResponse{
		InvocationID: inv.ID,
		Status:       inv.Status,
	})
}

// GetInvocation godoc
// @Summary Get invocation result
// @Description Get the stored record of a finished or pending invocation
// @Tags export
// @Produce json
// @Param id path string true "Invocation ID"
// @Success 200 {object} models.Invocation
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /export/invocations/{id} [get]
func (h *ExportHandler) GetInvocation(c *fiber.Ctx) error {
	if h.results == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "result store is not configured",
		})
	}

	id := c.Params("id")
	inv, err := h.results.Get(middleware.GetXRayContext(c), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if inv == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "invocation not found",
		})
	}

	return c.JSON(inv)
}

// Health reports liveness only; it does not touch the database.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "UP"})
}
