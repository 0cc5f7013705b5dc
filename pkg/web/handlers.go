// Package web provides the HTTP management API for trigger registrations
// and plugins, plus the public webhook ingestion endpoint.
package web

import (
	"net/http"
	"time"

	"github.com/flowforge/trigger/pkg/registry"
	"github.com/flowforge/trigger/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// userIDHeader carries the upstream-authenticated caller identity.
const userIDHeader = "X-User-Id"

type APIHandlers struct {
	triggerService *services.Trigger
	registry       *registry.Registry
	pluginsPath    string
	validator      *validator.Validate
}

func NewAPIHandlers(
	triggerService *services.Trigger,
	reg *registry.Registry,
	pluginsPath string,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		triggerService: triggerService,
		registry:       reg,
		pluginsPath:    pluginsPath,
		validator:      validate,
	}
}

// RegisterRoutes wires the management routes onto the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	t := api.Group("/triggers")
	t.Post("/", h.CreateTrigger)
	t.Get("/", h.ListTriggers)
	t.Get("/workflow/:workflowId", h.ListWorkflowTriggers)
	t.Post("/manual/:workflowId", h.ManualFire)
	t.Post("/schedule/:scheduleName", h.FireSchedule)
	t.Get("/:id", h.GetTrigger)
	t.Put("/:id", h.UpdateTrigger)
	t.Delete("/:id", h.DeleteTrigger)

	p := api.Group("/plugins")
	p.Get("/", h.ListPlugins)
	p.Get("/status", h.AllPluginStatus)
	p.Post("/reload", h.ReloadPlugins)
	p.Get("/:type", h.GetPlugin)
	p.Get("/:type/status", h.PluginStatus)
	p.Post("/:type/reload", h.ReloadPlugin)
	p.Post("/:type/start", h.StartPluginTrigger)
	p.Post("/:type/stop", h.StopPluginTrigger)
	p.Post("/:type/validate", h.ValidatePluginConfig)

	app.Get("/health", h.HealthCheck)
}

// userID extracts the authenticated caller, or empty when the header is
// missing.
func userID(c fiber.Ctx) string {
	return c.Get(userIDHeader)
}

func (h *APIHandlers) CreateTrigger(c fiber.Ctx) error {
	caller := userID(c)
	if caller == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	var req CreateTriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.triggerService.Create(c.Context(), services.CreateTriggerRequest{
		WorkflowID:    req.WorkflowID,
		UserID:        caller,
		TriggerType:   req.TriggerType,
		Configuration: req.Configuration,
		Enabled:       req.Enabled,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) ListTriggers(c fiber.Ctx) error {
	caller := userID(c)
	if caller == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	triggers, err := h.triggerService.ListByUser(c.Context(), caller)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(triggers)
}

func (h *APIHandlers) GetTrigger(c fiber.Ctx) error {
	caller := userID(c)
	if caller == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	trigger, err := h.triggerService.Get(c.Context(), caller, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(trigger)
}

func (h *APIHandlers) UpdateTrigger(c fiber.Ctx) error {
	caller := userID(c)
	if caller == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	var req UpdateTriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.triggerService.Update(c.Context(), caller, c.Params("id"), services.UpdateTriggerRequest{
		Configuration: req.Configuration,
		Enabled:       req.Enabled,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteTrigger(c fiber.Ctx) error {
	caller := userID(c)
	if caller == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	if err := h.triggerService.Delete(c.Context(), caller, c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ListWorkflowTriggers(c fiber.Ctx) error {
	caller := userID(c)
	if caller == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	triggers, err := h.triggerService.ListByWorkflow(c.Context(), caller, c.Params("workflowId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(triggers)
}

// ManualFire publishes a manual event synchronously: a 200 means the broker
// acknowledged the event.
func (h *APIHandlers) ManualFire(c fiber.Ctx) error {
	caller := userID(c)
	if caller == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	var req FireRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	event, err := h.triggerService.ManualFire(c.Context(), caller, c.Params("workflowId"), req.Payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(FireResponse{Success: true, EventID: event.EventID})
}

func (h *APIHandlers) FireSchedule(c fiber.Ctx) error {
	caller := userID(c)
	if caller == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	var req FireRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	event, err := h.triggerService.FireNamedSchedule(c.Context(), c.Params("scheduleName"), req.Payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(FireResponse{Success: true, EventID: event.EventID})
}

func (h *APIHandlers) ListPlugins(c fiber.Ctx) error {
	if userID(c) == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	plugins := h.registry.Plugins()
	infos := make([]PluginInfo, 0, len(plugins))

	for _, plugin := range plugins {
		infos = append(infos, PluginInfo{
			Type:         plugin.Type(),
			Name:         plugin.Name(),
			Description:  plugin.Description(),
			ConfigSchema: plugin.ConfigSchema(),
		})
	}

	return c.JSON(infos)
}

func (h *APIHandlers) GetPlugin(c fiber.Ctx) error {
	if userID(c) == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	plugin, err := h.registry.Plugin(c.Params("type"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(PluginInfo{
		Type:         plugin.Type(),
		Name:         plugin.Name(),
		Description:  plugin.Description(),
		ConfigSchema: plugin.ConfigSchema(),
	})
}

func (h *APIHandlers) PluginStatus(c fiber.Ctx) error {
	if userID(c) == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	plugin, err := h.registry.Plugin(c.Params("type"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(plugin.Status())
}

func (h *APIHandlers) AllPluginStatus(c fiber.Ctx) error {
	if userID(c) == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	return c.JSON(h.registry.Status())
}

func (h *APIHandlers) ReloadPlugins(c fiber.Ctx) error {
	if userID(c) == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	if err := h.registry.ReloadAll(h.pluginsPath); err != nil {
		return internalError(c, err)
	}

	return c.JSON(h.registry.Status())
}

func (h *APIHandlers) ReloadPlugin(c fiber.Ctx) error {
	if userID(c) == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	if err := h.registry.ReloadOne(h.pluginsPath, c.Params("type")); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.registry.Status())
}

func (h *APIHandlers) StartPluginTrigger(c fiber.Ctx) error {
	if userID(c) == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	workflowID := c.Query("workflowId")
	if workflowID == "" {
		return badRequest(c, "workflowId query parameter is required")
	}

	var req ValidateConfigRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	config := req.Configuration
	if config == nil {
		config = map[string]any{}
	}

	if err := h.registry.StartTrigger(c.Params("type"), workflowID, config); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "workflowId": workflowID})
}

func (h *APIHandlers) StopPluginTrigger(c fiber.Ctx) error {
	if userID(c) == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	workflowID := c.Query("workflowId")
	if workflowID == "" {
		return badRequest(c, "workflowId query parameter is required")
	}

	if err := h.registry.StopTrigger(c.Params("type"), workflowID); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "workflowId": workflowID})
}

func (h *APIHandlers) ValidatePluginConfig(c fiber.Ctx) error {
	if userID(c) == "" {
		return unauthorized(c, userIDHeader+" header is required")
	}

	plugin, err := h.registry.Plugin(c.Params("type"))
	if err != nil {
		return handleServiceError(c, err)
	}

	var req ValidateConfigRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	return c.JSON(fiber.Map{"valid": plugin.ValidateConfig(req.Configuration)})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck(c.Context())
	repositoryCheck, repOk := h.triggerService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Trigger API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Trigger API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"plugins":    registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
