package web

import (
	"encoding/json"
	"log/slog"

	"github.com/flowforge/trigger/pkg/services"
	"github.com/gofiber/fiber/v3"
)

// WebhookHandlers serves the public webhook ingestion endpoint. The token in
// the path is the only credential.
type WebhookHandlers struct {
	webhookService *services.Webhook
	logger         *slog.Logger
}

func NewWebhookHandlers(webhookService *services.Webhook, logger *slog.Logger) *WebhookHandlers {
	return &WebhookHandlers{
		webhookService: webhookService,
		logger:         logger.With("module", "webhook_handlers"),
	}
}

// RegisterRoutes wires the ingestion routes onto the app. Both GET and POST
// are accepted.
func (h *WebhookHandlers) RegisterRoutes(app *fiber.App) {
	app.Post("/webhook/:token", h.Handle)
	app.Get("/webhook/:token", h.Handle)
}

// Handle processes one webhook delivery. Unknown tokens get a uniform 404
// that leaks nothing about registered triggers.
func (h *WebhookHandlers) Handle(c fiber.Ctx) error {
	token := c.Params("token")

	payload := map[string]any{
		"method":  c.Method(),
		"headers": headerMap(c),
		"query":   queryMap(c),
		"body":    requestBody(c),
	}

	metadata := map[string]any{
		"remoteAddress": c.IP(),
		"method":        c.Method(),
	}

	result, err := h.webhookService.ProcessRequest(c.Context(), token, payload, metadata)
	if err != nil {
		if services.IsNotFoundError(err) {
			return c.Status(fiber.StatusNotFound).JSON(WebhookResponse{
				Success: false,
				Error:   "Not found",
			})
		}

		h.logger.ErrorContext(c.Context(), "Failed to process webhook", "error", err)

		return c.Status(fiber.StatusInternalServerError).JSON(WebhookResponse{
			Success: false,
			Error:   "Internal error",
		})
	}

	return c.JSON(WebhookResponse{
		Success:   true,
		Message:   "Webhook processed",
		TriggerID: result.TriggerID,
	})
}

// requestBody decodes a JSON request body; GET requests and empty bodies
// yield an empty object, a non-JSON body is kept raw.
func requestBody(c fiber.Ctx) any {
	raw := c.Body()
	if len(raw) == 0 {
		return map[string]any{}
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return map[string]any{"raw": string(raw)}
	}

	return body
}

func headerMap(c fiber.Ctx) map[string]string {
	headers := make(map[string]string)

	for key, values := range c.GetReqHeaders() {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	return headers
}

func queryMap(c fiber.Ctx) map[string]string {
	return c.Queries()
}
