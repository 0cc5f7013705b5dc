package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/persistence"
	"github.com/flowforge/trigger/pkg/publisher"
	"github.com/google/uuid"
)

// Webhook owns webhook registration setup and inbound webhook processing.
type Webhook struct {
	repository persistence.TriggerRepository
	publisher  publisher.EventPublisher
	baseURL    string
	logger     *slog.Logger
}

// NewWebhook creates a new webhook service. baseURL is the externally
// reachable address webhook URLs are composed from.
func NewWebhook(repository persistence.TriggerRepository, eventPublisher publisher.EventPublisher, baseURL string, logger *slog.Logger) *Webhook {
	return &Webhook{
		repository: repository,
		publisher:  eventPublisher,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With("module", "webhook_service"),
	}
}

// Setup assigns the webhook token and URL to a registration. The token is
// write-once: a registration that already has one keeps it across updates.
func (w *Webhook) Setup(trigger *models.TriggerRegistration) {
	if trigger.WebhookToken == "" {
		trigger.WebhookToken = uuid.NewString()
	}

	trigger.WebhookURL = fmt.Sprintf("%s/webhook/%s", w.baseURL, trigger.WebhookToken)
}

// WebhookResult reports the outcome of an inbound webhook delivery.
type WebhookResult struct {
	TriggerID string
	Fired     bool
}

// ProcessRequest handles one inbound webhook delivery. Unknown tokens
// surface ErrTriggerNotFound; a disabled registration is acknowledged but
// fires nothing.
func (w *Webhook) ProcessRequest(ctx context.Context, token string, payload, metadata map[string]any) (*WebhookResult, error) {
	trigger, err := w.repository.TriggerByWebhookToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if !trigger.Enabled {
		w.logger.InfoContext(ctx, "Webhook received for disabled trigger, skipping",
			"trigger_id", trigger.ID,
			"workflow_id", trigger.WorkflowID)

		return &WebhookResult{TriggerID: trigger.ID, Fired: false}, nil
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	metadata["source"] = "webhook"
	metadata["receivedAt"] = time.Now().UTC().Format(time.RFC3339)

	event := models.NewRegistrationEvent(trigger, payload, metadata)

	if err := w.publisher.Publish(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to publish webhook event: %w", err)
	}

	if err := w.repository.MarkTriggerFired(ctx, trigger.ID, time.Now().UTC()); err != nil {
		w.logger.ErrorContext(ctx, "Failed to record webhook fire time",
			"trigger_id", trigger.ID,
			"error", err)
	}

	w.logger.InfoContext(ctx, "Webhook trigger fired",
		"trigger_id", trigger.ID,
		"workflow_id", trigger.WorkflowID,
		"event_id", event.EventID)

	return &WebhookResult{TriggerID: trigger.ID, Fired: true}, nil
}
