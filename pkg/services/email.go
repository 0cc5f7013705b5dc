package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/persistence"
	"github.com/flowforge/trigger/pkg/plugins/email"
	"github.com/flowforge/trigger/pkg/publisher"
)

// InboxMessage is one message extracted from a monitored mailbox.
type InboxMessage struct {
	Subject    string
	From       string
	Body       string
	ReceivedAt time.Time
}

// Email turns matching inbox messages into trigger events.
type Email struct {
	repository persistence.TriggerRepository
	publisher  publisher.EventPublisher
	logger     *slog.Logger
}

// NewEmail creates a new email trigger service.
func NewEmail(repository persistence.TriggerRepository, eventPublisher publisher.EventPublisher, logger *slog.Logger) *Email {
	return &Email{
		repository: repository,
		publisher:  eventPublisher,
		logger:     logger.With("module", "email_service"),
	}
}

// ProcessMessage applies the registration's filters to one inbox message and
// publishes an event on match. It reports whether the message matched; a
// non-matching message is skipped silently, never an error.
func (e *Email) ProcessMessage(ctx context.Context, trigger *models.TriggerRegistration, msg InboxMessage) (bool, error) {
	if !email.MatchesFilters(trigger.Config(), msg.Subject, msg.From) {
		e.logger.DebugContext(ctx, "Inbox message did not match filters, skipping",
			"trigger_id", trigger.ID,
			"subject", msg.Subject)

		return false, nil
	}

	event := models.NewRegistrationEvent(trigger,
		map[string]any{
			"subject":    msg.Subject,
			"from":       msg.From,
			"body":       msg.Body,
			"receivedAt": msg.ReceivedAt.UTC().Format(time.RFC3339),
		},
		map[string]any{
			"source": "email-poller",
		})

	// Synchronous publish: the poller flags the message seen only after the
	// broker acknowledged the event, so a failed delivery is retried next
	// cycle.
	if err := e.publisher.PublishSync(ctx, event); err != nil {
		return false, fmt.Errorf("failed to publish email event: %w", err)
	}

	if err := e.repository.MarkTriggerFired(ctx, trigger.ID, time.Now().UTC()); err != nil {
		e.logger.ErrorContext(ctx, "Failed to record email fire time",
			"trigger_id", trigger.ID,
			"error", err)
	}

	e.logger.InfoContext(ctx, "Email trigger fired",
		"trigger_id", trigger.ID,
		"workflow_id", trigger.WorkflowID,
		"event_id", event.EventID,
		"subject", msg.Subject)

	return true, nil
}
