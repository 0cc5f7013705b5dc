package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/persistence"
	"github.com/flowforge/trigger/pkg/publisher"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Trigger owns the registration lifecycle and ad hoc firing.
type Trigger struct {
	repository persistence.TriggerRepository
	publisher  publisher.EventPublisher
	webhook    *Webhook
	scheduler  *Scheduler
	validator  *validator.Validate
	logger     *slog.Logger
}

// NewTrigger creates a new trigger registration service.
func NewTrigger(
	repository persistence.TriggerRepository,
	eventPublisher publisher.EventPublisher,
	webhook *Webhook,
	scheduler *Scheduler,
	logger *slog.Logger,
) *Trigger {
	return &Trigger{
		repository: repository,
		publisher:  eventPublisher,
		webhook:    webhook,
		scheduler:  scheduler,
		validator:  validator.New(),
		logger:     logger.With("module", "trigger_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (t *Trigger) HealthCheck(ctx context.Context) (string, bool) {
	if t.repository == nil {
		return "Persistence layer not initialized", false
	}

	err := t.repository.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateTriggerRequest carries a new registration.
type CreateTriggerRequest struct {
	WorkflowID    string         `json:"workflowId"    validate:"required,uuid4"`
	UserID        string         `json:"-"             validate:"required,uuid4"`
	TriggerType   string         `json:"triggerType"   validate:"required,oneof=webhook scheduler email manual"`
	Configuration map[string]any `json:"configuration"`
	Enabled       *bool          `json:"enabled"`
}

// UpdateTriggerRequest carries an update to an existing registration. Nil
// fields are left unchanged; the webhook token can never change.
type UpdateTriggerRequest struct {
	Configuration map[string]any `json:"configuration"`
	Enabled       *bool          `json:"enabled"`
}

// Create validates and persists a new registration, applying type-specific
// setup (webhook token, first fire time, email config check).
func (t *Trigger) Create(ctx context.Context, req CreateTriggerRequest) (*models.TriggerRegistration, error) {
	if err := t.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	now := time.Now().UTC()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate trigger ID: %w", err)
	}

	trigger := &models.TriggerRegistration{
		ID:            id.String(),
		WorkflowID:    req.WorkflowID,
		UserID:        req.UserID,
		TriggerType:   req.TriggerType,
		Configuration: req.Configuration,
		Enabled:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if req.Enabled != nil {
		trigger.Enabled = *req.Enabled
	}

	if err := t.setupForType(trigger, now); err != nil {
		return nil, err
	}

	if err := t.repository.Create(ctx, trigger); err != nil {
		return nil, err
	}

	t.logger.InfoContext(ctx, "Trigger registration created",
		"trigger_id", trigger.ID,
		"workflow_id", trigger.WorkflowID,
		"trigger_type", trigger.TriggerType)

	return trigger, nil
}

// Get returns a registration after an ownership check. A registration owned
// by another user yields ErrNotOwner, never ErrTriggerNotFound.
func (t *Trigger) Get(ctx context.Context, userID, id string) (*models.TriggerRegistration, error) {
	trigger, err := t.repository.TriggerByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if trigger.UserID != userID {
		return nil, NewServiceError("Get", "trigger belongs to another user", ErrNotOwner)
	}

	return trigger, nil
}

// Update applies an ownership-checked update and re-runs type-specific setup.
func (t *Trigger) Update(ctx context.Context, userID, id string, req UpdateTriggerRequest) (*models.TriggerRegistration, error) {
	trigger, err := t.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Configuration != nil {
		trigger.Configuration = req.Configuration
	}

	if req.Enabled != nil {
		trigger.Enabled = *req.Enabled
	}

	now := time.Now().UTC()
	trigger.UpdatedAt = now

	if err := t.setupForType(trigger, now); err != nil {
		return nil, err
	}

	if err := t.repository.Update(ctx, trigger); err != nil {
		return nil, err
	}

	t.logger.InfoContext(ctx, "Trigger registration updated",
		"trigger_id", trigger.ID,
		"enabled", trigger.Enabled)

	return trigger, nil
}

// Delete removes an ownership-checked registration.
func (t *Trigger) Delete(ctx context.Context, userID, id string) error {
	if _, err := t.Get(ctx, userID, id); err != nil {
		return err
	}

	if err := t.repository.Delete(ctx, id); err != nil {
		return err
	}

	t.logger.InfoContext(ctx, "Trigger registration deleted", "trigger_id", id)

	return nil
}

// ListByUser returns all registrations owned by the caller.
func (t *Trigger) ListByUser(ctx context.Context, userID string) ([]*models.TriggerRegistration, error) {
	return t.repository.TriggersByUser(ctx, userID)
}

// ListByWorkflow returns the caller's registrations for one workflow.
// Registrations other users bound to the same workflow stay invisible.
func (t *Trigger) ListByWorkflow(ctx context.Context, userID, workflowID string) ([]*models.TriggerRegistration, error) {
	all, err := t.repository.TriggersByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	owned := make([]*models.TriggerRegistration, 0, len(all))

	for _, trigger := range all {
		if trigger.UserID == userID {
			owned = append(owned, trigger)
		}
	}

	return owned, nil
}

// ManualFire publishes a manual trigger event synchronously so the caller's
// response reflects delivery.
func (t *Trigger) ManualFire(ctx context.Context, userID, workflowID string, payload map[string]any) (*models.TriggerEvent, error) {
	event := models.NewTriggerEvent(models.TriggerTypeManual, payload, map[string]any{
		"source": "manual",
	})
	event.WorkflowID = workflowID
	event.UserID = userID

	if err := t.publisher.PublishSync(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to publish manual event: %w", err)
	}

	t.logger.InfoContext(ctx, "Manual trigger fired",
		"workflow_id", workflowID,
		"event_id", event.EventID)

	return event, nil
}

// FireNamedSchedule publishes an ad hoc event for a named schedule. The
// event's trigger type is "schedule.<name>" so consumers can route on it.
func (t *Trigger) FireNamedSchedule(ctx context.Context, scheduleName string, payload map[string]any) (*models.TriggerEvent, error) {
	if scheduleName == "" {
		return nil, fmt.Errorf("%w: schedule name is required", ErrInvalidRequest)
	}

	event := models.NewTriggerEvent("schedule."+scheduleName, payload, map[string]any{
		"source":       "scheduler",
		"scheduleName": scheduleName,
	})
	event.WorkflowID = scheduleName

	if err := t.publisher.PublishSync(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to publish schedule event: %w", err)
	}

	t.logger.InfoContext(ctx, "Named schedule fired",
		"schedule_name", scheduleName,
		"event_id", event.EventID)

	return event, nil
}

// setupForType applies type-specific setup to a registration.
func (t *Trigger) setupForType(trigger *models.TriggerRegistration, now time.Time) error {
	switch trigger.TriggerType {
	case models.TriggerTypeWebhook:
		t.webhook.Setup(trigger)
	case models.TriggerTypeScheduler:
		if err := t.scheduler.Setup(trigger, now); err != nil {
			return err
		}
	case models.TriggerTypeEmail:
		if address, ok := trigger.Config()["emailAddress"].(string); !ok || address == "" {
			return fmt.Errorf("%w: emailAddress is required", ErrInvalidConfiguration)
		}
	case models.TriggerTypeManual:
		// Nothing to set up.
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, trigger.TriggerType)
	}

	return nil
}
