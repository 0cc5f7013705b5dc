// Package persistence provides the data storage abstraction for trigger
// registrations.
package persistence

import (
	"context"
	"time"

	"github.com/flowforge/trigger/pkg/models"
)

// TriggerRepository is the storage boundary for trigger registrations.
// Implementations exist for PostgreSQL (production) and the local file
// system (development and tests).
type TriggerRepository interface {
	// Create persists a new registration. The registration id, timestamps
	// and webhook token must already be assigned by the caller.
	Create(ctx context.Context, trigger *models.TriggerRegistration) error

	// Update persists caller-visible fields of an existing registration:
	// trigger type, configuration, enabled flag and scheduling state. The
	// webhook token is write-once and never updated.
	Update(ctx context.Context, trigger *models.TriggerRegistration) error

	// UpdateSchedulingState writes only the next fire time of a single
	// registration, leaving all other fields untouched.
	UpdateSchedulingState(ctx context.Context, id string, nextScheduledAt *time.Time) error

	// MarkTriggerFired records the time a registration last fired.
	MarkTriggerFired(ctx context.Context, id string, firedAt time.Time) error

	// Delete removes a registration permanently.
	Delete(ctx context.Context, id string) error

	// TriggerByID returns a registration, or ErrTriggerNotFound.
	TriggerByID(ctx context.Context, id string) (*models.TriggerRegistration, error)

	// TriggerByWebhookToken resolves the public webhook lookup key, or
	// returns ErrTriggerNotFound.
	TriggerByWebhookToken(ctx context.Context, token string) (*models.TriggerRegistration, error)

	// TriggersByUser returns all registrations owned by a user, newest
	// first.
	TriggersByUser(ctx context.Context, userID string) ([]*models.TriggerRegistration, error)

	// TriggersByWorkflow returns all registrations bound to a workflow.
	TriggersByWorkflow(ctx context.Context, workflowID string) ([]*models.TriggerRegistration, error)

	// EnabledTriggersByType returns enabled registrations of one trigger
	// type.
	EnabledTriggersByType(ctx context.Context, triggerType string) ([]*models.TriggerRegistration, error)

	// DueSchedulerTriggers returns enabled scheduler registrations whose
	// next fire time is at or before now.
	DueSchedulerTriggers(ctx context.Context, now time.Time) ([]*models.TriggerRegistration, error)

	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
