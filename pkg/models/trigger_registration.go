// Package models defines the core data structures of the trigger service.
package models

import (
	"errors"
	"time"
)

// Trigger type identifiers for the built-in plugins. The set is extensible:
// dynamically loaded plugins register additional types at runtime.
const (
	TriggerTypeWebhook   = "webhook"
	TriggerTypeScheduler = "scheduler"
	TriggerTypeEmail     = "email"
	TriggerTypeManual    = "manual"
)

var (
	ErrInvalidTriggerType = errors.New("invalid trigger type")
	ErrMissingWorkflowID  = errors.New("workflow id is required")
	ErrMissingUserID      = errors.New("user id is required")
)

// TriggerRegistration is the durable binding of one trigger type and its
// configuration to one workflow. Scheduling state (NextScheduledAt,
// LastTriggeredAt) is mutated by the pollers and the fire paths; everything
// else only changes through the management API.
type TriggerRegistration struct {
	ID          string `json:"id"`
	WorkflowID  string `json:"workflow_id"  validate:"required,uuid4"`
	UserID      string `json:"user_id"      validate:"required,uuid4"`
	TriggerType string `json:"trigger_type" validate:"required"`

	// Configuration is an opaque document whose schema is owned by the
	// trigger type (cron expression, IMAP credentials, filters, ...).
	Configuration map[string]any `json:"configuration"`

	Enabled bool `json:"enabled"`

	// WebhookURL and WebhookToken are set once at webhook setup and never
	// change afterwards. The token is the public lookup key; the internal
	// registration id is never exposed in webhook URLs.
	WebhookURL   string `json:"webhook_url,omitempty"`
	WebhookToken string `json:"webhook_token,omitempty"`

	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	NextScheduledAt *time.Time `json:"next_scheduled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate performs structural validation independent of trigger type.
func (t *TriggerRegistration) Validate() error {
	if t.WorkflowID == "" {
		return ErrMissingWorkflowID
	}

	if t.UserID == "" {
		return ErrMissingUserID
	}

	if t.TriggerType == "" {
		return ErrInvalidTriggerType
	}

	return nil
}

// IsDue reports whether an enabled scheduler registration is due at now.
func (t *TriggerRegistration) IsDue(now time.Time) bool {
	return t.Enabled && t.NextScheduledAt != nil && !t.NextScheduledAt.After(now)
}

// Config returns the configuration document, never nil.
func (t *TriggerRegistration) Config() map[string]any {
	if t.Configuration == nil {
		return map[string]any{}
	}

	return t.Configuration
}
