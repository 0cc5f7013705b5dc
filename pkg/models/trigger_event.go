package models

import (
	"time"

	"github.com/google/uuid"
)

// TriggerEvent is the normalized, in-process representation of one firing.
// It is built at fire time, handed to the publisher and then discarded; it
// is never persisted. EventID is fresh per firing even when the same
// registration fires twice.
type TriggerEvent struct {
	EventID     string         `json:"eventId"`
	TriggerID   string         `json:"triggerId,omitempty"`
	WorkflowID  string         `json:"workflowId"`
	UserID      string         `json:"userId,omitempty"`
	TriggerType string         `json:"triggerType"`
	Timestamp   time.Time      `json:"timestamp"`
	Payload     map[string]any `json:"payload"`
	Metadata    map[string]any `json:"metadata"`
}

// NewTriggerEvent builds an event with a fresh id and normalized maps.
// Payload and metadata are never nil on the wire.
func NewTriggerEvent(triggerType string, payload, metadata map[string]any) *TriggerEvent {
	if payload == nil {
		payload = map[string]any{}
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	return &TriggerEvent{
		EventID:     uuid.NewString(),
		TriggerType: triggerType,
		Timestamp:   time.Now().UTC(),
		Payload:     payload,
		Metadata:    metadata,
	}
}

// NewRegistrationEvent builds an event carrying a registration's identity.
func NewRegistrationEvent(reg *TriggerRegistration, payload, metadata map[string]any) *TriggerEvent {
	event := NewTriggerEvent(reg.TriggerType, payload, metadata)
	event.TriggerID = reg.ID
	event.WorkflowID = reg.WorkflowID
	event.UserID = reg.UserID

	return event
}
