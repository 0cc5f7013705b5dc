package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerRegistration_Validate(t *testing.T) {
	tests := []struct {
		name         string
		registration TriggerRegistration
		expectError  error
	}{
		{
			name: "valid webhook registration",
			registration: TriggerRegistration{
				WorkflowID:  "b7a9c9a0-2f6e-4f8e-9a3f-111111111111",
				UserID:      "b7a9c9a0-2f6e-4f8e-9a3f-222222222222",
				TriggerType: TriggerTypeWebhook,
			},
		},
		{
			name: "missing workflow id",
			registration: TriggerRegistration{
				UserID:      "b7a9c9a0-2f6e-4f8e-9a3f-222222222222",
				TriggerType: TriggerTypeWebhook,
			},
			expectError: ErrMissingWorkflowID,
		},
		{
			name: "missing user id",
			registration: TriggerRegistration{
				WorkflowID:  "b7a9c9a0-2f6e-4f8e-9a3f-111111111111",
				TriggerType: TriggerTypeScheduler,
			},
			expectError: ErrMissingUserID,
		},
		{
			name: "missing trigger type",
			registration: TriggerRegistration{
				WorkflowID: "b7a9c9a0-2f6e-4f8e-9a3f-111111111111",
				UserID:     "b7a9c9a0-2f6e-4f8e-9a3f-222222222222",
			},
			expectError: ErrInvalidTriggerType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.registration.Validate()

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTriggerRegistration_IsDue(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name         string
		registration TriggerRegistration
		due          bool
	}{
		{
			name:         "due when next scheduled in the past",
			registration: TriggerRegistration{Enabled: true, NextScheduledAt: &past},
			due:          true,
		},
		{
			name:         "due exactly at next scheduled time",
			registration: TriggerRegistration{Enabled: true, NextScheduledAt: &now},
			due:          true,
		},
		{
			name:         "not due in the future",
			registration: TriggerRegistration{Enabled: true, NextScheduledAt: &future},
			due:          false,
		},
		{
			name:         "disabled registrations are never due",
			registration: TriggerRegistration{Enabled: false, NextScheduledAt: &past},
			due:          false,
		},
		{
			name:         "nil next scheduled time",
			registration: TriggerRegistration{Enabled: true},
			due:          false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.due, tt.registration.IsDue(now))
		})
	}
}

func TestNewTriggerEvent(t *testing.T) {
	event := NewTriggerEvent(TriggerTypeManual, nil, nil)

	require.NotNil(t, event)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, TriggerTypeManual, event.TriggerType)
	assert.NotNil(t, event.Payload)
	assert.NotNil(t, event.Metadata)
	assert.False(t, event.Timestamp.IsZero())
}

func TestNewTriggerEvent_UniqueEventIDs(t *testing.T) {
	first := NewTriggerEvent(TriggerTypeWebhook, map[string]any{"n": 1}, nil)
	second := NewTriggerEvent(TriggerTypeWebhook, map[string]any{"n": 2}, nil)

	assert.NotEqual(t, first.EventID, second.EventID)
}

func TestNewRegistrationEvent(t *testing.T) {
	reg := &TriggerRegistration{
		ID:          "reg-1",
		WorkflowID:  "wf-1",
		UserID:      "user-1",
		TriggerType: TriggerTypeScheduler,
	}

	event := NewRegistrationEvent(reg, nil, map[string]any{"source": "scheduler"})

	assert.Equal(t, "reg-1", event.TriggerID)
	assert.Equal(t, "wf-1", event.WorkflowID)
	assert.Equal(t, "user-1", event.UserID)
	assert.Equal(t, TriggerTypeScheduler, event.TriggerType)
	assert.Equal(t, "scheduler", event.Metadata["source"])
	assert.NotNil(t, event.Payload)
}
