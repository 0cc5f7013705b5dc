package services

import (
	"context"
	"testing"
	"time"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextFireTime(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 14, 7, 30, 0, time.UTC)

	tests := []struct {
		name   string
		config map[string]any
		want   time.Time
	}{
		{
			name:   "cron next calendar occurrence",
			config: map[string]any{"cron": "0 * * * *"},
			want:   time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
		},
		{
			name:   "cron every five minutes",
			config: map[string]any{"cron": "*/5 * * * *"},
			want:   time.Date(2025, 3, 10, 14, 10, 0, 0, time.UTC),
		},
		{
			name:   "interval minutes",
			config: map[string]any{"intervalMinutes": 5},
			want:   t0.Add(5 * time.Minute),
		},
		{
			name:   "interval minutes as json float",
			config: map[string]any{"intervalMinutes": float64(15)},
			want:   t0.Add(15 * time.Minute),
		},
		{
			name:   "hourly fallback",
			config: map[string]any{},
			want:   t0.Add(time.Hour),
		},
		{
			name:   "cron takes precedence over interval",
			config: map[string]any{"cron": "0 * * * *", "intervalMinutes": 5},
			want:   time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextFireTime(tt.config, t0)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)

			// Deterministic: same inputs, same output.
			again, err := NextFireTime(tt.config, t0)
			require.NoError(t, err)
			assert.True(t, got.Equal(again))
		})
	}
}

func TestNextFireTime_InvalidConfig(t *testing.T) {
	now := time.Now().UTC()

	_, err := NextFireTime(map[string]any{"cron": "not a cron"}, now)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NextFireTime(map[string]any{"intervalMinutes": 0}, now)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestScheduler_IntervalLifecycle(t *testing.T) {
	triggerSvc, _, scheduler, pub, repo := newTestServices(t)
	ctx := context.Background()

	created, err := triggerSvc.Create(ctx, CreateTriggerRequest{
		WorkflowID:    uuid.NewString(),
		UserID:        uuid.NewString(),
		TriggerType:   models.TriggerTypeScheduler,
		Configuration: map[string]any{"intervalMinutes": 5},
	})
	require.NoError(t, err)
	require.NotNil(t, created.NextScheduledAt)

	t0 := time.Now().UTC()
	assert.WithinDuration(t, t0.Add(5*time.Minute), *created.NextScheduledAt, 5*time.Second)

	// Not due yet.
	due, err := repo.DueSchedulerTriggers(ctx, t0)
	require.NoError(t, err)
	assert.Empty(t, due)

	// Due at t0+5m.
	fireTime := created.NextScheduledAt.Add(time.Second)

	due, err = repo.DueSchedulerTriggers(ctx, fireTime)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, scheduler.ProcessDueTrigger(ctx, due[0], fireTime))

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, models.TriggerTypeScheduler, events[0].TriggerType)
	assert.Equal(t, created.WorkflowID, events[0].WorkflowID)
	assert.Equal(t, created.UserID, events[0].UserID)

	// Schedule advanced another five minutes and fire time recorded.
	reloaded, err := repo.TriggerByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.NextScheduledAt)
	assert.WithinDuration(t, fireTime.Add(5*time.Minute), *reloaded.NextScheduledAt, time.Second)
	require.NotNil(t, reloaded.LastTriggeredAt)
	assert.WithinDuration(t, fireTime, *reloaded.LastTriggeredAt, time.Second)
}

func TestScheduler_SetupRejectsBadCron(t *testing.T) {
	_, _, scheduler, _, _ := newTestServices(t)

	trigger := &models.TriggerRegistration{
		Configuration: map[string]any{"cron": "every day at noon"},
	}

	err := scheduler.Setup(trigger, time.Now().UTC())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Nil(t, trigger.NextScheduledAt)
}
