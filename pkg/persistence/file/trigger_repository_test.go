package file

import (
	"context"
	"testing"
	"time"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistration(t *testing.T, triggerType string) *models.TriggerRegistration {
	t.Helper()

	now := time.Now().UTC()

	return &models.TriggerRegistration{
		ID:            uuid.NewString(),
		WorkflowID:    uuid.NewString(),
		UserID:        uuid.NewString(),
		TriggerType:   triggerType,
		Configuration: map[string]any{"cron": "*/5 * * * *"},
		Enabled:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPersistence_CreateAndGet(t *testing.T) {
	repo := NewPersistence(t.TempDir())
	ctx := context.Background()

	trigger := newTestRegistration(t, models.TriggerTypeScheduler)
	require.NoError(t, repo.Create(ctx, trigger))

	loaded, err := repo.TriggerByID(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Equal(t, trigger.ID, loaded.ID)
	assert.Equal(t, trigger.WorkflowID, loaded.WorkflowID)
	assert.Equal(t, trigger.Configuration["cron"], loaded.Configuration["cron"])
}

func TestPersistence_CreateDuplicateFails(t *testing.T) {
	repo := NewPersistence(t.TempDir())
	ctx := context.Background()

	trigger := newTestRegistration(t, models.TriggerTypeManual)
	require.NoError(t, repo.Create(ctx, trigger))

	err := repo.Create(ctx, trigger)
	assert.ErrorIs(t, err, persistence.ErrTriggerAlreadyExists)
}

func TestPersistence_GetMissingReturnsNotFound(t *testing.T) {
	repo := NewPersistence(t.TempDir())

	_, err := repo.TriggerByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, persistence.ErrTriggerNotFound)
	assert.True(t, persistence.IsTriggerNotFound(err))
}

func TestPersistence_UpdatePersistsChanges(t *testing.T) {
	repo := NewPersistence(t.TempDir())
	ctx := context.Background()

	trigger := newTestRegistration(t, models.TriggerTypeScheduler)
	require.NoError(t, repo.Create(ctx, trigger))

	trigger.Enabled = false
	trigger.Configuration = map[string]any{"intervalMinutes": 30}
	require.NoError(t, repo.Update(ctx, trigger))

	loaded, err := repo.TriggerByID(ctx, trigger.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Enabled)
	assert.EqualValues(t, 30, loaded.Configuration["intervalMinutes"])
}

func TestPersistence_UpdateMissingFails(t *testing.T) {
	repo := NewPersistence(t.TempDir())

	err := repo.Update(context.Background(), newTestRegistration(t, models.TriggerTypeManual))
	assert.ErrorIs(t, err, persistence.ErrTriggerNotFound)
}

func TestPersistence_Delete(t *testing.T) {
	repo := NewPersistence(t.TempDir())
	ctx := context.Background()

	trigger := newTestRegistration(t, models.TriggerTypeWebhook)
	require.NoError(t, repo.Create(ctx, trigger))
	require.NoError(t, repo.Delete(ctx, trigger.ID))

	_, err := repo.TriggerByID(ctx, trigger.ID)
	assert.ErrorIs(t, err, persistence.ErrTriggerNotFound)

	err = repo.Delete(ctx, trigger.ID)
	assert.ErrorIs(t, err, persistence.ErrTriggerNotFound)
}

func TestPersistence_TriggerByWebhookToken(t *testing.T) {
	repo := NewPersistence(t.TempDir())
	ctx := context.Background()

	trigger := newTestRegistration(t, models.TriggerTypeWebhook)
	trigger.WebhookToken = uuid.NewString()
	require.NoError(t, repo.Create(ctx, trigger))

	loaded, err := repo.TriggerByWebhookToken(ctx, trigger.WebhookToken)
	require.NoError(t, err)
	assert.Equal(t, trigger.ID, loaded.ID)

	_, err = repo.TriggerByWebhookToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, persistence.ErrTriggerNotFound)
}

func TestPersistence_ListFilters(t *testing.T) {
	repo := NewPersistence(t.TempDir())
	ctx := context.Background()

	owned := newTestRegistration(t, models.TriggerTypeEmail)
	other := newTestRegistration(t, models.TriggerTypeEmail)
	disabled := newTestRegistration(t, models.TriggerTypeEmail)
	disabled.Enabled = false
	disabled.UserID = owned.UserID

	require.NoError(t, repo.Create(ctx, owned))
	require.NoError(t, repo.Create(ctx, other))
	require.NoError(t, repo.Create(ctx, disabled))

	byUser, err := repo.TriggersByUser(ctx, owned.UserID)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byWorkflow, err := repo.TriggersByWorkflow(ctx, other.WorkflowID)
	require.NoError(t, err)
	require.Len(t, byWorkflow, 1)
	assert.Equal(t, other.ID, byWorkflow[0].ID)

	enabled, err := repo.EnabledTriggersByType(ctx, models.TriggerTypeEmail)
	require.NoError(t, err)
	assert.Len(t, enabled, 2)
}

func TestPersistence_DueSchedulerTriggers(t *testing.T) {
	repo := NewPersistence(t.TempDir())
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	longPast := now.Add(-time.Hour)

	due := newTestRegistration(t, models.TriggerTypeScheduler)
	due.NextScheduledAt = &past

	dueFirst := newTestRegistration(t, models.TriggerTypeScheduler)
	dueFirst.NextScheduledAt = &longPast

	notDue := newTestRegistration(t, models.TriggerTypeScheduler)
	notDue.NextScheduledAt = &future

	disabled := newTestRegistration(t, models.TriggerTypeScheduler)
	disabled.NextScheduledAt = &past
	disabled.Enabled = false

	for _, trigger := range []*models.TriggerRegistration{due, dueFirst, notDue, disabled} {
		require.NoError(t, repo.Create(ctx, trigger))
	}

	got, err := repo.DueSchedulerTriggers(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, dueFirst.ID, got[0].ID, "soonest next fire time comes first")
	assert.Equal(t, due.ID, got[1].ID)
}

func TestPersistence_UpdateSchedulingState(t *testing.T) {
	repo := NewPersistence(t.TempDir())
	ctx := context.Background()

	trigger := newTestRegistration(t, models.TriggerTypeScheduler)
	require.NoError(t, repo.Create(ctx, trigger))

	next := time.Now().UTC().Add(10 * time.Minute).Truncate(time.Second)
	require.NoError(t, repo.UpdateSchedulingState(ctx, trigger.ID, &next))

	loaded, err := repo.TriggerByID(ctx, trigger.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.NextScheduledAt)
	assert.True(t, next.Equal(*loaded.NextScheduledAt))

	require.NoError(t, repo.UpdateSchedulingState(ctx, trigger.ID, nil))

	loaded, err = repo.TriggerByID(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.NextScheduledAt)
}

func TestPersistence_MarkTriggerFired(t *testing.T) {
	repo := NewPersistence(t.TempDir())
	ctx := context.Background()

	trigger := newTestRegistration(t, models.TriggerTypeManual)
	require.NoError(t, repo.Create(ctx, trigger))

	firedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.MarkTriggerFired(ctx, trigger.ID, firedAt))

	loaded, err := repo.TriggerByID(ctx, trigger.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.LastTriggeredAt)
	assert.True(t, firedAt.Equal(*loaded.LastTriggeredAt))
}

func TestPersistence_HealthCheck(t *testing.T) {
	dir := t.TempDir()
	repo := NewPersistence(dir)

	assert.NoError(t, repo.HealthCheck(context.Background()))

	missing := NewPersistence(dir + "/does-not-exist")
	assert.Error(t, missing.HealthCheck(context.Background()))
}
