package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/persistence"
	"github.com/flowforge/trigger/pkg/publisher"
	"github.com/robfig/cron/v3"
)

const defaultScheduleInterval = time.Hour

// Scheduler owns the scheduling math and the firing path for
// persistence-backed scheduler registrations.
type Scheduler struct {
	repository persistence.TriggerRepository
	publisher  publisher.EventPublisher
	logger     *slog.Logger
}

// NewScheduler creates a new scheduler service.
func NewScheduler(repository persistence.TriggerRepository, eventPublisher publisher.EventPublisher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		repository: repository,
		publisher:  eventPublisher,
		logger:     logger.With("module", "scheduler_service"),
	}
}

// NextFireTime computes when a scheduler registration fires next. The result
// is deterministic in (config, now): a `cron` expression yields the next
// calendar occurrence, `intervalMinutes` yields now + interval, anything
// else falls back to now + 1h.
func NextFireTime(config map[string]any, now time.Time) (time.Time, error) {
	if expr, ok := config["cron"].(string); ok && expr != "" {
		schedule, err := cron.ParseStandard(expr)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: invalid cron expression %q: %w", ErrInvalidConfiguration, expr, err)
		}

		return schedule.Next(now), nil
	}

	if minutes, ok := intervalMinutes(config); ok {
		if minutes <= 0 {
			return time.Time{}, fmt.Errorf("%w: intervalMinutes must be positive", ErrInvalidConfiguration)
		}

		return now.Add(time.Duration(minutes) * time.Minute), nil
	}

	return now.Add(defaultScheduleInterval), nil
}

// intervalMinutes reads the interval config value, tolerating the numeric
// types JSON decoding produces.
func intervalMinutes(config map[string]any) (int64, bool) {
	switch value := config["intervalMinutes"].(type) {
	case int:
		return int64(value), true
	case int64:
		return value, true
	case float64:
		return int64(value), true
	default:
		return 0, false
	}
}

// Setup assigns the first fire time to a new or reconfigured registration.
func (s *Scheduler) Setup(trigger *models.TriggerRegistration, now time.Time) error {
	next, err := NextFireTime(trigger.Config(), now)
	if err != nil {
		return err
	}

	trigger.NextScheduledAt = &next

	return nil
}

// ProcessDueTrigger fires one due registration: publish the event, advance
// the schedule and record the fire time.
func (s *Scheduler) ProcessDueTrigger(ctx context.Context, trigger *models.TriggerRegistration, now time.Time) error {
	scheduledFor := now
	if trigger.NextScheduledAt != nil {
		scheduledFor = *trigger.NextScheduledAt
	}

	event := models.NewRegistrationEvent(trigger,
		map[string]any{
			"scheduledFor": scheduledFor.UTC().Format(time.RFC3339),
			"firedAt":      now.UTC().Format(time.RFC3339),
		},
		map[string]any{
			"source": "scheduler",
			"mode":   "poller",
		})

	if err := s.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish scheduler event: %w", err)
	}

	next, err := NextFireTime(trigger.Config(), now)
	if err != nil {
		return err
	}

	if err := s.repository.UpdateSchedulingState(ctx, trigger.ID, &next); err != nil {
		return fmt.Errorf("failed to advance schedule: %w", err)
	}

	if err := s.repository.MarkTriggerFired(ctx, trigger.ID, now); err != nil {
		return fmt.Errorf("failed to record fire time: %w", err)
	}

	s.logger.InfoContext(ctx, "Scheduler trigger fired",
		"trigger_id", trigger.ID,
		"workflow_id", trigger.WorkflowID,
		"next_scheduled_at", next)

	return nil
}
