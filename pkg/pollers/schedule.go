// Package pollers contains the periodic background tasks that drive
// persistence-backed triggers: the schedule poller and the inbox poller.
package pollers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flowforge/trigger/pkg/persistence"
	"github.com/flowforge/trigger/pkg/services"
)

const defaultScheduleInterval = time.Minute

// SchedulePoller is a centralized scheduler orchestrator: it polls the
// repository for due scheduler registrations and fires them, regardless of
// their individual cron expressions.
type SchedulePoller struct {
	repository persistence.TriggerRepository
	scheduler  *services.Scheduler
	interval   time.Duration
	logger     *slog.Logger
	ticker     *time.Ticker
	done       chan struct{}
	started    bool
	mu         sync.Mutex
}

// NewSchedulePoller creates a new schedule poller. A non-positive interval
// falls back to one minute.
func NewSchedulePoller(repository persistence.TriggerRepository, scheduler *services.Scheduler, interval time.Duration, logger *slog.Logger) *SchedulePoller {
	if interval <= 0 {
		interval = defaultScheduleInterval
	}

	return &SchedulePoller{
		repository: repository,
		scheduler:  scheduler,
		interval:   interval,
		logger:     logger.With("module", "schedule_poller"),
	}
}

// Start begins the polling loop. Calling Start on a running poller is a
// no-op.
func (p *SchedulePoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	p.logger.Info("Starting schedule poller", "interval", p.interval)

	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	p.started = true

	go p.poll(ctx, p.ticker.C, p.done)

	return nil
}

// Stop shuts the poller down. An in-flight poll finishes; no new polls
// start. Stop works on its own, without the Start context being
// cancelled.
func (p *SchedulePoller) Stop(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}

	p.logger.Info("Stopping schedule poller")

	p.ticker.Stop()
	close(p.done)

	p.started = false

	return nil
}

func (p *SchedulePoller) poll(ctx context.Context, ticks <-chan time.Time, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticks:
			p.processDueTriggers(ctx)
		}
	}
}

// processDueTriggers fires every due registration independently. One
// registration's failure never blocks the rest.
func (p *SchedulePoller) processDueTriggers(ctx context.Context) {
	now := time.Now().UTC()

	due, err := p.repository.DueSchedulerTriggers(ctx, now)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to query due triggers", "error", err)

		return
	}

	if len(due) > 0 {
		p.logger.InfoContext(ctx, "Processing due triggers", "count", len(due))
	}

	for _, trigger := range due {
		if err := p.scheduler.ProcessDueTrigger(ctx, trigger, now); err != nil {
			p.logger.ErrorContext(ctx, "Failed to process due trigger",
				"trigger_id", trigger.ID,
				"workflow_id", trigger.WorkflowID,
				"error", err)

			continue
		}
	}
}
