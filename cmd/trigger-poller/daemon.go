// Package main provides the trigger poller daemon. It runs the schedule
// poller and the inbox poller in one process and shuts both down on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowforge/trigger/pkg/persistence"
	"github.com/flowforge/trigger/pkg/pollers"
	"github.com/flowforge/trigger/pkg/publisher"
	"github.com/flowforge/trigger/pkg/services"
)

type Daemon struct {
	schedulePoller *pollers.SchedulePoller
	inboxPoller    *pollers.InboxPoller
	logger         *slog.Logger
}

func NewDaemon(
	repository persistence.TriggerRepository,
	eventPublisher publisher.EventPublisher,
	imapConfig pollers.IMAPConfig,
	scheduleInterval time.Duration,
	inboxInterval time.Duration,
	logger *slog.Logger,
) *Daemon {
	schedulerService := services.NewScheduler(repository, eventPublisher, logger)
	emailService := services.NewEmail(repository, eventPublisher, logger)

	return &Daemon{
		schedulePoller: pollers.NewSchedulePoller(repository, schedulerService, scheduleInterval, logger),
		inboxPoller:    pollers.NewInboxPoller(repository, emailService, imapConfig, inboxInterval, logger),
		logger:         logger.With("module", "poller_daemon"),
	}
}

// Start runs both pollers until the context is cancelled or a shutdown
// signal arrives.
func (d *Daemon) Start(ctx context.Context) {
	dCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.logger.Info("Starting pollers")

	if err := d.schedulePoller.Start(dCtx); err != nil {
		d.logger.Error("Failed to start schedule poller", "error", err)

		return
	}

	if err := d.inboxPoller.Start(dCtx); err != nil {
		d.logger.Error("Failed to start inbox poller", "error", err)
		d.stop(dCtx)

		return
	}

	d.handleSignals(dCtx, cancel)

	<-dCtx.Done()
	d.logger.Info("Poller daemon stopped")
}

func (d *Daemon) handleSignals(ctx context.Context, cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		d.logger.Info("Received signal", "signal", sig)

		d.stop(ctx)
		cancel()
	}()
}

func (d *Daemon) stop(ctx context.Context) {
	d.logger.Info("Stopping pollers")

	if err := d.schedulePoller.Stop(ctx); err != nil {
		d.logger.Error("Failed to stop schedule poller", "error", err)
	}

	if err := d.inboxPoller.Stop(ctx); err != nil {
		d.logger.Error("Failed to stop inbox poller", "error", err)
	}
}
