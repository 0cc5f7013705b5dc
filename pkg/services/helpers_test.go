package services

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/persistence/file"
)

// capturingPublisher records published events for assertions. A non-nil
// syncErr makes PublishSync fail, simulating a broker outage.
type capturingPublisher struct {
	mu      sync.Mutex
	events  []*models.TriggerEvent
	sync    []*models.TriggerEvent
	syncErr error
}

func (p *capturingPublisher) Publish(_ context.Context, event *models.TriggerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *capturingPublisher) PublishSync(_ context.Context, event *models.TriggerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.syncErr != nil {
		return p.syncErr
	}

	p.events = append(p.events, event)
	p.sync = append(p.sync, event)

	return nil
}

func (p *capturingPublisher) Close() error {
	return nil
}

func (p *capturingPublisher) published() []*models.TriggerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*models.TriggerEvent(nil), p.events...)
}

func (p *capturingPublisher) syncPublished() []*models.TriggerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*models.TriggerEvent(nil), p.sync...)
}

func pubLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newTestServices(t *testing.T) (*Trigger, *Webhook, *Scheduler, *capturingPublisher, *file.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := file.NewPersistence(t.TempDir())
	pub := &capturingPublisher{}

	webhook := NewWebhook(repo, pub, "https://hooks.example.com", logger)
	scheduler := NewScheduler(repo, pub, logger)
	trigger := NewTrigger(repo, pub, webhook, scheduler, logger)

	return trigger, webhook, scheduler, pub, repo
}
