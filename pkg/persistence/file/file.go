// Package file provides a file system persistence implementation for trigger
// registrations, intended for development and tests.
package file

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/flowforge/trigger/pkg/models"
)

// Persistence implements persistence.TriggerRepository on the local file
// system. Each registration is one JSON document under <root>/triggers.
type Persistence struct {
	root        string
	triggerRepo *TriggerRegistrationRepository
}

// NewPersistence creates a new instance rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:        cleanRoot,
		triggerRepo: NewTriggerRegistrationRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Create(ctx context.Context, trigger *models.TriggerRegistration) error {
	return fp.triggerRepo.Create(ctx, trigger)
}

func (fp *Persistence) Update(ctx context.Context, trigger *models.TriggerRegistration) error {
	return fp.triggerRepo.Update(ctx, trigger)
}

func (fp *Persistence) UpdateSchedulingState(ctx context.Context, id string, nextScheduledAt *time.Time) error {
	return fp.triggerRepo.UpdateSchedulingState(ctx, id, nextScheduledAt)
}

func (fp *Persistence) MarkTriggerFired(ctx context.Context, id string, firedAt time.Time) error {
	return fp.triggerRepo.MarkTriggerFired(ctx, id, firedAt)
}

func (fp *Persistence) Delete(ctx context.Context, id string) error {
	return fp.triggerRepo.Delete(ctx, id)
}

func (fp *Persistence) TriggerByID(ctx context.Context, id string) (*models.TriggerRegistration, error) {
	return fp.triggerRepo.GetByID(ctx, id)
}

func (fp *Persistence) TriggerByWebhookToken(ctx context.Context, token string) (*models.TriggerRegistration, error) {
	return fp.triggerRepo.GetByWebhookToken(ctx, token)
}

func (fp *Persistence) TriggersByUser(ctx context.Context, userID string) ([]*models.TriggerRegistration, error) {
	return fp.triggerRepo.ListByUser(ctx, userID)
}

func (fp *Persistence) TriggersByWorkflow(ctx context.Context, workflowID string) ([]*models.TriggerRegistration, error) {
	return fp.triggerRepo.ListByWorkflow(ctx, workflowID)
}

func (fp *Persistence) EnabledTriggersByType(ctx context.Context, triggerType string) ([]*models.TriggerRegistration, error) {
	return fp.triggerRepo.ListEnabledByType(ctx, triggerType)
}

func (fp *Persistence) DueSchedulerTriggers(ctx context.Context, now time.Time) ([]*models.TriggerRegistration, error) {
	return fp.triggerRepo.ListDueSchedulers(ctx, now)
}
