package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/persistence"
)

const triggerFileMode = 0o644

// TriggerRegistrationRepository stores each registration as a JSON document
// under <root>/triggers/<id>.json. A process-wide RWMutex serializes writers;
// this repository is not safe for use from multiple processes.
type TriggerRegistrationRepository struct {
	root string
	mu   sync.RWMutex
}

// NewTriggerRegistrationRepository creates a new registration repository.
func NewTriggerRegistrationRepository(root string) *TriggerRegistrationRepository {
	return &TriggerRegistrationRepository{root: root}
}

func (tr *TriggerRegistrationRepository) triggersDir() string {
	return path.Join(tr.root, "triggers")
}

func (tr *TriggerRegistrationRepository) triggerPath(id string) string {
	return path.Join(tr.triggersDir(), id+".json")
}

// Create persists a new registration document.
func (tr *TriggerRegistrationRepository) Create(_ context.Context, trigger *models.TriggerRegistration) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, err := os.Stat(tr.triggerPath(trigger.ID)); err == nil {
		return persistence.NewTriggerError("Create", trigger.ID, persistence.ErrTriggerAlreadyExists)
	}

	return tr.write("Create", trigger)
}

// Update rewrites an existing registration document.
func (tr *TriggerRegistrationRepository) Update(_ context.Context, trigger *models.TriggerRegistration) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, err := os.Stat(tr.triggerPath(trigger.ID)); os.IsNotExist(err) {
		return persistence.NewTriggerError("Update", trigger.ID, persistence.ErrTriggerNotFound)
	}

	return tr.write("Update", trigger)
}

// UpdateSchedulingState writes only the next fire time of one registration.
func (tr *TriggerRegistrationRepository) UpdateSchedulingState(_ context.Context, id string, nextScheduledAt *time.Time) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	trigger, err := tr.read("UpdateSchedulingState", id)
	if err != nil {
		return err
	}

	trigger.NextScheduledAt = nextScheduledAt
	trigger.UpdatedAt = time.Now().UTC()

	return tr.write("UpdateSchedulingState", trigger)
}

// MarkTriggerFired records the last fired time of one registration.
func (tr *TriggerRegistrationRepository) MarkTriggerFired(_ context.Context, id string, firedAt time.Time) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	trigger, err := tr.read("MarkTriggerFired", id)
	if err != nil {
		return err
	}

	trigger.LastTriggeredAt = &firedAt
	trigger.UpdatedAt = time.Now().UTC()

	return tr.write("MarkTriggerFired", trigger)
}

// Delete removes a registration document permanently.
func (tr *TriggerRegistrationRepository) Delete(_ context.Context, id string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	err := os.Remove(tr.triggerPath(id))
	if os.IsNotExist(err) {
		return persistence.NewTriggerError("Delete", id, persistence.ErrTriggerNotFound)
	}

	if err != nil {
		return persistence.NewTriggerError("Delete", id, err)
	}

	return nil
}

// GetByID loads one registration document.
func (tr *TriggerRegistrationRepository) GetByID(_ context.Context, id string) (*models.TriggerRegistration, error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	return tr.read("GetByID", id)
}

// GetByWebhookToken scans all registrations for the given webhook token.
func (tr *TriggerRegistrationRepository) GetByWebhookToken(ctx context.Context, token string) (*models.TriggerRegistration, error) {
	triggers, err := tr.list(ctx, "GetByWebhookToken")
	if err != nil {
		return nil, err
	}

	for _, trigger := range triggers {
		if trigger.WebhookToken != "" && trigger.WebhookToken == token {
			return trigger, nil
		}
	}

	return nil, persistence.NewTriggerError("GetByWebhookToken", "", persistence.ErrTriggerNotFound)
}

// ListByUser returns all registrations owned by a user, newest first.
func (tr *TriggerRegistrationRepository) ListByUser(ctx context.Context, userID string) ([]*models.TriggerRegistration, error) {
	return tr.filter(ctx, "ListByUser", func(t *models.TriggerRegistration) bool {
		return t.UserID == userID
	})
}

// ListByWorkflow returns all registrations bound to a workflow.
func (tr *TriggerRegistrationRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.TriggerRegistration, error) {
	return tr.filter(ctx, "ListByWorkflow", func(t *models.TriggerRegistration) bool {
		return t.WorkflowID == workflowID
	})
}

// ListEnabledByType returns enabled registrations of one trigger type.
func (tr *TriggerRegistrationRepository) ListEnabledByType(ctx context.Context, triggerType string) ([]*models.TriggerRegistration, error) {
	return tr.filter(ctx, "ListEnabledByType", func(t *models.TriggerRegistration) bool {
		return t.Enabled && t.TriggerType == triggerType
	})
}

// ListDueSchedulers returns enabled scheduler registrations due at or before
// now, soonest first.
func (tr *TriggerRegistrationRepository) ListDueSchedulers(ctx context.Context, now time.Time) ([]*models.TriggerRegistration, error) {
	due, err := tr.filter(ctx, "ListDueSchedulers", func(t *models.TriggerRegistration) bool {
		return t.TriggerType == models.TriggerTypeScheduler && t.IsDue(now)
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextScheduledAt.Before(*due[j].NextScheduledAt)
	})

	return due, nil
}

func (tr *TriggerRegistrationRepository) filter(ctx context.Context, op string, keep func(*models.TriggerRegistration) bool) ([]*models.TriggerRegistration, error) {
	all, err := tr.list(ctx, op)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.TriggerRegistration, 0)

	for _, trigger := range all {
		if keep(trigger) {
			matched = append(matched, trigger)
		}
	}

	return matched, nil
}

func (tr *TriggerRegistrationRepository) list(_ context.Context, op string) ([]*models.TriggerRegistration, error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	if _, err := os.Stat(tr.triggersDir()); os.IsNotExist(err) {
		return make([]*models.TriggerRegistration, 0), nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(tr.triggersDir()), "*.json")
	if err != nil {
		return nil, persistence.NewTriggerError(op, "", fmt.Errorf("failed to list trigger files: %w", err))
	}

	triggers := make([]*models.TriggerRegistration, 0, len(jsonFiles))

	for _, fileName := range jsonFiles {
		id := fileName[:len(fileName)-len(".json")]

		trigger, err := tr.read(op, id)
		if err != nil {
			return nil, err
		}

		triggers = append(triggers, trigger)
	}

	sort.Slice(triggers, func(i, j int) bool {
		return triggers[i].CreatedAt.After(triggers[j].CreatedAt)
	})

	return triggers, nil
}

func (tr *TriggerRegistrationRepository) read(op, id string) (*models.TriggerRegistration, error) {
	data, err := os.ReadFile(tr.triggerPath(id))
	if os.IsNotExist(err) {
		return nil, persistence.NewTriggerError(op, id, persistence.ErrTriggerNotFound)
	}

	if err != nil {
		return nil, persistence.NewTriggerError(op, id, err)
	}

	var trigger models.TriggerRegistration

	if err := json.Unmarshal(data, &trigger); err != nil {
		return nil, persistence.NewTriggerError(op, id, fmt.Errorf("failed to unmarshal trigger: %w", err))
	}

	return &trigger, nil
}

func (tr *TriggerRegistrationRepository) write(op string, trigger *models.TriggerRegistration) error {
	if err := os.MkdirAll(tr.triggersDir(), 0o755); err != nil {
		return persistence.NewTriggerError(op, trigger.ID, fmt.Errorf("failed to create triggers directory: %w", err))
	}

	data, err := json.MarshalIndent(trigger, "", "  ")
	if err != nil {
		return persistence.NewTriggerError(op, trigger.ID, fmt.Errorf("failed to marshal trigger: %w", err))
	}

	tmpPath := filepath.Join(tr.triggersDir(), "."+trigger.ID+".json.tmp")

	if err := os.WriteFile(tmpPath, data, triggerFileMode); err != nil {
		return persistence.NewTriggerError(op, trigger.ID, err)
	}

	if err := os.Rename(tmpPath, tr.triggerPath(trigger.ID)); err != nil {
		return persistence.NewTriggerError(op, trigger.ID, err)
	}

	return nil
}
