package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/persistence"
	"github.com/lib/pq"
)

const triggerColumns = `
		id
	  , workflow_id
	  , user_id
	  , trigger_type
	  , configuration
	  , enabled
	  , webhook_url
	  , webhook_token
	  , last_triggered_at
	  , next_scheduled_at
	  , created_at
	  , updated_at
`

// TriggerRegistrationRepository handles registration-related database
// operations.
type TriggerRegistrationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTriggerRegistrationRepository creates a new registration repository.
func NewTriggerRegistrationRepository(db *sql.DB, logger *slog.Logger) *TriggerRegistrationRepository {
	return &TriggerRegistrationRepository{db: db, logger: logger}
}

// Create inserts a new registration row.
func (r *TriggerRegistrationRepository) Create(ctx context.Context, trigger *models.TriggerRegistration) error {
	configJSON, err := json.Marshal(trigger.Config())
	if err != nil {
		return persistence.NewTriggerError("Create", trigger.ID, fmt.Errorf("failed to marshal configuration: %w", err))
	}

	query := `
		INSERT INTO trigger_registrations (
			id, workflow_id, user_id, trigger_type, configuration, enabled,
			webhook_url, webhook_token, last_triggered_at, next_scheduled_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		trigger.ID,
		trigger.WorkflowID,
		trigger.UserID,
		trigger.TriggerType,
		configJSON,
		trigger.Enabled,
		nullString(trigger.WebhookURL),
		nullString(trigger.WebhookToken),
		nullTime(trigger.LastTriggeredAt),
		nullTime(trigger.NextScheduledAt),
		trigger.CreatedAt,
		trigger.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			if pqErr.Constraint == "idx_trigger_registrations_webhook_token" {
				return persistence.NewTriggerError("Create", trigger.ID, persistence.ErrWebhookTokenTaken)
			}

			return persistence.NewTriggerError("Create", trigger.ID, persistence.ErrTriggerAlreadyExists)
		}

		return persistence.NewTriggerError("Create", trigger.ID, err)
	}

	return nil
}

// Update rewrites the mutable fields of an existing registration. The
// webhook token column is deliberately absent from the SET list.
func (r *TriggerRegistrationRepository) Update(ctx context.Context, trigger *models.TriggerRegistration) error {
	configJSON, err := json.Marshal(trigger.Config())
	if err != nil {
		return persistence.NewTriggerError("Update", trigger.ID, fmt.Errorf("failed to marshal configuration: %w", err))
	}

	query := `
		UPDATE trigger_registrations SET
			trigger_type = $2,
			configuration = $3,
			enabled = $4,
			webhook_url = $5,
			last_triggered_at = $6,
			next_scheduled_at = $7,
			updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		trigger.ID,
		trigger.TriggerType,
		configJSON,
		trigger.Enabled,
		nullString(trigger.WebhookURL),
		nullTime(trigger.LastTriggeredAt),
		nullTime(trigger.NextScheduledAt),
		trigger.UpdatedAt,
	)
	if err != nil {
		return persistence.NewTriggerError("Update", trigger.ID, err)
	}

	return r.requireRow(result, "Update", trigger.ID)
}

// UpdateSchedulingState writes only next_scheduled_at for one registration.
func (r *TriggerRegistrationRepository) UpdateSchedulingState(ctx context.Context, id string, nextScheduledAt *time.Time) error {
	query := `
		UPDATE trigger_registrations SET
			next_scheduled_at = $2,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, nullTime(nextScheduledAt))
	if err != nil {
		return persistence.NewTriggerError("UpdateSchedulingState", id, err)
	}

	return r.requireRow(result, "UpdateSchedulingState", id)
}

// MarkTriggerFired records the last fired time for one registration.
func (r *TriggerRegistrationRepository) MarkTriggerFired(ctx context.Context, id string, firedAt time.Time) error {
	query := `
		UPDATE trigger_registrations SET
			last_triggered_at = $2,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, firedAt)
	if err != nil {
		return persistence.NewTriggerError("MarkTriggerFired", id, err)
	}

	return r.requireRow(result, "MarkTriggerFired", id)
}

// Delete removes a registration row permanently.
func (r *TriggerRegistrationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM trigger_registrations WHERE id = $1", id)
	if err != nil {
		return persistence.NewTriggerError("Delete", id, err)
	}

	return r.requireRow(result, "Delete", id)
}

// GetByID returns a registration by its primary key.
func (r *TriggerRegistrationRepository) GetByID(ctx context.Context, id string) (*models.TriggerRegistration, error) {
	query := `SELECT` + triggerColumns + `FROM trigger_registrations WHERE id = $1`

	trigger, err := r.scanTrigger(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTriggerError("GetByID", id, persistence.ErrTriggerNotFound)
		}

		return nil, persistence.NewTriggerError("GetByID", id, err)
	}

	return trigger, nil
}

// GetByWebhookToken resolves a registration by its public webhook token.
func (r *TriggerRegistrationRepository) GetByWebhookToken(ctx context.Context, token string) (*models.TriggerRegistration, error) {
	query := `SELECT` + triggerColumns + `FROM trigger_registrations WHERE webhook_token = $1`

	trigger, err := r.scanTrigger(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTriggerError("GetByWebhookToken", "", persistence.ErrTriggerNotFound)
		}

		return nil, persistence.NewTriggerError("GetByWebhookToken", "", err)
	}

	return trigger, nil
}

// ListByUser returns all registrations owned by a user, newest first.
func (r *TriggerRegistrationRepository) ListByUser(ctx context.Context, userID string) ([]*models.TriggerRegistration, error) {
	query := `SELECT` + triggerColumns + `FROM trigger_registrations WHERE user_id = $1 ORDER BY created_at DESC`

	return r.queryTriggers(ctx, "ListByUser", query, userID)
}

// ListByWorkflow returns all registrations bound to a workflow.
func (r *TriggerRegistrationRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.TriggerRegistration, error) {
	query := `SELECT` + triggerColumns + `FROM trigger_registrations WHERE workflow_id = $1 ORDER BY created_at DESC`

	return r.queryTriggers(ctx, "ListByWorkflow", query, workflowID)
}

// ListEnabledByType returns enabled registrations of one trigger type.
func (r *TriggerRegistrationRepository) ListEnabledByType(ctx context.Context, triggerType string) ([]*models.TriggerRegistration, error) {
	query := `SELECT` + triggerColumns + `FROM trigger_registrations WHERE trigger_type = $1 AND enabled ORDER BY created_at DESC`

	return r.queryTriggers(ctx, "ListEnabledByType", query, triggerType)
}

// ListDueSchedulers returns enabled scheduler registrations due at or before
// now, soonest first.
func (r *TriggerRegistrationRepository) ListDueSchedulers(ctx context.Context, now time.Time) ([]*models.TriggerRegistration, error) {
	query := `SELECT` + triggerColumns + `
		FROM trigger_registrations
		WHERE trigger_type = 'scheduler'
		  AND enabled
		  AND next_scheduled_at IS NOT NULL
		  AND next_scheduled_at <= $1
		ORDER BY next_scheduled_at ASC
	`

	return r.queryTriggers(ctx, "ListDueSchedulers", query, now)
}

func (r *TriggerRegistrationRepository) queryTriggers(ctx context.Context, op, query string, args ...any) ([]*models.TriggerRegistration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewTriggerError(op, "", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	triggers := make([]*models.TriggerRegistration, 0)

	for rows.Next() {
		trigger, err := r.scanTrigger(rows)
		if err != nil {
			return nil, persistence.NewTriggerError(op, "", err)
		}

		triggers = append(triggers, trigger)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewTriggerError(op, "", err)
	}

	return triggers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TriggerRegistrationRepository) scanTrigger(row rowScanner) (*models.TriggerRegistration, error) {
	var (
		trigger         models.TriggerRegistration
		configJSON      []byte
		webhookURL      sql.NullString
		webhookToken    sql.NullString
		lastTriggeredAt sql.NullTime
		nextScheduledAt sql.NullTime
	)

	err := row.Scan(
		&trigger.ID,
		&trigger.WorkflowID,
		&trigger.UserID,
		&trigger.TriggerType,
		&configJSON,
		&trigger.Enabled,
		&webhookURL,
		&webhookToken,
		&lastTriggeredAt,
		&nextScheduledAt,
		&trigger.CreatedAt,
		&trigger.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &trigger.Configuration); err != nil {
			return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
		}
	}

	trigger.WebhookURL = webhookURL.String
	trigger.WebhookToken = webhookToken.String

	if lastTriggeredAt.Valid {
		trigger.LastTriggeredAt = &lastTriggeredAt.Time
	}

	if nextScheduledAt.Valid {
		trigger.NextScheduledAt = &nextScheduledAt.Time
	}

	return &trigger, nil
}

func (r *TriggerRegistrationRepository) requireRow(result sql.Result, op, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewTriggerError(op, id, err)
	}

	if affected == 0 {
		return persistence.NewTriggerError(op, id, persistence.ErrTriggerNotFound)
	}

	return nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *value, Valid: true}
}
