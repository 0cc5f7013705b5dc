// Package postgresql provides the PostgreSQL persistence implementation for
// trigger registrations.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/persistence/sqlbase"
)

// Persistence implements persistence.TriggerRepository for PostgreSQL.
type Persistence struct {
	db          *sql.DB
	logger      *slog.Logger
	triggerRepo *TriggerRegistrationRepository
}

// NewPersistence connects, runs pending migrations and returns the
// repository.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:          database,
		logger:      logger,
		triggerRepo: NewTriggerRegistrationRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Create(ctx context.Context, trigger *models.TriggerRegistration) error {
	return p.triggerRepo.Create(ctx, trigger)
}

func (p *Persistence) Update(ctx context.Context, trigger *models.TriggerRegistration) error {
	return p.triggerRepo.Update(ctx, trigger)
}

func (p *Persistence) UpdateSchedulingState(ctx context.Context, id string, nextScheduledAt *time.Time) error {
	return p.triggerRepo.UpdateSchedulingState(ctx, id, nextScheduledAt)
}

func (p *Persistence) MarkTriggerFired(ctx context.Context, id string, firedAt time.Time) error {
	return p.triggerRepo.MarkTriggerFired(ctx, id, firedAt)
}

func (p *Persistence) Delete(ctx context.Context, id string) error {
	return p.triggerRepo.Delete(ctx, id)
}

func (p *Persistence) TriggerByID(ctx context.Context, id string) (*models.TriggerRegistration, error) {
	return p.triggerRepo.GetByID(ctx, id)
}

func (p *Persistence) TriggerByWebhookToken(ctx context.Context, token string) (*models.TriggerRegistration, error) {
	return p.triggerRepo.GetByWebhookToken(ctx, token)
}

func (p *Persistence) TriggersByUser(ctx context.Context, userID string) ([]*models.TriggerRegistration, error) {
	return p.triggerRepo.ListByUser(ctx, userID)
}

func (p *Persistence) TriggersByWorkflow(ctx context.Context, workflowID string) ([]*models.TriggerRegistration, error) {
	return p.triggerRepo.ListByWorkflow(ctx, workflowID)
}

func (p *Persistence) EnabledTriggersByType(ctx context.Context, triggerType string) ([]*models.TriggerRegistration, error) {
	return p.triggerRepo.ListEnabledByType(ctx, triggerType)
}

func (p *Persistence) DueSchedulerTriggers(ctx context.Context, now time.Time) ([]*models.TriggerRegistration, error) {
	return p.triggerRepo.ListDueSchedulers(ctx, now)
}
