// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/flowforge/trigger/pkg/persistence"
	"github.com/flowforge/trigger/pkg/persistence/file"
	"github.com/flowforge/trigger/pkg/persistence/postgresql"
)

// NewPersistence picks the repository implementation from the database URL
// scheme: postgres:// selects PostgreSQL, anything else falls back to the
// file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.TriggerRepository, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}
