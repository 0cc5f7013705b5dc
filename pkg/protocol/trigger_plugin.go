// Package protocol defines the contract every trigger plugin implements.
package protocol

import (
	"github.com/flowforge/trigger/pkg/models"
)

// TriggerPlugin is the capability interface of one trigger mechanism
// (webhook, scheduler, email, manual, or a dynamically loaded type).
//
// Lifecycle: Initialize is called once when the plugin is registered and must
// be idempotent. Start/Stop manage per-workflow activation. Destroy releases
// every resource and stops all active workflows; after Destroy the plugin is
// no longer usable.
type TriggerPlugin interface {
	// Type returns the stable type identifier, e.g. "webhook".
	Type() string

	// Name returns a human-readable name.
	Name() string

	// Description explains what this trigger does.
	Description() string

	// ConfigSchema returns the JSON Schema describing the configuration
	// document this plugin accepts. Used for validation and UI generation.
	ConfigSchema() map[string]any

	// Initialize prepares the plugin with service-wide configuration.
	Initialize(globalConfig map[string]any) error

	// Start begins producing events for a workflow. It fails when the
	// plugin is not initialized or the configuration is invalid.
	Start(workflowID string, config map[string]any) error

	// Stop ceases event production for a workflow. Safe to call for a
	// workflow that was never started.
	Stop(workflowID string) error

	// ValidateConfig reports whether the configuration document satisfies
	// the plugin's schema.
	ValidateConfig(config map[string]any) bool

	// ProcessEvent normalizes raw trigger data into the common event shape.
	ProcessEvent(payload map[string]any, metadata map[string]any) *models.TriggerEvent

	// Healthy reports whether the plugin is initialized and operational.
	Healthy() bool

	// Status returns a structured snapshot of the plugin's runtime state.
	Status() map[string]any

	// Destroy stops all active workflows and releases all resources.
	Destroy() error
}

// FireFunc is invoked by plugins that fire in-process (e.g. the schedule
// plugin's cron entries) to hand a built event to the publication pipeline.
type FireFunc func(event *models.TriggerEvent)
