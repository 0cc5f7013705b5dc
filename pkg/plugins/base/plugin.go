// Package base provides the shared behavior of trigger plugins: activation
// bookkeeping, health state and schema-backed config validation.
package base

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrNotInitialized = errors.New("plugin not initialized")
	ErrInvalidConfig  = errors.New("invalid trigger configuration")
)

// Plugin carries the state every trigger plugin shares. The activation map
// is a sync.Map so request handlers, pollers and the registry can mutate it
// concurrently with atomic per-key semantics.
type Plugin struct {
	typeID      string
	name        string
	description string

	initialized atomic.Bool
	healthy     atomic.Bool

	activeWorkflows sync.Map // workflowID -> map[string]any
	logger          *slog.Logger
}

func NewPlugin(typeID, name, description string, logger *slog.Logger) *Plugin {
	p := &Plugin{
		typeID:      typeID,
		name:        name,
		description: description,
		logger:      logger.With("module", typeID+"_plugin"),
	}
	p.healthy.Store(true)

	return p
}

func (p *Plugin) Type() string        { return p.typeID }
func (p *Plugin) Name() string        { return p.name }
func (p *Plugin) Description() string { return p.description }

func (p *Plugin) Logger() *slog.Logger { return p.logger }

// Initialize marks the plugin ready. Idempotent.
func (p *Plugin) Initialize(_ map[string]any) error {
	p.logger.Info("Initializing trigger plugin", "type", p.typeID)
	p.initialized.Store(true)

	return nil
}

func (p *Plugin) Initialized() bool { return p.initialized.Load() }

// Activate records a workflow activation after the standard lifecycle
// checks. Concrete plugins call this from Start once their own validation
// passed.
func (p *Plugin) Activate(workflowID string, config map[string]any) error {
	if !p.initialized.Load() {
		return ErrNotInitialized
	}

	p.logger.Info("Starting trigger for workflow", "type", p.typeID, "workflow_id", workflowID)
	p.activeWorkflows.Store(workflowID, config)

	return nil
}

// Deactivate removes a workflow activation. Safe when never activated.
func (p *Plugin) Deactivate(workflowID string) {
	p.logger.Info("Stopping trigger for workflow", "type", p.typeID, "workflow_id", workflowID)
	p.activeWorkflows.Delete(workflowID)
}

func (p *Plugin) IsActive(workflowID string) bool {
	_, ok := p.activeWorkflows.Load(workflowID)

	return ok
}

func (p *Plugin) WorkflowConfig(workflowID string) (map[string]any, bool) {
	value, ok := p.activeWorkflows.Load(workflowID)
	if !ok {
		return nil, false
	}

	config, ok := value.(map[string]any)

	return config, ok
}

func (p *Plugin) ActiveWorkflowIDs() []string {
	ids := make([]string, 0)

	p.activeWorkflows.Range(func(key, _ any) bool {
		if id, ok := key.(string); ok {
			ids = append(ids, id)
		}

		return true
	})

	return ids
}

func (p *Plugin) SetHealthy(healthy bool) { p.healthy.Store(healthy) }

func (p *Plugin) Healthy() bool {
	return p.initialized.Load() && p.healthy.Load()
}

// ProcessEvent is the default normalization: a fresh event of this plugin's
// type with nil maps replaced by empty ones.
func (p *Plugin) ProcessEvent(payload map[string]any, metadata map[string]any) *models.TriggerEvent {
	return models.NewTriggerEvent(p.typeID, payload, metadata)
}

// Status returns the common runtime snapshot. Concrete plugins may add
// type-specific keys on top of the returned map.
func (p *Plugin) Status() map[string]any {
	ids := p.ActiveWorkflowIDs()

	return map[string]any{
		"type":            p.typeID,
		"name":            p.name,
		"initialized":     p.initialized.Load(),
		"healthy":         p.healthy.Load(),
		"activeWorkflows": len(ids),
		"workflowIds":     ids,
	}
}

// Destroy clears all activations and resets lifecycle state.
func (p *Plugin) Destroy() error {
	p.logger.Info("Destroying trigger plugin", "type", p.typeID)

	p.activeWorkflows.Range(func(key, _ any) bool {
		p.activeWorkflows.Delete(key)

		return true
	})
	p.initialized.Store(false)

	return nil
}

// ValidateAgainstSchema checks a configuration document against a JSON
// Schema expressed as a Go map (the shape ConfigSchema returns).
func ValidateAgainstSchema(schema, config map[string]any) bool {
	if config == nil {
		return false
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return false
	}

	return result.Valid()
}

// InvalidConfigError wraps ErrInvalidConfig with the plugin type for the
// caller-facing message.
func InvalidConfigError(typeID string) error {
	return fmt.Errorf("%w for trigger type %q", ErrInvalidConfig, typeID)
}
