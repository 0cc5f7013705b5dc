// Package registry manages the installed trigger plugins: built-ins compiled
// into the binary and external ones loaded from shared objects.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flowforge/trigger/pkg/protocol"
)

// ErrPluginNotFound is returned when no plugin is registered for a trigger
// type.
var ErrPluginNotFound = errors.New("trigger plugin not registered")

type entry struct {
	plugin protocol.TriggerPlugin
	handle *LoadHandle // nil for built-ins
}

// Registry is the concurrent plugin table. It is safe for use from request
// handlers and pollers at the same time.
type Registry struct {
	logger       *slog.Logger
	globalConfig map[string]any
	plugins      sync.Map // trigger type -> *entry
}

// NewRegistry creates a registry. globalConfig is handed to every plugin's
// Initialize.
func NewRegistry(logger *slog.Logger, globalConfig map[string]any) *Registry {
	return &Registry{
		logger:       logger.With("module", "plugin_registry"),
		globalConfig: globalConfig,
	}
}

// Register initializes and installs a built-in plugin. A failed Initialize
// aborts the registration. Replacing an already-registered type logs a
// warning and fully unregisters the old instance first.
func (r *Registry) Register(plugin protocol.TriggerPlugin) error {
	return r.register(plugin, nil)
}

func (r *Registry) register(plugin protocol.TriggerPlugin, handle *LoadHandle) error {
	triggerType := plugin.Type()

	if _, exists := r.plugins.Load(triggerType); exists {
		r.logger.Warn("Replacing registered trigger plugin", "trigger_type", triggerType)

		if err := r.Unregister(triggerType); err != nil {
			r.logger.Error("Failed to unregister replaced plugin",
				"trigger_type", triggerType,
				"error", err)
		}
	}

	if err := plugin.Initialize(r.globalConfig); err != nil {
		return fmt.Errorf("failed to initialize plugin %s: %w", triggerType, err)
	}

	r.plugins.Store(triggerType, &entry{plugin: plugin, handle: handle})

	r.logger.Info("Trigger plugin registered",
		"trigger_type", triggerType,
		"name", plugin.Name(),
		"external", handle != nil)

	return nil
}

// Unregister destroys a plugin (stopping all of its active workflows),
// removes it from the table and releases its load handle.
func (r *Registry) Unregister(triggerType string) error {
	value, loaded := r.plugins.LoadAndDelete(triggerType)
	if !loaded {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, triggerType)
	}

	installed := value.(*entry)

	err := installed.plugin.Destroy()

	if installed.handle != nil {
		installed.handle.Release()
	}

	if err != nil {
		return fmt.Errorf("failed to destroy plugin %s: %w", triggerType, err)
	}

	r.logger.Info("Trigger plugin unregistered", "trigger_type", triggerType)

	return nil
}

// Plugin returns the plugin registered for a trigger type.
func (r *Registry) Plugin(triggerType string) (protocol.TriggerPlugin, error) {
	value, ok := r.plugins.Load(triggerType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, triggerType)
	}

	return value.(*entry).plugin, nil
}

// Plugins returns every registered plugin.
func (r *Registry) Plugins() []protocol.TriggerPlugin {
	var plugins []protocol.TriggerPlugin

	r.plugins.Range(func(_, value any) bool {
		plugins = append(plugins, value.(*entry).plugin)

		return true
	})

	return plugins
}

// Status returns every plugin's status snapshot keyed by trigger type.
func (r *Registry) Status() map[string]map[string]any {
	status := make(map[string]map[string]any)

	r.plugins.Range(func(key, value any) bool {
		status[key.(string)] = value.(*entry).plugin.Status()

		return true
	})

	return status
}

// StartTrigger activates a workflow on the plugin for the given type.
func (r *Registry) StartTrigger(triggerType, workflowID string, config map[string]any) error {
	plugin, err := r.Plugin(triggerType)
	if err != nil {
		return err
	}

	return plugin.Start(workflowID, config)
}

// StopTrigger deactivates a workflow on the plugin for the given type.
func (r *Registry) StopTrigger(triggerType, workflowID string) error {
	plugin, err := r.Plugin(triggerType)
	if err != nil {
		return err
	}

	return plugin.Stop(workflowID)
}

// HealthCheck reports per-type health and overall health.
func (r *Registry) HealthCheck(_ context.Context) (map[string]bool, bool) {
	health := make(map[string]bool)
	healthy := true

	r.plugins.Range(func(key, value any) bool {
		ok := value.(*entry).plugin.Healthy()
		health[key.(string)] = ok
		healthy = healthy && ok

		return true
	})

	return health, healthy
}

// externalTypes returns the trigger types that were dynamically loaded.
func (r *Registry) externalTypes() []string {
	var types []string

	r.plugins.Range(func(key, value any) bool {
		if value.(*entry).handle != nil {
			types = append(types, key.(string))
		}

		return true
	})

	return types
}
