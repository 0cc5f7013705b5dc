package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"plugin"
	"sync/atomic"

	"github.com/flowforge/trigger/pkg/protocol"
)

// pluginSymbol is the exported symbol external plugins must provide, built
// with `go build -buildmode=plugin`.
const pluginSymbol = "TriggerPlugin"

// LoadHandle tracks one loaded shared object. Go cannot unload shared
// objects, so Release only drops the registry's references; repeated reloads
// of the same type do not pile up registry state, but the object code stays
// mapped until the process exits.
type LoadHandle struct {
	Path     string
	released atomic.Bool
}

// Release marks the handle released. Idempotent.
func (h *LoadHandle) Release() {
	h.released.Store(true)
}

// Released reports whether the handle was released.
func (h *LoadHandle) Released() bool {
	return h.released.Load()
}

// LoadPlugins scans a directory for *.so files and registers each one. A
// plugin that fails to load or initialize is logged and skipped; the rest
// still load.
func (r *Registry) LoadPlugins(pluginsPath string) error {
	if pluginsPath == "" {
		return nil
	}

	if _, err := os.Stat(pluginsPath); os.IsNotExist(err) {
		r.logger.Warn("Plugin directory does not exist, skipping", "path", pluginsPath)

		return nil
	}

	sharedObjects, err := fs.Glob(os.DirFS(pluginsPath), "*.so")
	if err != nil {
		return fmt.Errorf("failed to scan plugin directory %s: %w", pluginsPath, err)
	}

	r.logger.Info("Loading trigger plugins", "path", pluginsPath, "count", len(sharedObjects))

	for _, name := range sharedObjects {
		fullPath := filepath.Join(pluginsPath, name)

		loaded, err := openPlugin(fullPath)
		if err != nil {
			r.logger.Error("Failed to load trigger plugin, skipping",
				"path", fullPath,
				"error", err)

			continue
		}

		if err := r.register(loaded, &LoadHandle{Path: fullPath}); err != nil {
			r.logger.Error("Failed to register trigger plugin, skipping",
				"path", fullPath,
				"error", err)

			continue
		}
	}

	return nil
}

// ReloadAll unregisters every dynamically-loaded plugin and rescans the
// directory. Built-in plugins and their activations are untouched.
func (r *Registry) ReloadAll(pluginsPath string) error {
	for _, triggerType := range r.externalTypes() {
		if err := r.Unregister(triggerType); err != nil {
			r.logger.Error("Failed to unregister plugin during reload",
				"trigger_type", triggerType,
				"error", err)
		}
	}

	return r.LoadPlugins(pluginsPath)
}

// ReloadOne reloads a single dynamically-loaded plugin type. Other types'
// activations are not disturbed.
func (r *Registry) ReloadOne(pluginsPath, triggerType string) error {
	value, ok := r.plugins.Load(triggerType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, triggerType)
	}

	installed := value.(*entry)
	if installed.handle == nil {
		return fmt.Errorf("plugin %s is built-in and cannot be reloaded", triggerType)
	}

	path := installed.handle.Path

	if err := r.Unregister(triggerType); err != nil {
		return err
	}

	loaded, err := openPlugin(path)
	if err != nil {
		return err
	}

	if loaded.Type() != triggerType {
		return fmt.Errorf("plugin at %s now declares type %s, expected %s", path, loaded.Type(), triggerType)
	}

	return r.register(loaded, &LoadHandle{Path: path})
}

// openPlugin opens one shared object and resolves its TriggerPlugin symbol.
func openPlugin(path string) (protocol.TriggerPlugin, error) {
	shared, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin %s: %w", path, err)
	}

	symbol, err := shared.Lookup(pluginSymbol)
	if err != nil {
		return nil, fmt.Errorf("plugin %s has no %s symbol: %w", path, pluginSymbol, err)
	}

	loaded, ok := symbol.(protocol.TriggerPlugin)
	if !ok {
		if pointer, ok := symbol.(*protocol.TriggerPlugin); ok {
			return *pointer, nil
		}

		return nil, fmt.Errorf("plugin %s symbol %s does not implement the trigger plugin contract", path, pluginSymbol)
	}

	return loaded, nil
}
