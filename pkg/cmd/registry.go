package cmd

import (
	"log/slog"

	"github.com/flowforge/trigger/pkg/plugins/email"
	"github.com/flowforge/trigger/pkg/plugins/manual"
	"github.com/flowforge/trigger/pkg/plugins/schedule"
	"github.com/flowforge/trigger/pkg/plugins/webhook"
	"github.com/flowforge/trigger/pkg/protocol"
	"github.com/flowforge/trigger/pkg/registry"
)

// NewRegistry builds the plugin registry with the built-in trigger plugins
// registered and any external .so plugins loaded from pluginsPath. fire is
// handed to the schedule plugin for in-process cron firing and may be nil.
func NewRegistry(
	logger *slog.Logger,
	globalConfig map[string]any,
	pluginsPath string,
	fire protocol.FireFunc,
) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger, globalConfig)

	builtins := []protocol.TriggerPlugin{
		webhook.NewPlugin(logger),
		schedule.NewPlugin(logger, fire),
		email.NewPlugin(logger),
		manual.NewPlugin(logger),
	}

	for _, plugin := range builtins {
		if err := reg.Register(plugin); err != nil {
			return nil, err
		}
	}

	if err := reg.LoadPlugins(pluginsPath); err != nil {
		return nil, err
	}

	return reg, nil
}
