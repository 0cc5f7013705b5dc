// Package manual implements the manual trigger plugin: firing is driven
// entirely by API calls, no stored registration state is required.
package manual

import (
	"log/slog"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/plugins/base"
)

type Plugin struct {
	*base.Plugin
}

func NewPlugin(logger *slog.Logger) *Plugin {
	return &Plugin{
		Plugin: base.NewPlugin(
			models.TriggerTypeManual,
			"Manual",
			"Trigger workflow execution on demand with a caller-supplied payload",
			logger,
		),
	}
}

func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Manual Trigger Configuration",
		"description": "Manual triggers take no configuration",
	}
}

func (p *Plugin) ValidateConfig(config map[string]any) bool {
	return config != nil
}

func (p *Plugin) Start(workflowID string, config map[string]any) error {
	if !p.ValidateConfig(config) {
		return base.InvalidConfigError(p.Type())
	}

	return p.Activate(workflowID, config)
}

func (p *Plugin) Stop(workflowID string) error {
	p.Deactivate(workflowID)

	return nil
}
