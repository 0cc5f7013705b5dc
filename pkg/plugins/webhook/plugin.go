// Package webhook implements the webhook trigger plugin. The HTTP surface
// (token lookup, request normalization) lives in the webhook service; the
// plugin owns activation state and event normalization.
package webhook

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
			models.TriggerTypeWebhook,
			"Webhook",
			"Trigger workflow execution via unique HTTP webhook URLs",
			logger,
		),
	}
}

func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Webhook Trigger Configuration",
		"description": "Configuration for HTTP webhook-based workflow triggering",
		"properties": map[string]any{
			"description": map[string]any{
				"type":        "string",
				"description": "Free-form note about what calls this webhook",
			},
			"allowedMethods": map[string]any{
				"type":        "array",
				"description": "HTTP methods accepted by this webhook",
				"items": map[string]any{
					"type": "string",
					"enum": []string{"GET", "POST"},
				},
				"default": []string{"GET", "POST"},
			},
		},
	}
}

func (p *Plugin) ValidateConfig(config map[string]any) bool {
	return base.ValidateAgainstSchema(p.ConfigSchema(), config)
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
