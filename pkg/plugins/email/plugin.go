// Package email implements the inbox-polling trigger plugin. The IMAP
// connection handling lives in the inbox poller; the plugin owns activation
// state, config validation and message filtering.
package email

import (
	"log/slog"
	"strings"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/plugins/base"
)

type Plugin struct {
	*base.Plugin
}

func NewPlugin(logger *slog.Logger) *Plugin {
	return &Plugin{
		Plugin: base.NewPlugin(
			models.TriggerTypeEmail,
			"Email",
			"Trigger workflow execution from unseen inbox messages",
			logger,
		),
	}
}

func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Email Trigger Configuration",
		"description": "Configuration for inbox-polling workflow triggering",
		"properties": map[string]any{
			"emailAddress": map[string]any{
				"type":        "string",
				"description": "Mailbox address to monitor; also used as the IMAP login when no username is given",
			},
			"username": map[string]any{
				"type":        "string",
				"description": "IMAP login, defaults to emailAddress",
			},
			"password": map[string]any{
				"type":        "string",
				"description": "IMAP password",
			},
			"folder": map[string]any{
				"type":        "string",
				"description": "Mailbox folder to poll",
				"default":     "INBOX",
			},
			"subjectContains": map[string]any{
				"type":        "string",
				"description": "Case-insensitive substring the subject must contain",
			},
			"fromAddress": map[string]any{
				"type":        "string",
				"description": "Case-insensitive substring the sender must contain",
			},
		},
		"required": []string{"emailAddress"},
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

// MatchesFilters applies the per-registration filters to extracted message
// data. Both filters are case-insensitive substring checks; a message that
// fails a filter is skipped, never an error.
func MatchesFilters(config map[string]any, subject, from string) bool {
	if filter, ok := config["subjectContains"].(string); ok && filter != "" {
		if !strings.Contains(strings.ToLower(subject), strings.ToLower(filter)) {
			return false
		}
	}

	if filter, ok := config["fromAddress"].(string); ok && filter != "" {
		if !strings.Contains(strings.ToLower(from), strings.ToLower(filter)) {
			return false
		}
	}

	return true
}
