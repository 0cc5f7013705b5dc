// Package schedule implements the schedule trigger plugin. When a workflow
// is started with a cron expression the plugin fires in-process through a
// robfig/cron entry; interval-only registrations are fired by the
// persistence-backed poller instead.
package schedule

import (
	"log/slog"
	"sync"
	"time"

	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/plugins/base"
	"github.com/flowforge/trigger/pkg/protocol"
	"github.com/robfig/cron/v3"
)

type Plugin struct {
	*base.Plugin

	fire    protocol.FireFunc
	cron    *cron.Cron
	entries sync.Map // workflowID -> cron.EntryID
}

// NewPlugin builds the schedule plugin. fire may be nil when in-process
// firing is not wired (e.g. the API process, where only the poller fires).
func NewPlugin(logger *slog.Logger, fire protocol.FireFunc) *Plugin {
	return &Plugin{
		Plugin: base.NewPlugin(
			models.TriggerTypeScheduler,
			"Schedule",
			"Trigger workflow execution on a cron or interval schedule",
			logger,
		),
		fire: fire,
	}
}

func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Schedule Trigger Configuration",
		"description": "Configuration for time-based workflow triggering",
		"properties": map[string]any{
			"cron": map[string]any{
				"type":        "string",
				"description": "Standard 5-field cron expression (minute hour dom month dow)",
				"examples":    []string{"*/5 * * * *", "0 9 * * 1-5"},
			},
			"intervalMinutes": map[string]any{
				"type":        "integer",
				"description": "Fixed firing interval in minutes; used when no cron expression is given",
				"minimum":     1,
			},
		},
	}
}

func (p *Plugin) Initialize(globalConfig map[string]any) error {
	if err := p.Plugin.Initialize(globalConfig); err != nil {
		return err
	}

	if p.cron == nil {
		p.cron = cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		))
		p.cron.Start()
	}

	return nil
}

func (p *Plugin) ValidateConfig(config map[string]any) bool {
	if !base.ValidateAgainstSchema(p.ConfigSchema(), config) {
		return false
	}

	if expr, ok := config["cron"].(string); ok && expr != "" {
		if _, err := cron.ParseStandard(expr); err != nil {
			return false
		}
	}

	return true
}

func (p *Plugin) Start(workflowID string, config map[string]any) error {
	if !p.ValidateConfig(config) {
		return base.InvalidConfigError(p.Type())
	}

	if err := p.Activate(workflowID, config); err != nil {
		return err
	}

	expr, _ := config["cron"].(string)
	if expr == "" || p.fire == nil {
		return nil
	}

	entryID, err := p.cron.AddFunc(expr, func() { p.run(workflowID) })
	if err != nil {
		p.Deactivate(workflowID)

		return err
	}

	p.entries.Store(workflowID, entryID)
	p.Logger().Info("Added cron entry for workflow", "workflow_id", workflowID, "cron", expr)

	return nil
}

func (p *Plugin) run(workflowID string) {
	config, ok := p.WorkflowConfig(workflowID)
	if !ok {
		return
	}

	event := p.ProcessEvent(
		map[string]any{},
		map[string]any{
			"source":     "scheduler",
			"mode":       "in-process",
			"cron":       config["cron"],
			"executedAt": time.Now().UTC().Format(time.RFC3339),
			"workflowId": workflowID,
		},
	)
	event.WorkflowID = workflowID

	p.fire(event)
}

// Stop cancels the workflow's cron entry so no further in-process firings
// happen, then clears the activation.
func (p *Plugin) Stop(workflowID string) error {
	if value, ok := p.entries.LoadAndDelete(workflowID); ok {
		if entryID, ok := value.(cron.EntryID); ok && p.cron != nil {
			p.cron.Remove(entryID)
		}
	}

	p.Deactivate(workflowID)

	return nil
}

func (p *Plugin) Destroy() error {
	if p.cron != nil {
		p.cron.Stop()
		p.cron = nil
	}

	p.entries.Range(func(key, _ any) bool {
		p.entries.Delete(key)

		return true
	})

	return p.Plugin.Destroy()
}
