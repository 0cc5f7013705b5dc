package web

// CreateTriggerRequest is the POST /api/v1/triggers body.
type CreateTriggerRequest struct {
	WorkflowID    string         `json:"workflowId"    validate:"required,uuid4"`
	TriggerType   string         `json:"triggerType"   validate:"required,oneof=webhook scheduler email manual"`
	Configuration map[string]any `json:"configuration"`
	Enabled       *bool          `json:"enabled"`
}

// UpdateTriggerRequest is the PUT /api/v1/triggers/:id body. Absent fields
// are left unchanged.
type UpdateTriggerRequest struct {
	Configuration map[string]any `json:"configuration"`
	Enabled       *bool          `json:"enabled"`
}

// FireRequest is the body of the manual and ad hoc schedule fire endpoints.
type FireRequest struct {
	Payload map[string]any `json:"payload"`
}

// ValidateConfigRequest is the POST /api/v1/plugins/:type/validate body.
type ValidateConfigRequest struct {
	Configuration map[string]any `json:"configuration"`
}

// PluginInfo is the public description of an installed plugin.
type PluginInfo struct {
	Type         string         `json:"type"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	ConfigSchema map[string]any `json:"configSchema"`
}

// FireResponse acknowledges an ad hoc fire with its event id.
type FireResponse struct {
	Success bool   `json:"success"`
	EventID string `json:"eventId"`
}

// WebhookResponse is the public acknowledgment of a webhook delivery.
type WebhookResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	TriggerID string `json:"triggerId,omitempty"`
}
