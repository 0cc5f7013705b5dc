package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create trigger_registrations table
			CREATE TABLE trigger_registrations (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL,
				user_id UUID NOT NULL,
				trigger_type VARCHAR(50) NOT NULL CHECK (trigger_type IN ('webhook', 'scheduler', 'email', 'manual')),
				configuration JSONB NOT NULL DEFAULT '{}',
				enabled BOOLEAN NOT NULL DEFAULT true,
				webhook_url TEXT,
				webhook_token VARCHAR(64),
				last_triggered_at TIMESTAMP WITH TIME ZONE,
				next_scheduled_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX idx_trigger_registrations_webhook_token
				ON trigger_registrations(webhook_token)
				WHERE webhook_token IS NOT NULL;

			CREATE INDEX idx_trigger_registrations_user_id ON trigger_registrations(user_id);
			CREATE INDEX idx_trigger_registrations_workflow_id ON trigger_registrations(workflow_id);
			CREATE INDEX idx_trigger_registrations_type_enabled ON trigger_registrations(trigger_type, enabled);
			CREATE INDEX idx_trigger_registrations_next_scheduled_at ON trigger_registrations(next_scheduled_at)
				WHERE enabled AND trigger_type = 'scheduler';
		`,
	}
}
