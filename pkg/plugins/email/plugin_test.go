package email

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlugin_ValidateConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	p := NewPlugin(logger)

	tests := []struct {
		name   string
		config map[string]any
		valid  bool
	}{
		{
			name: "full config",
			config: map[string]any{
				"emailAddress":    "alerts@example.com",
				"password":        "secret",
				"folder":          "INBOX",
				"subjectContains": "invoice",
			},
			valid: true,
		},
		{
			name:   "minimal config",
			config: map[string]any{"emailAddress": "alerts@example.com"},
			valid:  true,
		},
		{
			name:   "missing email address",
			config: map[string]any{"password": "secret"},
			valid:  false,
		},
		{
			name:   "nil config",
			config: nil,
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, p.ValidateConfig(tt.config))
		})
	}
}

func TestPlugin_StartStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	p := NewPlugin(logger)
	require.NoError(t, p.Initialize(nil))

	require.NoError(t, p.Start("wf-1", map[string]any{"emailAddress": "a@b.co"}))
	assert.True(t, p.IsActive("wf-1"))

	require.NoError(t, p.Stop("wf-1"))
	assert.False(t, p.IsActive("wf-1"))
}

func TestMatchesFilters(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		subject string
		from    string
		matches bool
	}{
		{
			name:    "no filters match everything",
			config:  map[string]any{},
			subject: "anything",
			from:    "anyone@example.com",
			matches: true,
		},
		{
			name:    "subject filter case-insensitive",
			config:  map[string]any{"subjectContains": "INVOICE"},
			subject: "Your invoice for March",
			from:    "billing@example.com",
			matches: true,
		},
		{
			name:    "subject filter rejects",
			config:  map[string]any{"subjectContains": "invoice"},
			subject: "Weekly newsletter",
			from:    "billing@example.com",
			matches: false,
		},
		{
			name:    "from filter case-insensitive",
			config:  map[string]any{"fromAddress": "Billing@Example.COM"},
			subject: "hello",
			from:    "The Bot <billing@example.com>",
			matches: true,
		},
		{
			name:    "from filter rejects",
			config:  map[string]any{"fromAddress": "billing@"},
			subject: "hello",
			from:    "noreply@example.com",
			matches: false,
		},
		{
			name: "both filters must pass",
			config: map[string]any{
				"subjectContains": "invoice",
				"fromAddress":     "billing@",
			},
			subject: "Invoice attached",
			from:    "noreply@example.com",
			matches: false,
		},
		{
			name:    "empty subject fails subject filter",
			config:  map[string]any{"subjectContains": "invoice"},
			subject: "",
			from:    "billing@example.com",
			matches: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, MatchesFilters(tt.config, tt.subject, tt.from))
		})
	}
}
