package pollers

import (
	"strings"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
)

func TestIMAPConfig_Addr(t *testing.T) {
	tests := []struct {
		name   string
		config IMAPConfig
		want   string
	}{
		{
			name:   "explicit port",
			config: IMAPConfig{Host: "mail.example.com", Port: 1143},
			want:   "mail.example.com:1143",
		},
		{
			name:   "tls default port",
			config: IMAPConfig{Host: "mail.example.com", UseTLS: true},
			want:   "mail.example.com:993",
		},
		{
			name:   "plain default port",
			config: IMAPConfig{Host: "mail.example.com"},
			want:   "mail.example.com:143",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.Addr())
		})
	}
}

func TestFormatAddress(t *testing.T) {
	withName := &imap.Address{
		PersonalName: "Billing Bot",
		MailboxName:  "billing",
		HostName:     "example.com",
	}
	assert.Equal(t, "Billing Bot <billing@example.com>", formatAddress(withName))

	bare := &imap.Address{MailboxName: "noreply", HostName: "example.com"}
	assert.Equal(t, "noreply@example.com", formatAddress(bare))
}

func TestExtractTextBody_Multipart(t *testing.T) {
	raw := strings.Join([]string{
		"From: billing@example.com",
		"To: alerts@example.com",
		"Subject: Invoice",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="frontier"`,
		"",
		"--frontier",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Amount due: $42",
		"--frontier",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>Amount due: <b>$42</b></p>",
		"--frontier--",
		"",
	}, "\r\n")

	body := extractTextBody(strings.NewReader(raw))
	assert.Contains(t, body, "Amount due: $42")
	assert.NotContains(t, body, "<b>")
}

func TestExtractTextBody_PlainMessage(t *testing.T) {
	raw := strings.Join([]string{
		"From: billing@example.com",
		"Subject: Hello",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"just a plain body",
		"",
	}, "\r\n")

	body := extractTextBody(strings.NewReader(raw))
	assert.Contains(t, body, "just a plain body")
}

func TestExtractTextBody_Garbage(t *testing.T) {
	assert.Empty(t, extractTextBody(strings.NewReader("not an email")))
}
