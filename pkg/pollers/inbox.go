package pollers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/flowforge/trigger/pkg/models"
	"github.com/flowforge/trigger/pkg/persistence"
	"github.com/flowforge/trigger/pkg/services"
)

const (
	defaultInboxInterval = 5 * time.Minute
	defaultInboxFolder   = "INBOX"
	defaultIMAPTimeout   = 30 * time.Second
)

// IMAPConfig is the shared IMAP server configuration. Credentials come from
// each registration's configuration.
type IMAPConfig struct {
	Host    string
	Port    int
	UseTLS  bool
	Timeout time.Duration
}

// Addr returns the dial address, defaulting the port from the TLS mode.
func (c IMAPConfig) Addr() string {
	port := c.Port
	if port <= 0 {
		if c.UseTLS {
			port = 993
		} else {
			port = 143
		}
	}

	return fmt.Sprintf("%s:%d", c.Host, port)
}

// InboxPoller polls monitored mailboxes for unseen messages and turns
// matching ones into trigger events. The IMAP connection is opened and
// closed every cycle; messages are flagged seen only after successful
// processing, so a failed cycle retries them (at-least-once).
type InboxPoller struct {
	repository persistence.TriggerRepository
	email      *services.Email
	config     IMAPConfig
	interval   time.Duration
	logger     *slog.Logger
	ticker     *time.Ticker
	done       chan struct{}
	started    bool
	mu         sync.Mutex
}

// NewInboxPoller creates a new inbox poller. A non-positive interval falls
// back to five minutes.
func NewInboxPoller(repository persistence.TriggerRepository, email *services.Email, config IMAPConfig, interval time.Duration, logger *slog.Logger) *InboxPoller {
	if interval <= 0 {
		interval = defaultInboxInterval
	}

	if config.Timeout <= 0 {
		config.Timeout = defaultIMAPTimeout
	}

	return &InboxPoller{
		repository: repository,
		email:      email,
		config:     config,
		interval:   interval,
		logger:     logger.With("module", "inbox_poller"),
	}
}

// Start begins the polling loop. Calling Start on a running poller is a
// no-op.
func (p *InboxPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	p.logger.Info("Starting inbox poller",
		"interval", p.interval,
		"imap_host", p.config.Host)

	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	p.started = true

	go p.poll(ctx, p.ticker.C, p.done)

	return nil
}

// Stop shuts the poller down. An in-flight poll finishes; no new polls
// start. Stop works on its own, without the Start context being
// cancelled.
func (p *InboxPoller) Stop(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}

	p.logger.Info("Stopping inbox poller")

	p.ticker.Stop()
	close(p.done)

	p.started = false

	return nil
}

func (p *InboxPoller) poll(ctx context.Context, ticks <-chan time.Time, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticks:
			p.processInboxes(ctx)
		}
	}
}

// processInboxes polls every enabled email registration. One registration's
// failure never blocks the rest.
func (p *InboxPoller) processInboxes(ctx context.Context) {
	triggers, err := p.repository.EnabledTriggersByType(ctx, models.TriggerTypeEmail)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to query email triggers", "error", err)

		return
	}

	for _, trigger := range triggers {
		if err := p.pollRegistration(ctx, trigger); err != nil {
			p.logger.ErrorContext(ctx, "Failed to poll inbox",
				"trigger_id", trigger.ID,
				"error", err)
		}
	}
}

// pollRegistration opens one IMAP session for one registration, processes
// unseen messages and logs out.
func (p *InboxPoller) pollRegistration(ctx context.Context, trigger *models.TriggerRegistration) error {
	config := trigger.Config()

	username, _ := config["username"].(string)
	if username == "" {
		username, _ = config["emailAddress"].(string)
	}

	password, _ := config["password"].(string)

	folder, _ := config["folder"].(string)
	if folder == "" {
		folder = defaultInboxFolder
	}

	imapClient, err := p.dial()
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	defer func() {
		if err := imapClient.Logout(); err != nil {
			p.logger.DebugContext(ctx, "IMAP logout failed", "error", err)
		}
	}()

	if err := imapClient.Login(username, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	// Read-write select: processed messages get flagged seen below.
	if _, err := imapClient.Select(folder, false); err != nil {
		return fmt.Errorf("failed to select folder %s: %w", folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	bodySection, _ := imap.ParseBodySectionName("BODY[]")
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, bodySection.FetchItem()}

	messages := make(chan *imap.Message, 10)
	fetchDone := make(chan error, 1)

	go func() {
		fetchDone <- imapClient.Fetch(seqset, items, messages)
	}()

	processed := new(imap.SeqSet)

	for msg := range messages {
		inboxMsg := extractMessage(msg, bodySection)

		if _, err := p.email.ProcessMessage(ctx, trigger, inboxMsg); err != nil {
			p.logger.ErrorContext(ctx, "Failed to process inbox message",
				"trigger_id", trigger.ID,
				"subject", inboxMsg.Subject,
				"error", err)

			continue
		}

		processed.AddNum(msg.SeqNum)
	}

	if err := <-fetchDone; err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if !processed.Empty() {
		item := imap.FormatFlagsOp(imap.AddFlags, true)

		if err := imapClient.Store(processed, item, []any{imap.SeenFlag}, nil); err != nil {
			return fmt.Errorf("failed to flag messages seen: %w", err)
		}
	}

	return nil
}

func (p *InboxPoller) dial() (*client.Client, error) {
	var (
		imapClient *client.Client
		err        error
	)

	if p.config.UseTLS {
		imapClient, err = client.DialTLS(p.config.Addr(), nil)
	} else {
		imapClient, err = client.Dial(p.config.Addr())
	}

	if err != nil {
		return nil, err
	}

	imapClient.Timeout = p.config.Timeout

	return imapClient, nil
}

// extractMessage converts a fetched IMAP message into the service-level
// representation: subject, formatted sender, receive time and the
// concatenated plain-text body parts.
func extractMessage(msg *imap.Message, bodySection *imap.BodySectionName) services.InboxMessage {
	inboxMsg := services.InboxMessage{
		ReceivedAt: msg.InternalDate,
	}

	if msg.Envelope != nil {
		inboxMsg.Subject = msg.Envelope.Subject

		if len(msg.Envelope.From) > 0 {
			inboxMsg.From = formatAddress(msg.Envelope.From[0])
		}

		if !msg.Envelope.Date.IsZero() {
			inboxMsg.ReceivedAt = msg.Envelope.Date
		}
	}

	if body := msg.GetBody(bodySection); body != nil {
		inboxMsg.Body = extractTextBody(body)
	}

	return inboxMsg
}

func formatAddress(addr *imap.Address) string {
	email := fmt.Sprintf("%s@%s", addr.MailboxName, addr.HostName)

	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", addr.PersonalName, email)
	}

	return email
}

// extractTextBody concatenates the plain-text inline parts of a message.
func extractTextBody(body io.Reader) string {
	reader, err := mail.CreateReader(body)
	if err != nil {
		return ""
	}

	var parts []string

	for {
		part, err := reader.NextPart()
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := header.ContentType()
		if !strings.Contains(contentType, "text/plain") {
			continue
		}

		content, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		parts = append(parts, string(content))
	}

	return strings.Join(parts, "\n")
}
