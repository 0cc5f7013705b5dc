// Package publisher converts fired trigger events into wire messages and
// delivers them to the trigger-events topic. Messages are keyed by workflow
// id so all events of one workflow stay strictly ordered on one partition.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flowforge/trigger/pkg/models"
)

const (
	// DefaultTopic is the topic the downstream orchestrator consumes.
	DefaultTopic = "trigger-events"

	// PartitionKeyMetadataKey carries the partition key on the watermill
	// message so the kafka marshaler can route it.
	PartitionKeyMetadataKey = "workflow_id"

	// EventTypeMetadataKey carries the trigger type for consumers that
	// dispatch without unmarshaling the payload.
	EventTypeMetadataKey = "trigger_type"

	// asyncQueueSize bounds the async queue; a full queue applies
	// backpressure on the firing paths instead of dropping events.
	asyncQueueSize = 256
)

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("event publisher is closed")

// EventPublisher is the delivery boundary the trigger services depend on.
type EventPublisher interface {
	// Publish delivers asynchronously: the firing path does not block on
	// broker acknowledgment, completion is logged. Events enqueue in call
	// order, so per-workflow ordering is preserved on the async path.
	Publish(ctx context.Context, event *models.TriggerEvent) error

	// PublishSync blocks until the broker acknowledged the message. Used
	// where delivery confirmation gates the caller's next step.
	PublishSync(ctx context.Context, event *models.TriggerEvent) error

	Close() error
}

type queuedEvent struct {
	msg         *message.Message
	eventID     string
	workflowID  string
	triggerType string
}

// Publisher implements EventPublisher on top of any watermill publisher
// (Kafka in production, gochannel in tests). Async events flow through a
// single drain goroutine: enqueue order is broker order.
type Publisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger

	queue   chan queuedEvent
	drained chan struct{}
	mu      sync.Mutex
	closed  bool
}

func New(pub message.Publisher, topic string, logger *slog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}

	p := &Publisher{
		publisher: pub,
		topic:     topic,
		logger:    logger.With("module", "event_publisher", "topic", topic),
		queue:     make(chan queuedEvent, asyncQueueSize),
		drained:   make(chan struct{}),
	}

	go p.drain()

	return p
}

// Publish enqueues the event and returns immediately; the broker round trip
// happens on the drain goroutine and its outcome is logged. Events already
// enqueued are not retracted when the caller's context ends.
func (p *Publisher) Publish(ctx context.Context, event *models.TriggerEvent) error {
	msg, err := p.buildMessage(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	p.queue <- queuedEvent{
		msg:         msg,
		eventID:     event.EventID,
		workflowID:  event.WorkflowID,
		triggerType: event.TriggerType,
	}

	return nil
}

// drain delivers queued events one at a time, in enqueue order.
func (p *Publisher) drain() {
	defer close(p.drained)

	for queued := range p.queue {
		if err := p.publisher.Publish(p.topic, queued.msg); err != nil {
			p.logger.Error("Failed to publish trigger event",
				"event_id", queued.eventID,
				"workflow_id", queued.workflowID,
				"error", err)

			continue
		}

		p.logger.Info("Published trigger event",
			"event_id", queued.eventID,
			"workflow_id", queued.workflowID,
			"trigger_type", queued.triggerType)
	}
}

// PublishSync delivers and waits for broker acknowledgment.
func (p *Publisher) PublishSync(ctx context.Context, event *models.TriggerEvent) error {
	msg, err := p.buildMessage(event)
	if err != nil {
		return err
	}

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		p.logger.Error("Failed to publish trigger event synchronously",
			"event_id", event.EventID,
			"workflow_id", event.WorkflowID,
			"error", err)

		return err
	}

	p.logger.Info("Published trigger event synchronously",
		"event_id", event.EventID,
		"workflow_id", event.WorkflowID,
		"trigger_type", event.TriggerType)

	return nil
}

func (p *Publisher) buildMessage(event *models.TriggerEvent) (*message.Message, error) {
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(PartitionKeyMetadataKey, event.WorkflowID)
	msg.Metadata.Set(EventTypeMetadataKey, event.TriggerType)

	return msg, nil
}

// Close stops accepting events, waits for the queue to drain and closes the
// underlying publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()

	if !p.closed {
		p.closed = true
		close(p.queue)
	}

	p.mu.Unlock()

	<-p.drained

	return p.publisher.Close()
}
