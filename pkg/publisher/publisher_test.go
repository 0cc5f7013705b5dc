package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/flowforge/trigger/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T) (*Publisher, <-chan *message.Message) {
	t.Helper()

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 10},
		watermill.NopLogger{},
	)

	messages, err := pubSub.Subscribe(context.Background(), DefaultTopic)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	pub := New(pubSub, "", logger)

	t.Cleanup(func() {
		_ = pub.Close()
	})

	return pub, messages
}

func receiveMessage(t *testing.T, messages <-chan *message.Message) *message.Message {
	t.Helper()

	select {
	case msg := <-messages:
		msg.Ack()

		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for published message")

		return nil
	}
}

func TestPublisher_PublishSync(t *testing.T) {
	pub, messages := newTestPublisher(t)

	event := models.NewTriggerEvent(models.TriggerTypeWebhook,
		map[string]any{"body": "hello"},
		map[string]any{"source": "webhook"})
	event.TriggerID = "trigger-1"
	event.WorkflowID = "workflow-1"
	event.UserID = "user-1"

	require.NoError(t, pub.PublishSync(context.Background(), event))

	msg := receiveMessage(t, messages)
	assert.Equal(t, "workflow-1", msg.Metadata.Get(PartitionKeyMetadataKey))
	assert.Equal(t, models.TriggerTypeWebhook, msg.Metadata.Get(EventTypeMetadataKey))

	var wire map[string]any

	require.NoError(t, json.Unmarshal(msg.Payload, &wire))
	assert.Equal(t, event.EventID, wire["eventId"])
	assert.Equal(t, "trigger-1", wire["triggerId"])
	assert.Equal(t, "workflow-1", wire["workflowId"])
	assert.Equal(t, "user-1", wire["userId"])
	assert.Equal(t, models.TriggerTypeWebhook, wire["triggerType"])
	assert.NotEmpty(t, wire["timestamp"])
	assert.Equal(t, map[string]any{"body": "hello"}, wire["payload"])
}

func TestPublisher_PublishAsyncDelivers(t *testing.T) {
	pub, messages := newTestPublisher(t)

	event := models.NewTriggerEvent(models.TriggerTypeManual, nil, nil)
	event.WorkflowID = "workflow-async"

	require.NoError(t, pub.Publish(context.Background(), event))

	msg := receiveMessage(t, messages)
	assert.Equal(t, "workflow-async", msg.Metadata.Get(PartitionKeyMetadataKey))

	var wire map[string]any

	require.NoError(t, json.Unmarshal(msg.Payload, &wire))
	assert.NotNil(t, wire["payload"], "nil payload is normalized to an empty object")
	assert.NotNil(t, wire["metadata"], "nil metadata is normalized to an empty object")
}

func TestPublisher_SameWorkflowKeepsOrder(t *testing.T) {
	pub, messages := newTestPublisher(t)

	first := models.NewTriggerEvent(models.TriggerTypeScheduler, map[string]any{"seq": 1}, nil)
	first.WorkflowID = "workflow-ord"
	second := models.NewTriggerEvent(models.TriggerTypeScheduler, map[string]any{"seq": 2}, nil)
	second.WorkflowID = "workflow-ord"

	require.NoError(t, pub.PublishSync(context.Background(), first))
	require.NoError(t, pub.PublishSync(context.Background(), second))

	got1 := receiveMessage(t, messages)
	got2 := receiveMessage(t, messages)

	var wire1, wire2 map[string]any

	require.NoError(t, json.Unmarshal(got1.Payload, &wire1))
	require.NoError(t, json.Unmarshal(got2.Payload, &wire2))

	assert.Equal(t, first.EventID, wire1["eventId"])
	assert.Equal(t, second.EventID, wire2["eventId"])
	assert.NotEqual(t, wire1["eventId"], wire2["eventId"])
}

func TestPublisher_AsyncSameWorkflowKeepsOrder(t *testing.T) {
	pub, messages := newTestPublisher(t)

	const eventCount = 200

	published := make([]string, 0, eventCount)

	for i := 0; i < eventCount; i++ {
		event := models.NewTriggerEvent(models.TriggerTypeWebhook, map[string]any{"seq": i}, nil)
		event.WorkflowID = "workflow-async-ord"

		require.NoError(t, pub.Publish(context.Background(), event))
		published = append(published, event.EventID)
	}

	for i := 0; i < eventCount; i++ {
		msg := receiveMessage(t, messages)

		var wire map[string]any

		require.NoError(t, json.Unmarshal(msg.Payload, &wire))
		assert.Equal(t, published[i], wire["eventId"], "event %d arrived out of publish order", i)
	}
}

func TestPublisher_PublishAfterCloseFails(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	pub := New(pubSub, "", logger)

	require.NoError(t, pub.Close())

	event := models.NewTriggerEvent(models.TriggerTypeManual, nil, nil)
	event.WorkflowID = "workflow-closed"

	assert.ErrorIs(t, pub.Publish(context.Background(), event), ErrPublisherClosed)
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, ParseBrokers("k1:9092, k2:9092"))
	assert.Equal(t, []string{"k1:9092"}, ParseBrokers("k1:9092,"))
	assert.Nil(t, ParseBrokers(""))
}
