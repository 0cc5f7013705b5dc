package cmd

import (
	"log/slog"

	"github.com/flowforge/trigger/pkg/publisher"
)

// NewPublisher builds the Kafka event publisher from a comma-separated
// broker list.
func NewPublisher(brokers, topic string, logger *slog.Logger) (publisher.EventPublisher, error) {
	return publisher.NewKafkaPublisher(publisher.ParseBrokers(brokers), topic, logger)
}
