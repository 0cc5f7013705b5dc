package main

import (
	"context"
	"os"

	"github.com/flowforge/trigger/pkg/cmd"
	"github.com/flowforge/trigger/pkg/log"
	"github.com/flowforge/trigger/pkg/models"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9090

func main() {
	logger := log.WithModule("trigger-api")

	command := &cli.Command{
		Name:                  "trigger-api",
		Usage:                 "Manage trigger registrations and receive webhook deliveries",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "kafka-brokers",
				Usage:    "Comma-separated Kafka broker addresses",
				Required: true,
				Sources:  cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "kafka-topic",
				Usage:   "Kafka topic trigger events are published to",
				Value:   "trigger-events",
				Sources: cli.EnvVars("KAFKA_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "webhook-base-url",
				Usage:   "Public base URL webhook endpoints are reachable at",
				Value:   "http://localhost:9090",
				Sources: cli.EnvVars("WEBHOOK_BASE_URL"),
			},
			&cli.StringFlag{
				Name:     "plugins-path",
				Usage:    "Path to the directory containing trigger plugins",
				Value:    "./plugins",
				Required: false,
				Sources:  cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Trigger API")

			repository, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := repository.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventPublisher, err := cmd.NewPublisher(
				command.String("kafka-brokers"),
				command.String("kafka-topic"),
				logger,
			)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventPublisher.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event publisher", "error", err)
				}
			}()

			fire := func(event *models.TriggerEvent) {
				if err := eventPublisher.Publish(ctx, event); err != nil {
					logger.ErrorContext(ctx, "Failed to publish trigger event", "error", err)
				}
			}

			reg, err := cmd.NewRegistry(logger, nil, command.String("plugins-path"), fire)
			if err != nil {
				return err
			}

			api := NewAPI(
				logger,
				repository,
				eventPublisher,
				reg,
				command.String("plugins-path"),
				command.String("webhook-base-url"),
			)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
