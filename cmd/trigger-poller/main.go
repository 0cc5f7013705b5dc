package main

import (
	"context"
	"os"
	"time"

	"github.com/flowforge/trigger/pkg/cmd"
	"github.com/flowforge/trigger/pkg/log"
	"github.com/flowforge/trigger/pkg/pollers"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("trigger-poller")

	command := &cli.Command{
		Name:                  "trigger-poller",
		Usage:                 "Fire due schedule triggers and poll email inboxes",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
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
			&cli.DurationFlag{
				Name:    "schedule-interval",
				Usage:   "How often due schedule triggers are checked",
				Value:   time.Minute,
				Sources: cli.EnvVars("SCHEDULE_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "inbox-interval",
				Usage:   "How often email inboxes are polled",
				Value:   5 * time.Minute,
				Sources: cli.EnvVars("INBOX_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "imap-host",
				Usage:   "IMAP server host for email triggers",
				Sources: cli.EnvVars("IMAP_HOST"),
			},
			&cli.IntFlag{
				Name:    "imap-port",
				Usage:   "IMAP server port (defaults to 993 with TLS, 143 without)",
				Sources: cli.EnvVars("IMAP_PORT"),
			},
			&cli.BoolFlag{
				Name:    "imap-tls",
				Usage:   "Connect to the IMAP server over TLS",
				Value:   true,
				Sources: cli.EnvVars("IMAP_TLS"),
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

			logger.InfoContext(ctx, "Initializing trigger poller")

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

			daemon := NewDaemon(
				repository,
				eventPublisher,
				pollers.IMAPConfig{
					Host:   command.String("imap-host"),
					Port:   command.Int("imap-port"),
					UseTLS: command.Bool("imap-tls"),
				},
				command.Duration("schedule-interval"),
				command.Duration("inbox-interval"),
				logger,
			)

			daemon.Start(ctx)

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
