// Package main provides the trigger API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/flowforge/trigger/pkg/persistence"
	"github.com/flowforge/trigger/pkg/publisher"
	"github.com/flowforge/trigger/pkg/registry"
	"github.com/flowforge/trigger/pkg/services"
	"github.com/flowforge/trigger/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger         *slog.Logger
	repository     persistence.TriggerRepository
	publisher      publisher.EventPublisher
	registry       *registry.Registry
	pluginsPath    string
	webhookBaseURL string
	validate       *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	repository persistence.TriggerRepository,
	eventPublisher publisher.EventPublisher,
	reg *registry.Registry,
	pluginsPath string,
	webhookBaseURL string,
) *API {
	return &API{
		logger:         logger,
		repository:     repository,
		publisher:      eventPublisher,
		registry:       reg,
		pluginsPath:    pluginsPath,
		webhookBaseURL: webhookBaseURL,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	webhookService := services.NewWebhook(a.repository, a.publisher, a.webhookBaseURL, a.logger)
	schedulerService := services.NewScheduler(a.repository, a.publisher, a.logger)
	triggerService := services.NewTrigger(a.repository, a.publisher, webhookService, schedulerService, a.logger)

	handlers := web.NewAPIHandlers(triggerService, a.registry, a.pluginsPath, a.validate)
	webhookHandlers := web.NewWebhookHandlers(webhookService, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Trigger API")
	})

	handlers.RegisterRoutes(app)
	webhookHandlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
