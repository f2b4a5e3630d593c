// Package main provides the Flowdeck API server implementation.
package main

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
	"github.com/flowdeckhq/flowdeck/pkg/connector"
	"github.com/flowdeckhq/flowdeck/pkg/eventbus"
	"github.com/flowdeckhq/flowdeck/pkg/persistence"
	"github.com/flowdeckhq/flowdeck/pkg/services"
	"github.com/flowdeckhq/flowdeck/pkg/web"
	"github.com/flowdeckhq/flowdeck/pkg/wizard"
)

const probeTimeout = 10 * time.Second

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	wizardStore wizard.Store
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	wizardStore wizard.Store,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		wizardStore: wizardStore,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	cat := catalog.New()

	flowService := services.NewFlow(a.persistence, a.eventBus, cat)
	nodeService := services.NewNode(flowService, cat)
	credentialService := services.NewCredential(a.persistence)

	tester := connector.NewHTTPProber(cat, probeTimeout)
	if a.tracer != nil {
		tester = tester.WithTracer(a.tracer)
	}

	committer := services.NewDraftCommitter(flowService, nodeService, cat)
	wizardManager := wizard.NewManager(cat, a.wizardStore, tester, committer)

	handlers := web.NewAPIHandlers(
		flowService, nodeService, credentialService, wizardManager, cat, tester, a.eventBus, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowdeck API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
