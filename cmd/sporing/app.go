// Package main runs the sporing service: the Kafka consumer folding
// vedtaksperiode state transitions into the store, and the HTTP API
// serving the resulting state machine views.
package main

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/fimbul-io/sporing/pkg/transition"
	"github.com/fimbul-io/sporing/pkg/web"
)

type API struct {
	logger     *slog.Logger
	repository transition.Repository
	directory  web.Directory
}

func NewAPI(logger *slog.Logger, repository transition.Repository, directory web.Directory) *API {
	return &API{
		logger:     logger,
		repository: repository,
		directory:  directory,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewHandlers(a.repository, a.directory, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", handlers.GetIndex)

	app.Get("/tilstandsmaskin.json", handlers.GetTransitionsJSON)
	app.Get("/tilstandsmaskin.dot", handlers.GetTransitionsDOT)
	app.Get("/tilstandsmaskin/:vedtaksperiodeId.json", handlers.GetHistoryJSON)
	app.Get("/tilstandsmaskin/:vedtaksperiodeId.dot", handlers.GetHistoryDOT)
	app.Get("/tilstandsmaskin/:vedtaksperiodeId", handlers.GetHistoryPage)

	app.Get("/person/:pid.html", handlers.GetPersonHTML)
	app.Get("/person/:pid", handlers.GetPersonJSON)

	return app
}
