package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/abhisek/gradeprobe/internal/assessment"
	"github.com/abhisek/gradeprobe/internal/observability"
)

// Dependencies groups what the HTTP API serves.
type Dependencies struct {
	AppName            string
	AppEnv             string
	Manager            *assessment.Manager
	StartingDifficulty float64
	Results            ResultReader
	Archives           []assessment.SessionArchive
	Logger             zerolog.Logger
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Sessions    int       `json:"sessions"`
}

// NewApp builds the fiber application with every route registered.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               deps.AppName,
		DisableStartupMessage: true,
	})

	logger := deps.Logger.With().Str("component", "http").Logger()
	app.Use(requestMetrics(logger))

	app.Get("/healthz", healthCheck(deps))
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", deps.AppName)
		return c.Next()
	})

	if deps.Manager != nil {
		NewSessionHandler(deps.Manager, deps.StartingDifficulty, deps.Archives, deps.Logger).Register(api.Group("/sessions"))
	}
	if deps.Results != nil {
		NewResultHandler(deps.Results, deps.Logger).Register(api.Group("/results"))
	}

	return app
}

func healthCheck(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     deps.AppName,
			Environment: deps.AppEnv,
		}
		if deps.Manager != nil {
			payload.Sessions = len(deps.Manager.List())
		}
		return sendSuccess(c, "service healthy", payload)
	}
}
