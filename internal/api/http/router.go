package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/migratemate/cancellation-flow/internal/api/http/handlers"
	"github.com/migratemate/cancellation-flow/internal/auth"
	"github.com/migratemate/cancellation-flow/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Users         *handlers.UsersHandler
	Cancellations *handlers.CancellationsHandler
	Subscriptions *handlers.SubscriptionsHandler
	Session       *auth.SessionMiddleware
	Idempotency   fiber.Handler
	Metrics       *observability.Metrics
	// DevRoutes enables POST /dev/seed-user. The handler still refuses in production.
	DevRoutes bool
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	app.Get("/users/first", cfg.Users.First)
	if cfg.DevRoutes {
		app.Post("/dev/seed-user", cfg.Users.SeedDevUser)
	}

	writes := []fiber.Handler{}
	if cfg.Session != nil {
		writes = append(writes, cfg.Session.Handle)
	}
	if cfg.Idempotency != nil {
		writes = append(writes, cfg.Idempotency)
	}

	app.Post("/cancellations", chain(writes, cfg.Cancellations.Create)...)
	app.Patch("/cancellations", chain(writes, cfg.Cancellations.Patch)...)
	app.Patch("/subscriptions", chain(writes, cfg.Subscriptions.Patch)...)

	reads := []fiber.Handler{}
	if cfg.Session != nil {
		reads = append(reads, cfg.Session.Handle)
	}
	app.Get("/cancellations/:id", chain(reads, cfg.Cancellations.Get)...)
}

func chain(middleware []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(middleware)+1)
	out = append(out, middleware...)
	return append(out, handler)
}
