package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/migratemate/cancellation-flow/internal/api/http"
	"github.com/migratemate/cancellation-flow/internal/api/http/handlers"
	"github.com/migratemate/cancellation-flow/internal/auth"
	"github.com/migratemate/cancellation-flow/internal/config"
	"github.com/migratemate/cancellation-flow/internal/events"
	"github.com/migratemate/cancellation-flow/internal/observability"
	"github.com/migratemate/cancellation-flow/internal/persistence"
	"github.com/migratemate/cancellation-flow/internal/repository"
	"github.com/migratemate/cancellation-flow/internal/service"
	"github.com/migratemate/cancellation-flow/internal/worker"
)

type repositories struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	cancellations repository.CancellationRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	checks := map[string]handlers.Pinger{}
	var repos repositories
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, persistence.DefaultMigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = repositories{
			users:         repository.NewUserRepository(pool),
			subscriptions: repository.NewSubscriptionRepository(pool),
			cancellations: repository.NewCancellationRepository(pool),
		}
		checks["postgres"] = pg
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		store := repository.NewMemoryStore()
		repos = repositories{
			users:         store.Users(),
			subscriptions: store.Subscriptions(),
			cancellations: store.Cancellations(),
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close() //nolint:errcheck
	checks["redis"] = redis
	idempotency := redis.IdempotencyStore()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	accountService := service.NewAccountService(service.AccountDependencies{
		UserRepo:         repos.users,
		SubscriptionRepo: repos.subscriptions,
	})
	cancellationService := service.NewCancellationService(service.CancellationDependencies{
		CancellationRepo: repos.cancellations,
		SubscriptionRepo: repos.subscriptions,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
	})
	subscriptionService := service.NewSubscriptionService(service.SubscriptionDependencies{
		SubscriptionRepo: repos.subscriptions,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
	})
	tokens := auth.NewTokenManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
		Users:         handlers.NewUsersHandler(accountService, tokens, cfg.App.IsProduction(), logger),
		Cancellations: handlers.NewCancellationsHandler(cancellationService),
		Subscriptions: handlers.NewSubscriptionsHandler(subscriptionService),
		Session:       auth.NewSessionMiddleware(tokens, cfg.Auth.RequireSessionToken),
		Idempotency:   httptransport.IdempotencyMiddleware(idempotency, logger),
		Metrics:       metrics,
		DevRoutes:     !cfg.App.IsProduction(),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
