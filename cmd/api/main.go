package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/cs-ops-service/internal/api/http"
	"github.com/spec-kit/cs-ops-service/internal/api/http/handlers"
	"github.com/spec-kit/cs-ops-service/internal/auth"
	"github.com/spec-kit/cs-ops-service/internal/config"
	"github.com/spec-kit/cs-ops-service/internal/events"
	"github.com/spec-kit/cs-ops-service/internal/observability"
	"github.com/spec-kit/cs-ops-service/internal/persistence"
	"github.com/spec-kit/cs-ops-service/internal/repository"
	"github.com/spec-kit/cs-ops-service/internal/service"
	"github.com/spec-kit/cs-ops-service/internal/tracker"
	"github.com/spec-kit/cs-ops-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	customerRepo := repository.NewCustomerRepository(pool)
	cycleRepo := repository.NewCycleRepository(pool)
	threadRepo := repository.NewThreadRepository(pool)
	configRepo := repository.NewSegmentConfigRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	usageRepo := repository.NewCachedUsageRepository(
		repository.NewUsageRepository(pool), redis.Client, cfg.Usage.CacheTTL(), logger)

	trackerClient := tracker.NewHTTPClient(cfg.Tracker)
	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(*cfg, agentRepo)
	customerService := service.NewCustomerService(service.CustomerDependencies{
		CustomerRepo: customerRepo,
		UsageRepo:    usageRepo,
		ThreadRepo:   threadRepo,
	})
	segmentationService := service.NewSegmentationService(service.SegmentationDependencies{
		CustomerRepo: customerRepo,
		UsageRepo:    usageRepo,
		ThreadRepo:   threadRepo,
		ConfigRepo:   configRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	ongoingService := service.NewOngoingService(service.OngoingDependencies{
		CycleRepo:    cycleRepo,
		CustomerRepo: customerRepo,
		Tracker:      trackerClient,
		Dispatcher:   dispatcher,
		Logger:       logger,
		RateDelay:    cfg.Tracker.RateLimitDelay(),
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	syncWorker := worker.NewSyncWorker(ongoingService, segmentationService, logger, cfg.Sync)
	syncWorker.Start(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), agentRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Agents:         handlers.NewAgentsHandler(authService),
		Customers:      handlers.NewCustomersHandler(customerService, segmentationService),
		Cycles:         handlers.NewCyclesHandler(ongoingService),
		Admin:          handlers.NewAdminHandler(segmentationService, ongoingService, configRepo, syncWorker),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
