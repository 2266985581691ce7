package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/storage"
	"github.com/spec-kit/support-desk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var checks []handlers.DependencyCheck

	mongo, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal("failed to connect mongo", zap.Error(err))
	}
	defer mongo.Close(context.Background())

	var ticketRepo repository.TicketRepository
	if mongo.Enabled() {
		collection := mongo.Collection(cfg.Mongo.TicketsCollection)
		if err := persistence.EnsureTicketIndexes(ctx, collection, logger); err != nil {
			logger.Fatal("failed to ensure ticket indexes", zap.Error(err))
		}
		ticketRepo = repository.NewMongoTicketRepository(collection)
		checks = append(checks, handlers.DependencyCheck{Name: "mongo", Pinger: mongo})
	} else {
		ticketRepo = repository.NewMemoryTicketRepository()
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var (
		users  repository.UserDirectory
		orders repository.OrderDirectory
	)
	if pool := pg.PoolHandle(); pool != nil {
		users = repository.NewPostgresUserDirectory(pool)
		orders = repository.NewPostgresOrderDirectory(pool)
		checks = append(checks, handlers.DependencyCheck{Name: "postgres", Pinger: pg})
	} else {
		users = repository.NewMemoryUserDirectory()
		orders = repository.NewMemoryOrderDirectory()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	if client := redis.Handle(); client != nil {
		users = repository.NewCachedUserDirectory(users, client, cfg.Redis.CacheTTL(), logger)
		orders = repository.NewCachedOrderDirectory(orders, client, cfg.Redis.CacheTTL(), logger)
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Pinger: redis})
	}

	blobs, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to open attachment store", zap.Error(err))
	}
	defer blobs.Close() //nolint:errcheck
	checks = append(checks, handlers.DependencyCheck{Name: "attachment_store", Pinger: blobs})

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(dispatcher, nil, cfg.Notification, logger)

	uploader := service.NewAttachmentUploader(blobs, service.UploaderConfig{
		Folder:       cfg.Storage.Folder,
		MaxFiles:     cfg.Storage.MaxFiles,
		MaxFileBytes: cfg.Storage.MaxFileBytes(),
	}, metrics, logger.Named("uploader"))

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		UserDirectory:  users,
		OrderDirectory: orders,
		Uploader:       uploader,
		Dispatcher:     dispatcher,
		Logger:         logger.Named("tickets"),
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, 0)
	authMiddleware := auth.NewAuthMiddleware(tokens, cfg.Auth.AdminRole)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitBytes(),
		Immutable: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Accounts:       handlers.NewAccountsHandler(ticketService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
		InternalAPIKey: cfg.Auth.InternalAPIKey,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.ShutdownWithTimeout(10 * time.Second)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
