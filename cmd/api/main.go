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

	"github.com/spec-kit/diet-tracker/internal/api/dto"
	httptransport "github.com/spec-kit/diet-tracker/internal/api/http"
	"github.com/spec-kit/diet-tracker/internal/api/http/handlers"
	"github.com/spec-kit/diet-tracker/internal/auth"
	"github.com/spec-kit/diet-tracker/internal/config"
	"github.com/spec-kit/diet-tracker/internal/events"
	"github.com/spec-kit/diet-tracker/internal/observability"
	"github.com/spec-kit/diet-tracker/internal/persistence"
	"github.com/spec-kit/diet-tracker/internal/repository"
	"github.com/spec-kit/diet-tracker/internal/service"
	"github.com/spec-kit/diet-tracker/internal/session"
	"github.com/spec-kit/diet-tracker/internal/worker"
	apperrors "github.com/spec-kit/diet-tracker/pkg/util"
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

	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to configure redis", zap.Error(err))
	}
	defer redis.Close()

	var userRepo repository.UserRepository
	if pg.Enabled() {
		userRepo = repository.NewUserRepository(pg.PoolHandle())
	} else {
		userRepo = repository.NewMemoryUserRepository()
	}
	resetRepo := repository.NewPasswordResetRepository(redis.Client)
	sessions := session.NewRedisCache(redis.Client, "")

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		logger.Fatal("invalid auth configuration", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var publisher *events.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.SessionTopic, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("kafka publisher close", zap.Error(err))
			}
		}()
	}
	worker.StartNotificationWorker(dispatcher, service.NewNotificationService(dispatcher, logger, service.WithCodeLogging(!cfg.App.IsProduction())), publisher, logger)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Sessions:          sessions,
		Tokens:            tokens,
		Dispatcher:        dispatcher,
		Metrics:           metrics,
		Logger:            logger,
	})
	authMiddleware := auth.NewAuthMiddleware(tokens, sessions, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code, "message": de.Message}})
		},
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	deps := map[string]handlers.Pinger{"redis": redis}
	if pg.Enabled() {
		deps["postgres"] = pg
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		APIPrefix:      cfg.App.APIPrefix,
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Users:          handlers.NewUsersHandler(authService, auth.NewCookieWriter(cfg.Cookie), dto.NewValidator()),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
