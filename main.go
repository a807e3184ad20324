package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cadencehq/outreach-dispatch/environments"
	"github.com/cadencehq/outreach-dispatch/handlers"
	"github.com/cadencehq/outreach-dispatch/internal/dispatch"
	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/internal/repository"
	"github.com/cadencehq/outreach-dispatch/internal/scheduler"
	"github.com/cadencehq/outreach-dispatch/internal/service"
	"github.com/cadencehq/outreach-dispatch/pkg/database"
	"github.com/cadencehq/outreach-dispatch/pkg/generator"
	"github.com/cadencehq/outreach-dispatch/pkg/logger"
	"github.com/cadencehq/outreach-dispatch/pkg/provider"
	"github.com/cadencehq/outreach-dispatch/pkg/redis"
	"github.com/cadencehq/outreach-dispatch/pkg/validator"
	"github.com/cadencehq/outreach-dispatch/routes"

	_ "github.com/cadencehq/outreach-dispatch/docs" // swagger docs
)

// @title Outreach Dispatch API
// @version 1.0
// @description Outbound sequence dispatch engine: schedules multi-step, multi-channel outreach runs

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	logger.Init()

	// Load config
	cfg := environments.Load()

	// Hard-fail if required secrets are missing
	if cfg.Auth.RunsAPIKey == "" {
		logger.Fatalf("RUNS_API_KEY is required but not set")
	}
	if cfg.Auth.DispatchAPIKey == "" {
		logger.Fatalf("DISPATCH_API_KEY is required but not set")
	}
	if cfg.Auth.WebhookSecret == "" {
		logger.Fatalf("WEBHOOK_SIGNING_SECRET is required but not set")
	}

	logger.Infof("Starting Outreach Dispatch Service...")

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed data
	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Init redis
	var redisClient *redis.Client
	redisClient, err = redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Redis not available, prospect caching disabled: %v", err)
		redisClient = nil
	}

	// Collaborator clients
	generatorClient := generator.NewClient(cfg.Generator)
	logger.Infof("Content generator configured: %s", generatorClient.GetURL())

	// Repositories
	runRepo := repository.NewRunRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	prospectRepo := repository.NewProspectRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// Channel adapters; the registry is an explicit value, never a global.
	adapters := dispatch.NewRegistry(map[domain.Channel]dispatch.Adapter{
		domain.ChannelEmail: dispatch.NewSyncAdapter(domain.ChannelEmail,
			provider.NewClient("email", cfg.Providers.Email, cfg.Providers.SendTimeout)),
		domain.ChannelSMS: dispatch.NewSyncAdapter(domain.ChannelSMS,
			provider.NewClient("sms", cfg.Providers.SMS, cfg.Providers.SendTimeout)),
		domain.ChannelVoice: dispatch.NewSyncAdapter(domain.ChannelVoice,
			provider.NewClient("voice", cfg.Providers.Voice, cfg.Providers.SendTimeout)),
		domain.ChannelNetwork: dispatch.NewNetworkAdapter(taskRepo),
	})

	// Services
	var cache service.ProspectCache
	if redisClient != nil {
		cache = redisClient
	}

	dispatchService := service.NewDispatchService(
		runRepo, sequenceRepo, prospectRepo, outboxRepo, eventRepo,
		generatorClient, cache, adapters, cfg.Dispatch,
	)
	runService := service.NewRunService(runRepo, sequenceRepo, prospectRepo, outboxRepo, eventRepo)
	taskService := service.NewTaskService(taskRepo, outboxRepo)
	inboundService := service.NewInboundService(prospectRepo, runRepo, eventRepo)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize scheduler
	sched := scheduler.NewScheduler(dispatchService, cfg.Dispatch.PollInterval)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisClient)
	runHandler := handlers.NewRunHandler(runService)
	taskHandler := handlers.NewTaskHandler(taskService)
	dispatchHandler := handlers.NewDispatchHandler(sched, dispatchService, ctx, cfg)
	webhookHandler := handlers.NewWebhookHandler(inboundService)

	// Auto-start scheduler
	if os.Getenv("AUTO_START_SCHEDULER") != "false" {
		logger.Infof("Auto-starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start scheduler: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"x-dispatch-auth-key",
			"x-webhook-signature",
		},
	}))

	// Setup routes
	routes.RegisterRoutes(e, healthHandler, runHandler, taskHandler, dispatchHandler, webhookHandler, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Cancel context to signal all goroutines to stop
	cancel()

	// Stop scheduler first (with timeout)
	if sched.IsRunning() {
		logger.Infof("Stopping scheduler...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()

		done := make(chan error, 1)
		go func() {
			done <- sched.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Errorf("Error stopping scheduler: %v", err)
			} else {
				logger.Infof("Scheduler stopped successfully")
			}
		case <-stopCtx.Done():
			logger.Warnf("Scheduler stop timeout, forcing shutdown")
		}
	}

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
