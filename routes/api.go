package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/cadencehq/outreach-dispatch/environments"
	"github.com/cadencehq/outreach-dispatch/handlers"
	"github.com/cadencehq/outreach-dispatch/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	runHandler *handlers.RunHandler,
	taskHandler *handlers.TaskHandler,
	dispatchHandler *handlers.DispatchHandler,
	webhookHandler *handlers.WebhookHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Inbound provider events, authenticated by payload signature only.
	e.POST("/webhooks/provider", webhookHandler.ReceiveEvent,
		middlewares.WebhookSignature(cfg.Auth.WebhookSecret))

	// API v1 base group
	v1 := e.Group("/api/v1")

	// Run and task routes share the runs API key
	runs := v1.Group("/runs", middlewares.APIKeyAuth(cfg.Auth.RunsAPIKey))

	runs.GET("", runHandler.GetAllRuns)
	runs.POST("", runHandler.Enroll)
	runs.GET("/stats", runHandler.GetStats)
	runs.GET("/:id", runHandler.GetRun)

	tasks := v1.Group("/tasks", middlewares.APIKeyAuth(cfg.Auth.RunsAPIKey))

	tasks.GET("", taskHandler.GetOpenTasks)
	tasks.POST("/:id/complete", taskHandler.CompleteTask)

	// Dispatch routes with their own API key (the external cron's credential)
	dispatchGroup := v1.Group("/dispatch", middlewares.APIKeyAuth(cfg.Auth.DispatchAPIKey))

	dispatchGroup.POST("/run", dispatchHandler.RunPass)
	dispatchGroup.POST("/start", dispatchHandler.StartScheduler)
	dispatchGroup.POST("/stop", dispatchHandler.StopScheduler)
	dispatchGroup.GET("/status", dispatchHandler.GetSchedulerStatus)
}
