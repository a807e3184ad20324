package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cadencehq/outreach-dispatch/environments"
	"github.com/cadencehq/outreach-dispatch/internal/scheduler"
	"github.com/cadencehq/outreach-dispatch/internal/service"
	"github.com/cadencehq/outreach-dispatch/pkg/response"
	"github.com/cadencehq/outreach-dispatch/pkg/validator"
)

type DispatchHandler struct {
	scheduler  *scheduler.Scheduler
	dispatcher *service.DispatchService
	ctx        context.Context
	config     *environments.Config
}

type StartSchedulerRequest struct {
	IntervalMinutes *int `json:"intervalMinutes,omitempty" validate:"omitempty,min=1"`
}

func NewDispatchHandler(
	sched *scheduler.Scheduler,
	dispatcher *service.DispatchService,
	ctx context.Context,
	cfg *environments.Config,
) *DispatchHandler {
	return &DispatchHandler{
		scheduler:  sched,
		dispatcher: dispatcher,
		ctx:        ctx,
		config:     cfg,
	}
}

// RunPass godoc
// @Summary Execute one dispatch pass
// @Description One-shot pass over due runs, for external cron triggers. Safe to overlap with the in-process scheduler.
// @Tags dispatch
// @Accept json
// @Produce json
// @Param x-dispatch-auth-key header string true "API key for dispatch"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/dispatch/run [post]
func (h *DispatchHandler) RunPass(c echo.Context) error {
	summary, err := h.dispatcher.ProcessDueRuns(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Dispatch pass completed", summary)
}

// StartScheduler godoc
// @Summary Start the poll scheduler
// @Description Starts the in-process polling loop with an optional interval override
// @Tags dispatch
// @Accept json
// @Produce json
// @Param x-dispatch-auth-key header string true "API key for dispatch"
// @Param request body StartSchedulerRequest false "Scheduler parameters (optional)"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/dispatch/start [post]
func (h *DispatchHandler) StartScheduler(c echo.Context) error {
	if h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already running", h.scheduler.GetStatus())
	}

	var req StartSchedulerRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	interval := h.config.Dispatch.PollInterval
	if req.IntervalMinutes != nil {
		interval = time.Duration(*req.IntervalMinutes) * time.Minute
	}

	if err := h.scheduler.StartWithInterval(h.ctx, interval); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler started successfully", h.scheduler.GetStatus())
}

// StopScheduler godoc
// @Summary Stop the poll scheduler
// @Tags dispatch
// @Accept json
// @Produce json
// @Param x-dispatch-auth-key header string true "API key for dispatch"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/dispatch/stop [post]
func (h *DispatchHandler) StopScheduler(c echo.Context) error {
	if !h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already stopped", h.scheduler.GetStatus())
	}

	if err := h.scheduler.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler stopped successfully", h.scheduler.GetStatus())
}

// GetSchedulerStatus godoc
// @Summary Get scheduler status
// @Tags dispatch
// @Accept json
// @Produce json
// @Param x-dispatch-auth-key header string true "API key for dispatch"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/dispatch/status [get]
func (h *DispatchHandler) GetSchedulerStatus(c echo.Context) error {
	return response.Ok(c, h.scheduler.GetStatus())
}
