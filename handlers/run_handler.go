package handlers

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/internal/service"
	"github.com/cadencehq/outreach-dispatch/pkg/response"
	"github.com/cadencehq/outreach-dispatch/pkg/validator"
)

type RunHandler struct {
	service *service.RunService
}

func NewRunHandler(service *service.RunService) *RunHandler {
	return &RunHandler{service: service}
}

type EnrollRequest struct {
	SequenceID int64 `json:"sequenceId" validate:"required,min=1"`
	ProspectID int64 `json:"prospectId" validate:"required,min=1"`
}

// Enroll godoc
// @Summary Enroll a prospect into a sequence
// @Description Creates an active sequence run; the first step is due after its own delay
// @Tags runs
// @Accept json
// @Produce json
// @Param x-dispatch-auth-key header string true "API key for runs"
// @Param request body EnrollRequest true "Enrollment"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/runs [post]
func (h *RunHandler) Enroll(c echo.Context) error {
	var req EnrollRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	run, err := h.service.Enroll(c.Request().Context(), req.SequenceID, req.ProspectID)
	if err != nil {
		return response.BadRequest(c, err)
	}

	return response.Created(c, "Run created successfully", run)
}

// GetAllRuns godoc
// @Summary List sequence runs
// @Description Retrieves a paginated list of runs with optional status filter
// @Tags runs
// @Accept json
// @Produce json
// @Param x-dispatch-auth-key header string true "API key for runs"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param status query string false "Filter by status (active, paused, completed)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/runs [get]
func (h *RunHandler) GetAllRuns(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	statusStr := c.QueryParam("status")

	// Convert status string to pointer (optional filter).
	var status *domain.RunStatus
	if statusStr != "" {
		parsedStatus := domain.RunStatus(statusStr)
		status = &parsedStatus
	}

	runs, totalCount, err := h.service.GetAllRuns(c.Request().Context(), status, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, runs, page, pageSize, totalCount)
}

// GetRun godoc
// @Summary Get one run with its outbox ledger and audit events
// @Tags runs
// @Accept json
// @Produce json
// @Param x-dispatch-auth-key header string true "API key for runs"
// @Param id path string true "Run ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/runs/{id} [get]
func (h *RunHandler) GetRun(c echo.Context) error {
	id := c.Param("id")

	detail, err := h.service.GetRunDetail(c.Request().Context(), id)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	if detail == nil {
		return response.NotFound(c, fmt.Sprintf("run %s not found", id))
	}

	return response.Ok(c, detail)
}

// GetStats godoc
// @Summary Get run statistics
// @Description Returns count of runs by status
// @Tags runs
// @Accept json
// @Produce json
// @Param x-dispatch-auth-key header string true "API key for runs"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/runs/stats [get]
func (h *RunHandler) GetStats(c echo.Context) error {
	active, paused, completed, err := h.service.GetStats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, map[string]any{
		"active":    active,
		"paused":    paused,
		"completed": completed,
		"total":     active + paused + completed,
	})
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("pageSize")

	// Page
	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	// Page size
	pageSize := defaultPageSize
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}

		pageSize = ps
	}

	return page, pageSize, nil
}
