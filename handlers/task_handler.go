package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/cadencehq/outreach-dispatch/internal/service"
	"github.com/cadencehq/outreach-dispatch/pkg/response"
)

type TaskHandler struct {
	service *service.TaskService
}

func NewTaskHandler(service *service.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// GetOpenTasks godoc
// @Summary List open manual tasks
// @Description Returns the human review queue for the professional-network channel
// @Tags tasks
// @Accept json
// @Produce json
// @Param x-dispatch-auth-key header string true "API key for runs"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetOpenTasks(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	tasks, totalCount, err := h.service.GetOpenTasks(c.Request().Context(), page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, tasks, page, pageSize, totalCount)
}

// CompleteTask godoc
// @Summary Mark a manual task as sent
// @Description Records that a human executed the network message; the outbox record moves from pending_manual to sent
// @Tags tasks
// @Accept json
// @Produce json
// @Param x-dispatch-auth-key header string true "API key for runs"
// @Param id path string true "Task ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/tasks/{id}/complete [post]
func (h *TaskHandler) CompleteTask(c echo.Context) error {
	id := c.Param("id")

	if err := h.service.CompleteTask(c.Request().Context(), id); err != nil {
		// "no open task found" is a client-side problem, not a server fault.
		return response.BadRequest(c, err)
	}

	return response.Ok(c, map[string]any{
		"completed": id,
	})
}
