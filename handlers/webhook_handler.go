package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/internal/service"
	"github.com/cadencehq/outreach-dispatch/pkg/response"
	"github.com/cadencehq/outreach-dispatch/pkg/validator"
)

// WebhookHandler receives provider-signed inbound events. Signature
// verification happens in middleware before this handler runs.
type WebhookHandler struct {
	service *service.InboundService
}

func NewWebhookHandler(service *service.InboundService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// ReceiveEvent godoc
// @Summary Receive a provider event
// @Description Accepts delivery/open/click/bounce/reply events. A reply pauses the matching active run.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param x-webhook-signature header string true "HMAC-SHA256 signature over the raw body"
// @Param event body domain.InboundEvent true "Provider event"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /webhooks/provider [post]
func (h *WebhookHandler) ReceiveEvent(c echo.Context) error {
	var event domain.InboundEvent
	if err := c.Bind(&event); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&event); err != nil {
		return validator.HandleValidationError(c, err)
	}

	if err := h.service.HandleEvent(c.Request().Context(), &event); err != nil {
		return response.BadRequest(c, err)
	}

	return response.OkWithMessage(c, "Event accepted", nil)
}
