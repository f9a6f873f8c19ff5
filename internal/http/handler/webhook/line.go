package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/YushiOMOTE/buddy/internal/service"
)

// maxBodyBytes caps inbound deliveries; LINE batches are far smaller.
const maxBodyBytes = 1 << 20

type LineWebhookHandler struct {
	deliveries service.DeliveryService
}

func NewLineWebhookHandler(deliveries service.DeliveryService) *LineWebhookHandler {
	return &LineWebhookHandler{deliveries: deliveries}
}

// HandleEvent acknowledges a processed delivery with 200 and an empty body.
func (h *LineWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if len(body) > maxBodyBytes {
		slog.WarnContext(ctx, "line delivery rejected", "error", "body too large", "status", http.StatusRequestEntityTooLarge)
		c.Status(http.StatusRequestEntityTooLarge)
		return
	}

	result, err := h.deliveries.Handle(ctx, c.Request.Header, body)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			var deliveryID int64
			if result != nil {
				deliveryID = result.DeliveryID
			}
			slog.ErrorContext(ctx, "line delivery failed", "error", err, "status", status, "delivery_id", deliveryID)
		} else {
			slog.WarnContext(ctx, "line delivery rejected", "error", err, "status", status)
		}
		_ = c.Error(err)
		c.Status(status)
		return
	}

	c.Status(http.StatusOK)
}

// statusFor maps a delivery failure to its HTTP status. Store failures win
// over processing failures when both are reported.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSecrets),
		errors.Is(err, service.ErrStoreRead),
		errors.Is(err, service.ErrStoreWrite):
		return http.StatusInternalServerError
	case errors.Is(err, service.ErrCompletion), errors.Is(err, service.ErrDelivery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
