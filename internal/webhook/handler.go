// File: internal/webhook/handler.go
package webhook

import (
	"errors"
	"io"
	"net/http"

	"prompthub_backend/internal/common"
	"prompthub_backend/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler receives identity-provider webhook deliveries.
type Handler struct {
	verifier *Verifier
	sync     *SyncService
	maxBody  int64
	logger   *zap.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(verifier *Verifier, sync *SyncService, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		sync:     sync,
		maxBody:  cfg.WebhookMaxBodyBytes,
		logger:   logger.Named("WebhookHandler"),
	}
}

// RegisterRoutes sets up the webhook route.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/webhooks/clerk", h.receiveClerkEvent)
}

func (h *Handler) receiveClerkEvent(c *gin.Context) {
	// Signatures cover the exact bytes, so the body is read raw before any decoding.
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.RespondWithError(c, common.ErrPayloadTooLarge)
			return
		}
		h.logger.Warn("Failed to read webhook body", zap.Error(err))
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Unable to read request body."))
		return
	}

	verification, err := h.verifier.Verify(body, c.Request.Header)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	result, err := h.sync.Apply(c.Request.Context(), verification)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondWebhookAck(c, result.EventType, result.Message)
}
