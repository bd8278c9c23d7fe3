// File: internal/prompt/handler.go
package prompt

import (
	"errors"

	"prompthub_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for prompt handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new prompt handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("PromptHandler"),
	}
}

// RegisterRoutes sets up the prompt routes. limiter runs before everything,
// authMW only guards creation. The singular /prompt paths are kept for
// existing clients.
func (h *Handler) RegisterRoutes(router gin.IRouter, authMW, limiter gin.HandlerFunc) {
	group := router.Group("")
	group.Use(limiter)
	{
		group.POST("/prompts", authMW, h.createPrompt)
		group.POST("/prompt/create", authMW, h.createPrompt)

		group.GET("/prompts/:userId", h.listPrompts)
		group.GET("/prompt/:id", h.listPrompts)

		group.PATCH("/prompt/:id", h.updatePrompt)
	}
}

func (h *Handler) createPrompt(c *gin.Context) {
	authUserID := common.GetClerkUserIDFromContext(c)
	if authUserID == "" {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	var req CreatePromptRequest
	if !h.bind(c, &req) {
		return
	}

	p, err := h.service.CreatePrompt(c.Request.Context(), authUserID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, p)
}

// listPrompts serves both /prompts/:userId and /prompt/:id; in both the
// parameter is the owner's user id.
func (h *Handler) listPrompts(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		userID = c.Param("id")
	}

	prompts, err := h.service.ListByUser(c.Request.Context(), userID)
	if err != nil {
		// Rendered by middleware.ErrorHandler.
		_ = c.Error(err)
		return
	}
	common.RespondOK(c, prompts)
}

func (h *Handler) updatePrompt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.NewValidationAPIError(map[string]string{
			"id": "The id field must be a valid UUID.",
		}))
		return
	}

	var req UpdatePromptRequest
	if !h.bind(c, &req) {
		return
	}

	p, err := h.service.UpdatePrompt(c.Request.Context(), id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	common.RespondOK(c, p)
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Debug("Invalid prompt request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return false
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request body: "+err.Error()))
		return false
	}
	return true
}
