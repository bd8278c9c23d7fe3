// File: internal/common/response.go
package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggerKey is the gin context key under which the request-scoped logger is stored.
const LoggerKey = "logger"

// RespondWithError sends a JSON error response.
func RespondWithError(c *gin.Context, err error) {
	apiErr, ok := IsAPIError(err)
	if !ok {
		if l, exists := c.Get(LoggerKey); exists {
			if logger, ok := l.(*zap.Logger); ok {
				logger.Error("Unhandled internal error being wrapped", zap.Error(err))
			}
		}
		apiErr = ErrInternalServer
		if gin.Mode() == gin.DebugMode {
			apiErr = apiErr.WithDetails(err.Error())
		}
	}

	c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
}

// RespondJSON writes data as the whole response body.
func RespondJSON(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// RespondOK sends a 200 OK response.
func RespondOK(c *gin.Context, data interface{}) {
	RespondJSON(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response.
func RespondCreated(c *gin.Context, data interface{}) {
	RespondJSON(c, http.StatusCreated, data)
}

// WebhookAck is the acknowledgement body returned to the identity provider.
type WebhookAck struct {
	Success   bool   `json:"success"`
	EventType string `json:"eventType"`
	Message   string `json:"message"`
}

// RespondWebhookAck sends a 200 acknowledgement for a processed delivery.
func RespondWebhookAck(c *gin.Context, eventType, message string) {
	c.JSON(http.StatusOK, WebhookAck{Success: true, EventType: eventType, Message: message})
}
