// File: internal/middleware/error.go
package middleware

import (
	"net/http"

	"prompthub_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler turns errors attached with c.Error into API error responses
// when the handler did not write a response itself.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		ginErr := c.Errors.Last()
		if apiErr, ok := common.IsAPIError(ginErr.Err); ok {
			c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
			return
		}

		logger.Error("Unhandled application error",
			zap.Error(ginErr.Err),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", common.GetRequestIDFromContext(c)),
		)
		genericError := common.ErrInternalServer
		if gin.Mode() == gin.DebugMode {
			genericError = genericError.WithDetails(ginErr.Err.Error())
		}
		c.AbortWithStatusJSON(genericError.StatusCode, genericError)
	}
}

// NoRoute answers unknown paths in the API error format.
func NoRoute(c *gin.Context) {
	common.RespondWithError(c, common.ErrNotFound.WithDetails("The requested endpoint does not exist."))
}

// NoMethod answers known paths hit with an unsupported method.
func NoMethod(c *gin.Context) {
	common.RespondWithError(c, common.NewAPIError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "The method is not allowed for the requested URL."))
}
