// File: internal/common/context_helpers.go
package common

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// GetTokenFromContext retrieves the bearer token from the Authorization header.
// Returns an empty string if not found.
func GetTokenFromContext(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], AuthorizationTypeBearer) {
		return ""
	}
	return parts[1]
}

// GetClerkUserIDFromContext retrieves the authenticated user id set by the auth middleware.
func GetClerkUserIDFromContext(c *gin.Context) string {
	return c.GetString(ClerkUserIDKey)
}

// GetRequestIDFromContext retrieves the request id set by the logger middleware.
func GetRequestIDFromContext(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
