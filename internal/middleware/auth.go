// File: internal/middleware/auth.go
package middleware

import (
	"prompthub_backend/internal/clerk"
	"prompthub_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware requires a valid Clerk session token and stores its subject
// under common.ClerkUserIDKey.
func AuthMiddleware(verifier clerk.SessionVerifier, logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("AuthMiddleware")
	return func(c *gin.Context) {
		if c.GetHeader(common.AuthorizationHeader) == "" {
			logger.Debug("Authorization header missing")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			return
		}

		token := common.GetTokenFromContext(c)
		if token == "" {
			logger.Debug("Authorization header format invalid")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		claims, err := verifier.VerifySessionToken(c.Request.Context(), token)
		if err != nil {
			logger.Warn("Session token validation failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired session token."))
			return
		}

		c.Set(common.ClerkUserIDKey, claims.Subject)
		c.Set(common.SessionIDKey, claims.SessionID)
		logger.Debug("User authenticated", zap.String("userID", claims.Subject))

		c.Next()
	}
}
