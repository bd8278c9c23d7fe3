// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// ClerkUserIDKey is the context key for the authenticated identity-provider user id
	ClerkUserIDKey = "clerkUserID"
	// SessionIDKey is the context key for the verified session id (sid claim)
	SessionIDKey = "sessionID"
	// RequestIDKey is the context key for the per-request correlation id
	RequestIDKey = "requestID"
	// RequestIDHeader carries the correlation id in and out of the service
	RequestIDHeader = "X-Request-ID"
)
