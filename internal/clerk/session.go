// Package clerk verifies the session tokens Clerk issues to signed-in browsers.
package clerk

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"prompthub_backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DefaultLeeway absorbs clock skew between Clerk and this server.
const DefaultLeeway = 5 * time.Second

var (
	// ErrInvalidSession is returned for any token that does not verify.
	ErrInvalidSession = errors.New("invalid session token")
	// ErrUnknownKey means no verification key matches the token's kid.
	ErrUnknownKey = errors.New("no verification key for token")
)

// SessionClaims are the claims Clerk puts in a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	AuthorizedParty string `json:"azp,omitempty"`
	SessionID       string `json:"sid,omitempty"`
}

// SessionVerifier checks a bearer token and returns its claims.
type SessionVerifier interface {
	VerifySessionToken(ctx context.Context, token string) (*SessionClaims, error)
}

// keySource resolves the RSA key that signed a token.
type keySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

type staticKey struct {
	key *rsa.PublicKey
}

func (s staticKey) Key(context.Context, string) (*rsa.PublicKey, error) {
	return s.key, nil
}

// Verifier verifies RS256 session tokens against a PEM key or Clerk's JWKS.
type Verifier struct {
	keys              keySource
	authorizedParties map[string]struct{}
	leeway            time.Duration
	logger            *zap.Logger
}

// NewSessionVerifier picks the key source from configuration: CLERK_JWT_KEY
// when set (no network), otherwise the JWKS endpoint authenticated with
// CLERK_SECRET_KEY.
func NewSessionVerifier(cfg *config.Config, logger *zap.Logger) (*Verifier, error) {
	logger = logger.Named("ClerkSessionVerifier")

	var keys keySource
	if pemKey := strings.TrimSpace(cfg.ClerkJWTKey); pemKey != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemKey))
		if err != nil {
			return nil, fmt.Errorf("parse CLERK_JWT_KEY: %w", err)
		}
		keys = staticKey{key: key}
		logger.Info("Verifying session tokens with the configured public key")
	} else {
		if strings.TrimSpace(cfg.ClerkSecretKey) == "" {
			return nil, errors.New("CLERK_SECRET_KEY is required when CLERK_JWT_KEY is not set")
		}
		jwksURL := strings.TrimRight(cfg.ClerkAPIURL, "/") + "/jwks"
		keys = NewJWKSCache(jwksURL, cfg.ClerkSecretKey, cfg.ClerkJWKSCacheTTL, &http.Client{Timeout: 10 * time.Second}, logger)
		logger.Info("Verifying session tokens with the Clerk JWKS", zap.String("url", jwksURL))
	}

	parties := make(map[string]struct{}, len(cfg.ClerkAuthorizedParties))
	for _, p := range cfg.ClerkAuthorizedParties {
		parties[p] = struct{}{}
	}

	return &Verifier{
		keys:              keys,
		authorizedParties: parties,
		leeway:            DefaultLeeway,
		logger:            logger,
	}, nil
}

// VerifySessionToken validates signature, expiry, subject and authorized party.
func (v *Verifier) VerifySessionToken(ctx context.Context, token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return v.keys.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}
	if len(v.authorizedParties) > 0 {
		if _, ok := v.authorizedParties[claims.AuthorizedParty]; !ok {
			return nil, fmt.Errorf("%w: unauthorized party %q", ErrInvalidSession, claims.AuthorizedParty)
		}
	}
	return claims, nil
}
