package clerk

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"prompthub_backend/internal/config"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func publicPEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func sign(t *testing.T, key *rsa.PrivateKey, kid string, claims SessionClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(sub, azp string) SessionClaims {
	now := time.Now()
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Second)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
		AuthorizedParty: azp,
		SessionID:       "sess_1",
	}
}

func TestVerifier_PEMKey(t *testing.T) {
	key := newKey(t)
	v, err := NewSessionVerifier(&config.Config{ClerkJWTKey: publicPEM(t, key)}, zap.NewNop())
	require.NoError(t, err)

	claims, err := v.VerifySessionToken(context.Background(), sign(t, key, "", validClaims("user_1", "")))
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.Subject)
	assert.Equal(t, "sess_1", claims.SessionID)
}

func TestVerifier_Rejections(t *testing.T) {
	key := newKey(t)
	other := newKey(t)
	v, err := NewSessionVerifier(&config.Config{
		ClerkJWTKey:            publicPEM(t, key),
		ClerkAuthorizedParties: []string{"https://app.example.com"},
	}, zap.NewNop())
	require.NoError(t, err)

	expired := validClaims("user_1", "https://app.example.com")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("user_1", "https://app.example.com")).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"expired":       sign(t, key, "", expired),
		"foreign key":   sign(t, other, "", validClaims("user_1", "https://app.example.com")),
		"wrong party":   sign(t, key, "", validClaims("user_1", "https://evil.example.com")),
		"no subject":    sign(t, key, "", validClaims("", "https://app.example.com")),
		"hmac alg":      hs,
		"garbage token": "not.a.jwt",
	}
	for name, token := range cases {
		_, err := v.VerifySessionToken(context.Background(), token)
		assert.True(t, errors.Is(err, ErrInvalidSession), name)
	}

	_, err = v.VerifySessionToken(context.Background(), sign(t, key, "", validClaims("user_1", "https://app.example.com")))
	assert.NoError(t, err)
}

func TestVerifier_JWKS(t *testing.T) {
	key := newKey(t)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/v1/jwks" || r.Header.Get("Authorization") != "Bearer sk_test_abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{Key: &key.PublicKey, KeyID: "ins_1", Algorithm: "RS256", Use: "sig"}}}
		_ = json.NewEncoder(w).Encode(set)
	}))
	defer srv.Close()

	v, err := NewSessionVerifier(&config.Config{
		ClerkSecretKey:    "sk_test_abc",
		ClerkAPIURL:       srv.URL + "/v1",
		ClerkJWKSCacheTTL: time.Hour,
	}, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		claims, err := v.VerifySessionToken(context.Background(), sign(t, key, "ins_1", validClaims("user_1", "")))
		require.NoError(t, err)
		assert.Equal(t, "user_1", claims.Subject)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err = v.VerifySessionToken(context.Background(), sign(t, key, "ins_unknown", validClaims("user_1", "")))
	assert.True(t, errors.Is(err, ErrInvalidSession))
}

func TestJWKSCache_RefreshesAfterTTL(t *testing.T) {
	key := newKey(t)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{Key: &key.PublicKey, KeyID: "k1", Use: "sig"}}})
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, "sk", time.Minute, srv.Client(), zap.NewNop())
	clock := time.Now()
	cache.now = func() time.Time { return clock }

	_, err := cache.Key(context.Background(), "k1")
	require.NoError(t, err)
	_, err = cache.Key(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	clock = clock.Add(2 * time.Minute)
	_, err = cache.Key(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestJWKSCache_ServesCachedKeyWhenRefreshFails(t *testing.T) {
	key := newKey(t)
	var hits int32
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if down.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{Key: &key.PublicKey, KeyID: "k1", Use: "sig"}}})
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, "sk", time.Minute, srv.Client(), zap.NewNop())
	clock := time.Now()
	cache.now = func() time.Time { return clock }

	_, err := cache.Key(context.Background(), "k1")
	require.NoError(t, err)

	down.Store(true)
	clock = clock.Add(2 * time.Minute)
	got, err := cache.Key(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, 0, key.PublicKey.N.Cmp(got.N))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	// Within the retry window the cache does not hit the endpoint again.
	_, err = cache.Key(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	_, err = cache.Key(context.Background(), "k2")
	assert.True(t, errors.Is(err, ErrUnknownKey))

	clock = clock.Add(minRefreshInterval + time.Second)
	_, err = cache.Key(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestJWKSCache_FirstFetchFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, "sk", time.Minute, srv.Client(), zap.NewNop())
	_, err := cache.Key(context.Background(), "k1")
	assert.Error(t, err)
}

func TestNewSessionVerifier_BadPEM(t *testing.T) {
	_, err := NewSessionVerifier(&config.Config{ClerkJWTKey: "-----BEGIN PUBLIC KEY-----\nnope\n-----END PUBLIC KEY-----"}, zap.NewNop())
	assert.Error(t, err)
}
