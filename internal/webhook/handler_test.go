package webhook_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"prompthub_backend/internal/config"
	"prompthub_backend/internal/metrics"
	"prompthub_backend/internal/platform/database/dbtest"
	"prompthub_backend/internal/prompt"
	"prompthub_backend/internal/user"
	"prompthub_backend/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	svix "github.com/svix/svix-webhooks/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var secret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("prompthub-webhook-e2e-secret-32b"))

type env struct {
	db     *gorm.DB
	users  user.Repository
	router *gin.Engine
	reg    *prometheus.Registry
}

func newEnv(t *testing.T, repo user.Repository) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t, &user.User{}, &prompt.Prompt{})
	if repo == nil {
		repo = user.NewGORMRepository(db)
	}
	cfg := &config.Config{
		ClerkWebhookSecret:  secret,
		StoreTimeout:        time.Second,
		WebhookMaxBodyBytes: 1 << 16,
	}
	reg := prometheus.NewRegistry()
	recorder := metrics.NewCollector(reg)

	verifier, err := webhook.NewVerifier(cfg, zap.NewNop(), recorder)
	require.NoError(t, err)
	sync := webhook.NewSyncService(repo, cfg, zap.NewNop(), recorder)

	r := gin.New()
	webhook.NewHandler(verifier, sync, cfg, zap.NewNop()).RegisterRoutes(r)
	return &env{db: db, users: user.NewGORMRepository(db), router: r, reg: reg}
}

func (e *env) post(t *testing.T, body string, signed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signed {
		wh, err := svix.NewWebhook(secret)
		require.NoError(t, err)
		now := time.Now()
		id := "msg_" + strconv.FormatInt(now.UnixNano(), 10)
		sig, err := wh.Sign(id, now, []byte(body))
		require.NoError(t, err)
		req.Header.Set("svix-id", id)
		req.Header.Set("svix-timestamp", strconv.FormatInt(now.Unix(), 10))
		req.Header.Set("svix-signature", sig)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&user.User{}).Count(&n).Error)
	return n
}

func TestWebhook_CreateIsIdempotent(t *testing.T) {
	e := newEnv(t, nil)
	body := `{"type":"user.created","data":{"id":"user_1","email_addresses":[{"email_address":"ada@example.com"}],"first_name":"Ada","last_name":"Lovelace"}}`

	for i := 0; i < 2; i++ {
		w := e.post(t, body, true)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var ack map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
		assert.Equal(t, true, ack["success"])
		assert.Equal(t, "user.created", ack["eventType"])
	}

	assert.Equal(t, int64(1), e.count(t))
	u, err := e.users.FindByID(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	require.NotNil(t, u.Name)
	assert.Equal(t, "Ada Lovelace", *u.Name)
}

func TestWebhook_VerifiedEmailChangeKeepsNameAndCreatedAt(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	w := e.post(t, `{"type":"user.created","data":{"id":"user_1","email_addresses":[{"email_address":"old@example.com"}],"first_name":"Grace","last_name":"Hopper"}}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	before, err := e.users.FindByID(ctx, "user_1")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	w = e.post(t, `{"type":"user.updated","data":{"id":"user_1","email_addresses":[{"email_address":"new@example.com"}],"first_name":"Grace","last_name":"Hopper"}}`, true)
	require.Equal(t, http.StatusOK, w.Code)

	after, err := e.users.FindByID(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", after.Email)
	assert.Equal(t, "Grace Hopper", *after.Name)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
	assert.Equal(t, int64(1), e.count(t))
}

func TestWebhook_UpdatedWithoutRowCreatesIt(t *testing.T) {
	e := newEnv(t, nil)

	w := e.post(t, `{"type":"user.updated","data":{"id":"user_late","email":"late@example.com"}}`, true)

	require.Equal(t, http.StatusOK, w.Code)
	u, err := e.users.FindByID(context.Background(), "user_late")
	require.NoError(t, err)
	assert.Nil(t, u.Name)
}

func TestWebhook_TestModePlaceholderEmail(t *testing.T) {
	e := newEnv(t, nil)

	w := e.post(t, `{"type":"user.created","data":{"id":"user_abc","first_name":"Test"}}`, false)

	require.Equal(t, http.StatusOK, w.Code)
	u, err := e.users.FindByID(context.Background(), "user_abc")
	require.NoError(t, err)
	assert.Equal(t, "test-user_abc@clerk.test", u.Email)
	assert.Equal(t, "Test", *u.Name)
}

func TestWebhook_VerifiedWithoutEmailIsRejected(t *testing.T) {
	e := newEnv(t, nil)

	w := e.post(t, `{"type":"user.created","data":{"id":"user_1"}}`, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	assert.Zero(t, e.count(t))
}

func TestWebhook_DeleteIsIdempotentAndCascades(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, e.users.Upsert(ctx, &user.User{ID: "user_1", Email: "a@example.com"}))
	prompts := prompt.NewGORMRepository(e.db)
	require.NoError(t, prompts.Create(ctx, &prompt.Prompt{UserID: "user_1", Content: "hello"}))

	body := `{"type":"user.deleted","data":{"id":"user_1","deleted":true}}`
	for i := 0; i < 2; i++ {
		w := e.post(t, body, true)
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Zero(t, e.count(t))
	left, err := prompts.ListByUser(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestWebhook_DeleteUnknownUserSucceeds(t *testing.T) {
	e := newEnv(t, nil)

	w := e.post(t, `{"type":"user.deleted","data":{"id":"user_never"}}`, false)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhook_UnhandledTypeIsAcknowledged(t *testing.T) {
	e := newEnv(t, nil)

	w := e.post(t, `{"type":"session.created","data":{"id":"sess_1"}}`, true)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"eventType":"session.created"`)
	assert.Zero(t, e.count(t))
}

func TestWebhook_MissingFieldsAreRejected(t *testing.T) {
	e := newEnv(t, nil)

	for _, body := range []string{
		`{"data":{"id":"user_1"}}`,
		`{"type":"user.created"}`,
		`{"type":"user.created","data":{}}`,
	} {
		w := e.post(t, body, false)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR", body)
	}
	assert.Zero(t, e.count(t))
}

func TestWebhook_TamperedSignature(t *testing.T) {
	e := newEnv(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(`{"type":"user.created","data":{"id":"user_1","email":"a@example.com"}}`))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("svix-signature", "v1,AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SIGNATURE")
	assert.Zero(t, e.count(t))
}

func TestWebhook_OversizedBody(t *testing.T) {
	e := newEnv(t, nil)

	w := e.post(t, `{"type":"user.created","data":{"id":"`+strings.Repeat("x", 1<<17)+`"}}`, false)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

type failingRepo struct{ user.Repository }

func (failingRepo) Upsert(context.Context, *user.User) error {
	return errors.New("context deadline exceeded")
}

func TestWebhook_StoreFailureIs500(t *testing.T) {
	e := newEnv(t, failingRepo{})

	w := e.post(t, `{"type":"user.created","data":{"id":"user_1","email":"a@example.com"}}`, true)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to process webhook")
}

func TestWebhook_EventTypeMetricLabelIsBounded(t *testing.T) {
	e := newEnv(t, nil)

	for i := 0; i < 50; i++ {
		w := e.post(t, fmt.Sprintf(`{"type":"junk.%d","data":{"id":"x"}}`, i), false)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w := e.post(t, `{"type":"junk.bad","data":{}}`, false)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = e.post(t, `{"type":"user.created","data":{"id":"user_1","email_address":"a@example.com"}}`, false)
	require.Equal(t, http.StatusOK, w.Code)

	expected := `
# HELP prompthub_webhook_events_total Identity webhook deliveries by event type, verification mode and outcome.
# TYPE prompthub_webhook_events_total counter
prompthub_webhook_events_total{event_type="other",mode="test",outcome="ignored"} 50
prompthub_webhook_events_total{event_type="other",mode="test",outcome="rejected"} 1
prompthub_webhook_events_total{event_type="user.created",mode="test",outcome="upserted"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(e.reg, strings.NewReader(expected), "prompthub_webhook_events_total"))
}
