package webhook

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"prompthub_backend/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	svix "github.com/svix/svix-webhooks/go"
	"github.com/stretchr/testify/require"
)

var testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("prompthub-webhook-test-secret-32"))

func newTestCollector() *metrics.Collector {
	return metrics.NewCollector(prometheus.NewRegistry())
}

// recordingMetrics keeps every recorded call for assertions.
type recordingMetrics struct {
	mu        sync.Mutex
	events    []string
	fallbacks []string
}

var _ metrics.Recorder = (*recordingMetrics)(nil)

func (r *recordingMetrics) RecordWebhookEvent(eventType, mode, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType+"/"+mode+"/"+outcome)
}

func (r *recordingMetrics) RecordVerificationFallback(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, reason)
}

func (r *recordingMetrics) RecordHTTPRequest(string, int, time.Duration) {}

// signedHeaders signs body with secret the way the provider does.
func signedHeaders(t *testing.T, secret string, body []byte) http.Header {
	t.Helper()
	wh, err := svix.NewWebhook(secret)
	require.NoError(t, err)

	now := time.Now()
	msgID := "msg_" + strconv.FormatInt(now.UnixNano(), 10)
	sig, err := wh.Sign(msgID, now, body)
	require.NoError(t, err)

	h := http.Header{}
	h.Set(HeaderSvixID, msgID)
	h.Set(HeaderSvixTimestamp, strconv.FormatInt(now.Unix(), 10))
	h.Set(HeaderSvixSignature, sig)
	return h
}
