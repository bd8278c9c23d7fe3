// File: internal/webhook/verifier.go
package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"prompthub_backend/internal/common"
	"prompthub_backend/internal/config"
	"prompthub_backend/internal/metrics"

	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"
)

const (
	HeaderSvixID        = "svix-id"
	HeaderSvixTimestamp = "svix-timestamp"
	HeaderSvixSignature = "svix-signature"

	secretPrefix = "whsec_"
)

// Reasons a signed delivery is processed unverified.
const (
	ReasonHeadersAbsent   = "headers_absent"
	ReasonSecretMissing   = "secret_missing"
	ReasonSecretMalformed = "secret_malformed"
)

// Mode tells downstream processing whether the payload's origin was proven.
type Mode int

const (
	// ModeTest marks a payload accepted without signature verification.
	ModeTest Mode = iota
	// ModeVerified marks a payload whose signature checked out.
	ModeVerified
)

func (m Mode) String() string {
	if m == ModeVerified {
		return "verified"
	}
	return "test"
}

// Verification is the outcome of checking one delivery.
type Verification struct {
	Mode         Mode
	Event        *Event
	BypassReason string
}

// Verifier decides how much to trust a webhook delivery.
type Verifier struct {
	wh            *svix.Webhook
	secretProblem string
	strict        bool
	logger        *zap.Logger
	metrics       metrics.Recorder
}

// NewVerifier prepares signature checking from CLERK_WEBHOOK_SECRET. An
// unusable secret downgrades signed deliveries to test mode, unless strict
// verification is on, in which case it is a startup error.
func NewVerifier(cfg *config.Config, logger *zap.Logger, recorder metrics.Recorder) (*Verifier, error) {
	v := &Verifier{
		strict:  cfg.WebhookStrictVerification,
		logger:  logger.Named("WebhookVerifier"),
		metrics: recorder,
	}

	secret := strings.TrimSpace(cfg.ClerkWebhookSecret)
	switch {
	case secret == "":
		v.secretProblem = ReasonSecretMissing
	case !strings.HasPrefix(secret, secretPrefix):
		v.secretProblem = ReasonSecretMalformed
	default:
		wh, err := svix.NewWebhook(secret)
		if err != nil {
			v.secretProblem = ReasonSecretMalformed
		} else {
			v.wh = wh
		}
	}

	if v.secretProblem != "" {
		if v.strict {
			return nil, fmt.Errorf("CLERK_WEBHOOK_SECRET unusable (%s) and WEBHOOK_STRICT_VERIFICATION is enabled", v.secretProblem)
		}
		v.logger.Warn("Webhook signatures cannot be verified; deliveries will be processed in test mode",
			zap.String("reason", v.secretProblem))
	}
	return v, nil
}

// Verify selects the mode for a delivery and decodes its body.
func (v *Verifier) Verify(body []byte, headers http.Header) (*Verification, error) {
	result := &Verification{Mode: ModeTest}

	switch {
	case !hasSignatureHeaders(headers):
		if v.strict {
			v.logger.Warn("Rejected webhook without svix headers")
			return v.reject(ModeTest, common.ErrMissingSignatureHeaders)
		}
		result.BypassReason = ReasonHeadersAbsent
		v.logger.Info("Webhook without svix headers; processing in test mode")

	case v.wh == nil:
		result.BypassReason = v.secretProblem
		v.logger.Error("Webhook signature verification bypassed",
			zap.String("reason", v.secretProblem),
			zap.String("svixID", headers.Get(HeaderSvixID)))
		v.metrics.RecordVerificationFallback(v.secretProblem)

	default:
		if err := v.wh.Verify(body, headers); err != nil {
			v.logger.Warn("Webhook signature verification failed",
				zap.String("svixID", headers.Get(HeaderSvixID)), zap.Error(err))
			return v.reject(ModeVerified, common.ErrInvalidSignature)
		}
		result.Mode = ModeVerified
	}

	event, err := decodeEvent(body)
	if err != nil {
		return v.reject(result.Mode, err)
	}
	result.Event = event
	return result, nil
}

func (v *Verifier) reject(mode Mode, err error) (*Verification, error) {
	v.metrics.RecordWebhookEvent(metricsEventTypeOther, mode.String(), string(OutcomeRejected))
	return nil, err
}

func hasSignatureHeaders(h http.Header) bool {
	return h.Get(HeaderSvixID) != "" && h.Get(HeaderSvixTimestamp) != "" && h.Get(HeaderSvixSignature) != ""
}

func decodeEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, common.NewValidationAPIError(map[string]string{
			"body": "The request body must be a JSON webhook event.",
		})
	}
	return &event, nil
}
