// File: internal/webhook/service.go
package webhook

import (
	"context"
	"errors"
	"time"

	"prompthub_backend/internal/common"
	"prompthub_backend/internal/config"
	"prompthub_backend/internal/metrics"
	"prompthub_backend/internal/user"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Outcome labels what a delivery did to the users table.
type Outcome string

const (
	OutcomeUpserted Outcome = "upserted"
	OutcomeDeleted  Outcome = "deleted"
	OutcomeNoop     Outcome = "noop"
	OutcomeIgnored  Outcome = "ignored"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Result is returned for every accepted delivery.
type Result struct {
	EventType string
	Outcome   Outcome
	Message   string
}

type action int

const (
	actionIgnore action = iota
	actionUpsert
	actionDelete
)

func classify(eventType string) action {
	switch eventType {
	case EventUserCreated, EventUserUpdated:
		return actionUpsert
	case EventUserDeleted:
		return actionDelete
	default:
		return actionIgnore
	}
}

// metricsEventTypeOther labels every event type outside the handled set, so
// request bodies cannot grow the metric's cardinality.
const metricsEventTypeOther = "other"

func metricsEventType(eventType string) string {
	switch eventType {
	case EventUserCreated, EventUserUpdated, EventUserDeleted:
		return eventType
	default:
		return metricsEventTypeOther
	}
}

// SyncService mirrors identity events into the users table.
type SyncService struct {
	users        user.Repository
	validate     *validator.Validate
	storeTimeout time.Duration
	logger       *zap.Logger
	metrics      metrics.Recorder
}

// NewSyncService creates the identity sync service.
func NewSyncService(users user.Repository, cfg *config.Config, logger *zap.Logger, recorder metrics.Recorder) *SyncService {
	return &SyncService{
		users:        users,
		validate:     common.NewValidator(),
		storeTimeout: cfg.StoreTimeout,
		logger:       logger.Named("IdentitySync"),
		metrics:      recorder,
	}
}

// Apply validates, classifies and executes one verified (or test-mode) event.
// Store failures are reported as internal errors and never retried here; the
// provider redelivers.
func (s *SyncService) Apply(ctx context.Context, v *Verification) (*Result, error) {
	event := v.Event
	if err := s.validate.Struct(event); err != nil {
		eventType := metricsEventTypeOther
		if event != nil {
			eventType = metricsEventType(event.Type)
		}
		s.metrics.RecordWebhookEvent(eventType, v.Mode.String(), string(OutcomeRejected))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return nil, common.NewValidationAPIError(common.FormatValidationErrors(ve))
		}
		return nil, common.NewValidationAPIError(err.Error())
	}

	log := s.logger.With(
		zap.String("mode", v.Mode.String()),
		zap.String("eventType", event.Type),
		zap.String("userID", event.Data.ID),
	)
	if v.BypassReason != "" {
		log = log.With(zap.String("bypassReason", v.BypassReason))
	}

	var (
		result *Result
		err    error
	)
	switch classify(event.Type) {
	case actionUpsert:
		result, err = s.upsert(ctx, v.Mode, event, log)
	case actionDelete:
		result, err = s.delete(ctx, event, log)
	default:
		log.Info("Ignoring unhandled webhook event type")
		result = &Result{EventType: event.Type, Outcome: OutcomeIgnored, Message: "Event type ignored"}
	}

	if err != nil {
		outcome := OutcomeFailed
		if common.IsValidationError(err) {
			outcome = OutcomeRejected
		}
		s.metrics.RecordWebhookEvent(metricsEventType(event.Type), v.Mode.String(), string(outcome))
		return nil, err
	}
	s.metrics.RecordWebhookEvent(metricsEventType(event.Type), v.Mode.String(), string(result.Outcome))
	return result, nil
}

func (s *SyncService) upsert(ctx context.Context, mode Mode, event *Event, log *zap.Logger) (*Result, error) {
	email, ok := ExtractEmail(event.Data)
	if !ok {
		if mode == ModeVerified {
			log.Warn("Verified user event carries no email address")
			return nil, common.NewValidationAPIError(map[string]string{
				"data.email_addresses": "An email address is required.",
			})
		}
		email = PlaceholderEmail(event.Data.ID)
		log.Info("Test-mode event without email; using placeholder", zap.String("email", email))
	}

	u := &user.User{
		ID:    event.Data.ID,
		Email: email,
		Name:  DisplayName(event.Data.FirstName, event.Data.LastName),
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.users.Upsert(ctx, u); err != nil {
		log.Error("Failed to upsert user", zap.Error(err))
		return nil, common.ErrInternalServer.WithMessage("Failed to process webhook")
	}

	log.Info("User upserted", zap.String("email", u.Email))
	return &Result{EventType: event.Type, Outcome: OutcomeUpserted, Message: "User synced"}, nil
}

func (s *SyncService) delete(ctx context.Context, event *Event, log *zap.Logger) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	existed, err := s.users.Delete(ctx, event.Data.ID)
	if err != nil {
		log.Error("Failed to delete user", zap.Error(err))
		return nil, common.ErrInternalServer.WithMessage("Failed to process webhook")
	}
	if !existed {
		log.Info("User already absent; nothing to delete")
		return &Result{EventType: event.Type, Outcome: OutcomeNoop, Message: "User already deleted"}, nil
	}

	log.Info("User deleted")
	return &Result{EventType: event.Type, Outcome: OutcomeDeleted, Message: "User deleted"}, nil
}
