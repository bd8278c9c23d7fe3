// File: internal/prompt/service.go
package prompt

import (
	"context"
	"errors"
	"strings"

	"prompthub_backend/internal/common"
	"prompthub_backend/internal/config"
	"prompthub_backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userNotRegisteredMessage = "User not found. Please ensure you're registered."

// Service defines the interface for prompt business logic.
type Service interface {
	CreatePrompt(ctx context.Context, authUserID string, req CreatePromptRequest) (*Prompt, error)
	ListByUser(ctx context.Context, userID string) ([]Prompt, error)
	UpdatePrompt(ctx context.Context, id uuid.UUID, req UpdatePromptRequest) (*Prompt, error)
}

// ServiceImplementation implements the prompt Service.
type ServiceImplementation struct {
	repo     Repository
	userRepo user.Repository
	cfg      *config.Config
	logger   *zap.Logger
}

// NewService creates a new prompt service.
func NewService(repo Repository, userRepo user.Repository, cfg *config.Config, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:     repo,
		userRepo: userRepo,
		cfg:      cfg,
		logger:   logger.Named("PromptService"),
	}
}

// CreatePrompt stores a prompt for the authenticated user, who must already
// have been synced into the users table.
func (s *ServiceImplementation) CreatePrompt(ctx context.Context, authUserID string, req CreatePromptRequest) (*Prompt, error) {
	if authUserID == "" {
		return nil, common.ErrUnauthorized
	}
	if req.UserID != nil && *req.UserID != "" && *req.UserID != authUserID {
		s.logger.Warn("Create prompt: userId does not match session",
			zap.String("sessionUserID", authUserID), zap.String("bodyUserID", *req.UserID))
		return nil, common.ErrForbidden.WithDetails("userId does not match the authenticated user.")
	}
	content, err := validContent(req.Content)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if _, err := s.userRepo.FindByID(ctx, authUserID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound.WithMessage(userNotRegisteredMessage)
		}
		s.logger.Error("Create prompt: user lookup failed", zap.String("userID", authUserID), zap.Error(err))
		return nil, err
	}

	p := &Prompt{UserID: authUserID, Content: content}
	if err := s.repo.Create(ctx, p); err != nil {
		if _, ok := common.IsAPIError(err); !ok {
			s.logger.Error("Create prompt: insert failed", zap.String("userID", authUserID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Prompt created", zap.String("promptID", p.ID.String()), zap.String("userID", authUserID))
	return p, nil
}

// ListByUser returns every prompt owned by userID, newest first.
func (s *ServiceImplementation) ListByUser(ctx context.Context, userID string) ([]Prompt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	prompts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("List prompts failed", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	return prompts, nil
}

// UpdatePrompt replaces a prompt's content.
func (s *ServiceImplementation) UpdatePrompt(ctx context.Context, id uuid.UUID, req UpdatePromptRequest) (*Prompt, error) {
	content, err := validContent(req.Content)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	p, err := s.repo.UpdateContent(ctx, id, content)
	if err != nil {
		if _, ok := common.IsAPIError(err); !ok {
			s.logger.Error("Update prompt failed", zap.String("promptID", id.String()), zap.Error(err))
		}
		return nil, err
	}
	return p, nil
}

func validContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", common.NewValidationAPIError(map[string]string{
			"content": "The content field cannot be empty.",
		})
	}
	return content, nil
}
