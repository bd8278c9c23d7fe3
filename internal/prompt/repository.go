// File: internal/prompt/repository.go
package prompt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prompthub_backend/internal/common"
	"prompthub_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for prompt data operations.
type Repository interface {
	Create(ctx context.Context, prompt *Prompt) error
	FindByID(ctx context.Context, id uuid.UUID) (*Prompt, error)
	ListByUser(ctx context.Context, userID string) ([]Prompt, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) (*Prompt, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM prompt repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, prompt *Prompt) error {
	err := r.db.WithContext(ctx).Omit("User").Create(prompt).Error
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return common.ErrNotFound.WithMessage(userNotRegisteredMessage)
		}
		return fmt.Errorf("create prompt: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Prompt, error) {
	var p Prompt
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Prompt not found.")
		}
		return nil, fmt.Errorf("find prompt %s: %w", id, err)
	}
	return &p, nil
}

// ListByUser returns the user's prompts, newest first. No rows is an empty slice.
func (r *gormRepository) ListByUser(ctx context.Context, userID string) ([]Prompt, error) {
	prompts := make([]Prompt, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&prompts).Error
	if err != nil {
		return nil, fmt.Errorf("list prompts for user %s: %w", userID, err)
	}
	return prompts, nil
}

// UpdateContent replaces the content and bumps updated_at, then returns the stored row.
func (r *gormRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*Prompt, error) {
	result := r.db.WithContext(ctx).Model(&Prompt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":    content,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("update prompt %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, common.ErrNotFound.WithDetails("Prompt not found.")
	}
	return r.FindByID(ctx, id)
}
