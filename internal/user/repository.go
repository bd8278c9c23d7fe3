// File: internal/user/repository.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"prompthub_backend/internal/common"
	"prompthub_backend/internal/platform/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyntheticEmailPattern matches the placeholder emails given to users created
// from unsigned test deliveries.
const SyntheticEmailPattern = "test-%@clerk.test"

// Repository defines the interface for user data operations.
type Repository interface {
	Upsert(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*User, error)
	DeleteStaleSynthetic(ctx context.Context, before time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Upsert inserts the user or, when the id already exists, overwrites email,
// name and updated_at in the same statement. created_at is never touched on
// conflict.
func (r *gormRepository) Upsert(ctx context.Context, user *User) error {
	user.Email = strings.TrimSpace(user.Email)
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("upsert user %s: %w", user.ID,
				common.ErrConflict.WithDetails("Email is already used by another user."))
		}
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return nil
}

// Delete removes the user. It reports whether a row existed; a missing row is
// not an error.
func (r *gormRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&User{})
	if result.Error != nil {
		return false, fmt.Errorf("delete user %s: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindByID retrieves a user by their ID.
func (r *gormRepository) FindByID(ctx context.Context, id string) (*User, error) {
	var userModel User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("User not found with this ID.")
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return &userModel, nil
}

// DeleteStaleSynthetic removes placeholder-email users created before the cutoff.
func (r *gormRepository) DeleteStaleSynthetic(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("email LIKE ? AND created_at < ?", SyntheticEmailPattern, before.UTC()).
		Delete(&User{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete stale synthetic users: %w", result.Error)
	}
	return result.RowsAffected, nil
}
