// File: internal/user/model.go
package user

import (
	"time"
)

// User mirrors an identity-provider account. ID is the provider's user id.
type User struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Email     string    `gorm:"type:text;not null;uniqueIndex:users_email_key" json:"email"`
	Name      *string   `gorm:"type:text" json:"name,omitempty"`
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}
