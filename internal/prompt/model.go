// File: internal/prompt/model.go
package prompt

import (
	"prompthub_backend/internal/common"
	"prompthub_backend/internal/user"
)

// Prompt is a piece of text owned by a user. It is removed with its owner.
type Prompt struct {
	common.BaseModel
	UserID  string     `gorm:"type:text;not null;index" json:"userId"`
	Content string     `gorm:"type:text;not null" json:"content"`
	User    *user.User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM.
func (Prompt) TableName() string {
	return "prompts"
}

// CreatePromptRequest is the body of POST /prompts. UserID is optional and,
// when sent, must name the authenticated user.
type CreatePromptRequest struct {
	Content string  `json:"content" binding:"required,min=1"`
	UserID  *string `json:"userId"`
}

// UpdatePromptRequest is the body of PATCH /prompt/:id.
type UpdatePromptRequest struct {
	Content string `json:"content" binding:"required,min=1"`
}
