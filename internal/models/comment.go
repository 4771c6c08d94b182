package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeletedCommentContent replaces the body of a soft-deleted comment.
const DeletedCommentContent = "[deleted]"

type Comment struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	UserID          string    `gorm:"not null;index;size:36" json:"user_id"`
	User            User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	PostID          string    `gorm:"not null;index;size:36" json:"post_id"`
	Post            Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ParentCommentID *string   `gorm:"index;size:36" json:"parent_comment_id"` // nil for root comments
	Content         string    `gorm:"type:text;not null" json:"content"`
	Deleted         bool      `gorm:"default:false" json:"deleted"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
