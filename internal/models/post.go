package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Post struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	UserID      string     `gorm:"not null;index;size:36" json:"user_id"`
	User        User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	SubredditID *string    `gorm:"index;size:36" json:"subreddit_id"` // nil for unaffiliated posts
	Subreddit   *Subreddit `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"subreddit,omitempty"`
	Title       string     `gorm:"not null" json:"title"`
	Content     string     `gorm:"type:text" json:"content"`
	Image       string     `json:"image,omitempty"` // URL only, the bytes live elsewhere
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Not stored; filled in by list queries.
	CommentCount int `gorm:"-" json:"comment_count"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
