package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Subreddit struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"not null;index;size:36" json:"user_id"` // owner
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Name        string    `gorm:"uniqueIndex;size:21;not null" json:"name"` // URL-safe
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Subreddit) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SubredditMember is identified by (subreddit, user); the composite primary
// key keeps at most one row per pair.
type SubredditMember struct {
	SubredditID string    `gorm:"primaryKey;size:36" json:"subreddit_id"`
	Subreddit   Subreddit `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID      string    `gorm:"primaryKey;size:36" json:"user_id"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	JoinedAt    time.Time `gorm:"not null" json:"joined_at"`
	IsModerator bool      `gorm:"default:false" json:"is_moderator"`
}
