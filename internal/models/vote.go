package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TargetType string

const (
	TargetPost    TargetType = "POST"
	TargetComment TargetType = "COMMENT"
)

func (t TargetType) Valid() bool {
	return t == TargetPost || t == TargetComment
}

// Vote columns keep the kategori_* names the client already speaks.
// idx_vote_owner_target backs the one-vote-per-(user, target) rule at the
// storage level; the ledger also serializes per key before writing.
type Vote struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"not null;size:36;uniqueIndex:idx_vote_owner_target" json:"user_id"`
	TargetID   string     `gorm:"column:kategori_id;not null;size:36;uniqueIndex:idx_vote_owner_target;index:idx_vote_target" json:"kategori_id"`
	TargetType TargetType `gorm:"column:kategori_type;not null;size:10;uniqueIndex:idx_vote_owner_target;index:idx_vote_target" json:"kategori_type"`
	VoteType   *bool      `json:"vote_type"` // true=upvote, false=downvote, nil=cleared
	CreatedAt  time.Time  `json:"created_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// IsUpvote reports whether the vote currently points up.
func (v *Vote) IsUpvote() bool {
	return v.VoteType != nil && *v.VoteType
}
