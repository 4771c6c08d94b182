package services

import (
	"context"
	"fmt"
	"log"

	"agora/internal/models"

	"gorm.io/gorm"
)

const notificationListLimit = 50

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// NotifyComment tells the parent comment's author about a reply, or the
// post author about a root comment. Nobody is notified about their own
// comment. Failures are logged and swallowed.
func (s *NotificationService) NotifyComment(ctx context.Context, post *models.Post, parent *models.Comment, comment *models.Comment) {
	n := models.Notification{
		ActorID:   comment.UserID,
		PostID:    post.ID,
		CommentID: comment.ID,
	}
	if parent != nil {
		n.UserID = parent.UserID
		n.Type = models.NotificationTypeReplyComment
	} else {
		n.UserID = post.UserID
		n.Type = models.NotificationTypeCommentPost
	}
	if n.UserID == n.ActorID {
		return
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		log.Printf("create notification for comment %s: %v", comment.ID, err)
	}
}

// List returns the newest notifications addressed to userID.
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	notifications := make([]models.Notification, 0)
	err := s.db.WithContext(ctx).Preload("Actor").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(notificationListLimit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags one of the user's notifications as read. Another user's
// notification is reported as missing.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("notification not found")
	}
	return nil
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}
