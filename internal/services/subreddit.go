package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"agora/internal/models"

	"gorm.io/gorm"
)

var subredditNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,21}$`)

type SubredditInput struct {
	Name        string
	Title       string
	Description string
}

type SubredditUpdate struct {
	Title       *string
	Description *string
}

type SubredditView struct {
	models.Subreddit
	MemberCount int64 `json:"member_count"`
}

type SubredditService struct {
	db *gorm.DB
}

func NewSubredditService(db *gorm.DB) *SubredditService {
	return &SubredditService{db: db}
}

// Create makes the caller the owner and first moderator of a new subreddit.
func (s *SubredditService) Create(ctx context.Context, callerID string, in SubredditInput) (*models.Subreddit, error) {
	name := strings.TrimSpace(in.Name)
	if !subredditNamePattern.MatchString(name) {
		return nil, validation("name must be 3-21 letters, digits or underscores")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = name
	}

	sub := models.Subreddit{
		UserID:      callerID,
		Name:        name,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Subreddit{}).Where("LOWER(name) = ?", strings.ToLower(name)).Count(&taken).Error; err != nil {
			return fmt.Errorf("check subreddit name: %w", err)
		}
		if taken > 0 {
			return conflict("subreddit %q already exists", name)
		}
		if err := tx.Create(&sub).Error; err != nil {
			return storeError("subreddit", err)
		}
		member := models.SubredditMember{
			SubredditID: sub.ID,
			UserID:      callerID,
			JoinedAt:    time.Now(),
			IsModerator: true,
		}
		if err := tx.Create(&member).Error; err != nil {
			return storeError("subreddit member", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SubredditService) List(ctx context.Context) ([]SubredditView, error) {
	var subs []models.Subreddit
	if err := s.db.WithContext(ctx).Order("name").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list subreddits: %w", err)
	}
	return s.views(ctx, subs)
}

func (s *SubredditService) Get(ctx context.Context, name string) (*SubredditView, error) {
	sub, err := s.byName(s.db.WithContext(ctx), name)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []models.Subreddit{*sub})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Update is limited to the owner.
func (s *SubredditService) Update(ctx context.Context, callerID, name string, in SubredditUpdate) (*models.Subreddit, error) {
	db := s.db.WithContext(ctx)
	sub, err := s.byName(db, name)
	if err != nil {
		return nil, err
	}
	if sub.UserID != callerID {
		return nil, forbidden("only the owner can edit this subreddit")
	}

	updates := map[string]any{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, validation("title cannot be empty")
		}
		updates["title"] = title
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if len(updates) > 0 {
		if err := db.Model(sub).Updates(updates).Error; err != nil {
			return nil, storeError("subreddit", err)
		}
	}
	return s.byName(db, name)
}

// Join adds the caller as a member. Joining twice is a Conflict.
func (s *SubredditService) Join(ctx context.Context, callerID, name string) (*models.SubredditMember, error) {
	db := s.db.WithContext(ctx)
	sub, err := s.byName(db, name)
	if err != nil {
		return nil, err
	}

	member := models.SubredditMember{
		SubredditID: sub.ID,
		UserID:      callerID,
		JoinedAt:    time.Now(),
	}
	if err := db.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("already a member of %s", sub.Name)
		}
		return nil, storeError("subreddit member", err)
	}
	return &member, nil
}

// Leave removes the caller's membership. The owner cannot leave.
func (s *SubredditService) Leave(ctx context.Context, callerID, name string) error {
	db := s.db.WithContext(ctx)
	sub, err := s.byName(db, name)
	if err != nil {
		return err
	}
	if sub.UserID == callerID {
		return validation("the owner cannot leave %s", sub.Name)
	}

	res := db.Where("subreddit_id = ? AND user_id = ?", sub.ID, callerID).Delete(&models.SubredditMember{})
	if res.Error != nil {
		return fmt.Errorf("leave subreddit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("not a member of %s", sub.Name)
	}
	return nil
}

func (s *SubredditService) Members(ctx context.Context, name string) ([]models.SubredditMember, error) {
	db := s.db.WithContext(ctx)
	sub, err := s.byName(db, name)
	if err != nil {
		return nil, err
	}
	members := make([]models.SubredditMember, 0)
	if err := db.Preload("User").Where("subreddit_id = ?", sub.ID).Order("joined_at").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (s *SubredditService) byName(db *gorm.DB, name string) (*models.Subreddit, error) {
	var sub models.Subreddit
	if err := db.Take(&sub, "LOWER(name) = ?", strings.ToLower(name)).Error; err != nil {
		return nil, storeError("subreddit", err)
	}
	return &sub, nil
}

func (s *SubredditService) views(ctx context.Context, subs []models.Subreddit) ([]SubredditView, error) {
	views := make([]SubredditView, 0, len(subs))
	if len(subs) == 0 {
		return views, nil
	}
	ids := make([]string, len(subs))
	for i, sub := range subs {
		ids[i] = sub.ID
	}

	type tally struct {
		SubredditID string
		Count       int64
	}
	var rows []tally
	err := s.db.WithContext(ctx).Model(&models.SubredditMember{}).
		Select("subreddit_id, COUNT(*) AS count").
		Where("subreddit_id IN ?", ids).
		Group("subreddit_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.SubredditID] = r.Count
	}

	for _, sub := range subs {
		views = append(views, SubredditView{Subreddit: sub, MemberCount: counts[sub.ID]})
	}
	return views, nil
}
