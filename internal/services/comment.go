package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agora/internal/models"
	"agora/internal/thread"
	"agora/internal/utils"

	"gorm.io/gorm"
)

const threadCacheTTL = 5 * time.Minute

func threadCacheKey(postID string) string {
	return "thread:" + postID
}

// CommentService stores comments and serves them as reply trees. Trees are
// cached per post and patched in place of a rebuild when a comment is added.
// Each post's tree is its own cache scope, so a rebuild that overlaps a
// write is never stored.
type CommentService struct {
	db            *gorm.DB
	cache         *utils.Cache
	notifications *NotificationService
}

func NewCommentService(db *gorm.DB, cache *utils.Cache, notifications *NotificationService) *CommentService {
	return &CommentService{db: db, cache: cache, notifications: notifications}
}

// Thread returns the post's comments as a forest, oldest first at every
// level.
func (s *CommentService) Thread(ctx context.Context, postID string) ([]*thread.Node, error) {
	if tree, ok := s.cachedThread(postID); ok {
		return tree, nil
	}
	key := threadCacheKey(postID)
	var version uint64
	if s.cache != nil {
		version = s.cache.Version(key)
	}

	db := s.db.WithContext(ctx)
	if err := postExists(db, postID); err != nil {
		return nil, err
	}

	var comments []models.Comment
	err := db.Preload("User").
		Where("post_id = ?", postID).
		Order("created_at").Order("id").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	tree := thread.Build(comments)
	if s.cache != nil {
		s.cache.SetIfCurrent(key, version, key, tree, threadCacheTTL)
	}
	return tree, nil
}

// Create adds a comment to the post, as a reply when parentID is set. The
// parent must exist and belong to the same post. It returns the new
// comment and the post's updated thread.
func (s *CommentService) Create(ctx context.Context, callerID, postID, content string, parentID *string) (*models.Comment, []*thread.Node, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil, validation("content is required")
	}
	db := s.db.WithContext(ctx)

	var post models.Post
	if err := db.Take(&post, "id = ?", postID).Error; err != nil {
		return nil, nil, storeError("post", err)
	}

	var parent *models.Comment
	if parentID != nil && *parentID != "" {
		parent = &models.Comment{}
		if err := db.Take(parent, "id = ?", *parentID).Error; err != nil {
			return nil, nil, storeError("parent comment", err)
		}
		if parent.PostID != post.ID {
			return nil, nil, validation("parent comment belongs to another post")
		}
	}

	comment := models.Comment{
		UserID:  callerID,
		PostID:  post.ID,
		Content: content,
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
	}
	if err := db.Create(&comment).Error; err != nil {
		return nil, nil, storeError("comment", err)
	}
	if err := db.Preload("User").Take(&comment, "id = ?", comment.ID).Error; err != nil {
		return nil, nil, storeError("comment", err)
	}

	s.patchThread(post.ID, parent, comment)
	if s.notifications != nil {
		s.notifications.NotifyComment(ctx, &post, parent, &comment)
	}

	tree, err := s.Thread(ctx, post.ID)
	if err != nil {
		return nil, nil, err
	}
	return &comment, tree, nil
}

func (s *CommentService) Update(ctx context.Context, callerID, id, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validation("content is required")
	}
	db := s.db.WithContext(ctx)
	comment, err := s.ownedComment(db, callerID, id)
	if err != nil {
		return nil, err
	}
	if comment.Deleted {
		return nil, validation("deleted comments cannot be edited")
	}

	if err := db.Model(comment).Update("content", content).Error; err != nil {
		return nil, storeError("comment", err)
	}
	comment.Content = content
	s.dropThread(comment.PostID)
	return comment, nil
}

// Delete blanks the comment and flags it deleted. The row stays so its
// replies keep their parent.
func (s *CommentService) Delete(ctx context.Context, callerID, id string) error {
	db := s.db.WithContext(ctx)
	comment, err := s.ownedComment(db, callerID, id)
	if err != nil {
		return err
	}
	err = db.Model(comment).Updates(map[string]any{
		"content": models.DeletedCommentContent,
		"deleted": true,
	}).Error
	if err != nil {
		return storeError("comment", err)
	}
	s.dropThread(comment.PostID)
	return nil
}

func (s *CommentService) ownedComment(db *gorm.DB, callerID, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := db.Take(&comment, "id = ?", id).Error; err != nil {
		return nil, storeError("comment", err)
	}
	if comment.UserID != callerID {
		return nil, forbidden("comment belongs to another user")
	}
	return &comment, nil
}

func (s *CommentService) cachedThread(postID string) ([]*thread.Node, bool) {
	if s.cache == nil {
		return nil, false
	}
	tree, ok := s.cache.Get(threadCacheKey(postID)).([]*thread.Node)
	return tree, ok
}

// patchThread folds a new comment into the cached tree, if any. A reply whose
// parent is not reachable in the cached tree drops the entry instead. The
// duplicate guards of AddRoot and AddReply make a patch over a tree that
// already holds the comment a no-op.
func (s *CommentService) patchThread(postID string, parent *models.Comment, comment models.Comment) {
	if s.cache == nil {
		return
	}
	key := threadCacheKey(postID)
	s.cache.Update(key, key, threadCacheTTL, func(old any) (any, bool) {
		tree, ok := old.([]*thread.Node)
		if !ok {
			return nil, false
		}
		if parent == nil {
			return thread.AddRoot(tree, comment), true
		}
		if thread.Find(tree, parent.ID) == nil {
			return nil, false
		}
		return thread.AddReply(tree, parent.ID, comment), true
	})
}

func (s *CommentService) dropThread(postID string) {
	if s.cache != nil {
		s.cache.Invalidate(threadCacheKey(postID))
	}
}

func postExists(db *gorm.DB, postID string) error {
	return targetExists(db, postID, models.TargetPost)
}
