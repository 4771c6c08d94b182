package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"agora/internal/models"
	"agora/internal/utils"

	"gorm.io/gorm"
)

const (
	PostPageSize = 20

	SortNew     = "new"
	SortPopular = "popular"
	SortHot     = "hot"

	popularCachePrefix = "posts:popular:"
	popularCacheTTL    = time.Minute

	maxTitleLength = 300
	// hot ranking looks at this many of the newest posts
	hotWindow = 200
)

type PostInput struct {
	Title       string
	Content     string
	Image       string
	SubredditID *string
}

// PostUpdate carries the fields to change; nil leaves a field as is.
type PostUpdate struct {
	Title   *string
	Content *string
	Image   *string
}

type PostView struct {
	models.Post
	ContentHTML string       `json:"content_html"`
	Counts      VoteCounts   `json:"counts"`
	MyVote      *models.Vote `json:"my_vote,omitempty"`
}

type PostService struct {
	db    *gorm.DB
	cache *utils.Cache
	now   func() time.Time
}

func NewPostService(db *gorm.DB, cache *utils.Cache) *PostService {
	return &PostService{db: db, cache: cache, now: time.Now}
}

func (s *PostService) Create(ctx context.Context, callerID string, in PostInput) (*models.Post, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	post := models.Post{
		UserID:  callerID,
		Title:   title,
		Content: in.Content,
		Image:   strings.TrimSpace(in.Image),
	}
	if post.Image == "" {
		post.Image = utils.FirstImage(utils.RenderMarkdown(in.Content))
	}
	if in.SubredditID != nil && *in.SubredditID != "" {
		var sub models.Subreddit
		if err := db.Take(&sub, "id = ?", *in.SubredditID).Error; err != nil {
			return nil, storeError("subreddit", err)
		}
		post.SubredditID = &sub.ID
	}

	if err := db.Create(&post).Error; err != nil {
		return nil, storeError("post", err)
	}
	if err := db.Preload("User").Preload("Subreddit").Take(&post, "id = ?", post.ID).Error; err != nil {
		return nil, storeError("post", err)
	}
	s.invalidatePopular()
	return &post, nil
}

// Get returns the post with live counts. When callerID is set the caller's
// own vote is attached.
func (s *PostService) Get(ctx context.Context, callerID, id string) (*PostView, error) {
	db := s.db.WithContext(ctx)
	var post models.Post
	if err := db.Preload("User").Preload("Subreddit").Take(&post, "id = ?", id).Error; err != nil {
		return nil, storeError("post", err)
	}
	views, err := s.views(db, []models.Post{post}, callerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List pages through all posts. sort is one of SortNew (default),
// SortPopular or SortHot.
func (s *PostService) List(ctx context.Context, sortBy string, page int) ([]PostView, error) {
	if page < 1 {
		page = 1
	}
	switch sortBy {
	case "", SortNew:
		return s.listNew(ctx, s.db.WithContext(ctx), page)
	case SortPopular:
		return s.listPopular(ctx, page)
	case SortHot:
		return s.listHot(ctx, page)
	default:
		return nil, validation("unknown sort %q", sortBy)
	}
}

// ListBySubreddit pages through one subreddit's posts, newest first.
func (s *PostService) ListBySubreddit(ctx context.Context, name string, page int) ([]PostView, error) {
	if page < 1 {
		page = 1
	}
	db := s.db.WithContext(ctx)
	var sub models.Subreddit
	if err := db.Take(&sub, "LOWER(name) = ?", strings.ToLower(name)).Error; err != nil {
		return nil, storeError("subreddit", err)
	}
	return s.listNew(ctx, db.Where("subreddit_id = ?", sub.ID), page)
}

// Search matches q case-insensitively as a substring of title or content.
func (s *PostService) Search(ctx context.Context, q string, page int) ([]PostView, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, validation("search query is required")
	}
	if page < 1 {
		page = 1
	}
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	db := s.db.WithContext(ctx)
	return s.listNew(ctx, db.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\'`, pattern, pattern), page)
}

func (s *PostService) Update(ctx context.Context, callerID, id string, in PostUpdate) (*models.Post, error) {
	db := s.db.WithContext(ctx)
	post, err := s.ownedPost(db, callerID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Title != nil {
		title, err := validateTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if in.Content != nil {
		updates["content"] = *in.Content
	}
	if in.Image != nil {
		updates["image"] = strings.TrimSpace(*in.Image)
	}
	if len(updates) > 0 {
		if err := db.Model(post).Updates(updates).Error; err != nil {
			return nil, storeError("post", err)
		}
	}

	if err := db.Preload("User").Preload("Subreddit").Take(post, "id = ?", id).Error; err != nil {
		return nil, storeError("post", err)
	}
	s.invalidatePopular()
	return post, nil
}

// Delete removes the post together with its comments and every vote cast on
// either.
func (s *PostService) Delete(ctx context.Context, callerID, id string) error {
	db := s.db.WithContext(ctx)
	post, err := s.ownedPost(db, callerID, id)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var commentIDs []string
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", post.ID).Pluck("id", &commentIDs).Error; err != nil {
			return fmt.Errorf("list comments: %w", err)
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("kategori_type = ? AND kategori_id IN ?", models.TargetComment, commentIDs).Delete(&models.Vote{}).Error; err != nil {
				return fmt.Errorf("delete comment votes: %w", err)
			}
		}
		if err := tx.Where("kategori_type = ? AND kategori_id = ?", models.TargetPost, post.ID).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("delete post votes: %w", err)
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Notification{}).Error; err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := tx.Delete(post).Error; err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidatePopular()
	if s.cache != nil {
		s.cache.Invalidate(threadCacheKey(post.ID))
	}
	return nil
}

func (s *PostService) ownedPost(db *gorm.DB, callerID, id string) (*models.Post, error) {
	var post models.Post
	if err := db.Take(&post, "id = ?", id).Error; err != nil {
		return nil, storeError("post", err)
	}
	if post.UserID != callerID {
		return nil, forbidden("post belongs to another user")
	}
	return &post, nil
}

func (s *PostService) listNew(ctx context.Context, query *gorm.DB, page int) ([]PostView, error) {
	var posts []models.Post
	err := query.Preload("User").Preload("Subreddit").
		Order("created_at DESC").Order("id").
		Offset((page - 1) * PostPageSize).Limit(PostPageSize).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return s.views(s.db.WithContext(ctx), posts, "")
}

// listPopular orders by live score, newest first among equal scores. Pages
// are cached briefly; any post vote drops them, and a page read while a
// vote lands is not cached.
func (s *PostService) listPopular(ctx context.Context, page int) ([]PostView, error) {
	key := fmt.Sprintf("%s%d", popularCachePrefix, page)
	var version uint64
	if s.cache != nil {
		if cached, ok := s.cache.Get(key).([]PostView); ok {
			return cached, nil
		}
		version = s.cache.Version(popularCachePrefix)
	}

	db := s.db.WithContext(ctx)
	scores := db.Model(&models.Vote{}).
		Select("kategori_id, SUM(CASE WHEN vote_type THEN 1 ELSE -1 END) AS score").
		Where("kategori_type = ? AND vote_type IS NOT NULL", models.TargetPost).
		Group("kategori_id")

	var posts []models.Post
	err := db.Model(&models.Post{}).
		Select("posts.*").
		Joins("LEFT JOIN (?) AS s ON s.kategori_id = posts.id", scores).
		Preload("User").Preload("Subreddit").
		Order("COALESCE(s.score, 0) DESC").Order("posts.created_at DESC").Order("posts.id").
		Offset((page - 1) * PostPageSize).Limit(PostPageSize).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list popular posts: %w", err)
	}

	views, err := s.views(db, posts, "")
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetIfCurrent(popularCachePrefix, version, key, views, popularCacheTTL)
	}
	return views, nil
}

// listHot ranks the newest posts by utils.HotScore in memory.
func (s *PostService) listHot(ctx context.Context, page int) ([]PostView, error) {
	db := s.db.WithContext(ctx)
	var posts []models.Post
	err := db.Preload("User").Preload("Subreddit").
		Order("created_at DESC").Limit(hotWindow).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list hot posts: %w", err)
	}

	views, err := s.views(db, posts, "")
	if err != nil {
		return nil, err
	}
	now := s.now()
	rank := make(map[string]float64, len(views))
	for _, v := range views {
		rank[v.ID] = utils.HotScore(v.CreatedAt, now, v.Counts.Upvotes, v.Counts.Downvotes, int64(v.CommentCount))
	}
	sort.SliceStable(views, func(i, j int) bool {
		return rank[views[i].ID] > rank[views[j].ID]
	})

	start := (page - 1) * PostPageSize
	if start >= len(views) {
		return []PostView{}, nil
	}
	end := min(start+PostPageSize, len(views))
	return views[start:end], nil
}

// views attaches counts, comment totals and the caller's votes using one
// grouped query per concern.
func (s *PostService) views(db *gorm.DB, posts []models.Post, callerID string) ([]PostView, error) {
	views := make([]PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	counts, err := countVotesBatch(db, ids, models.TargetPost)
	if err != nil {
		return nil, err
	}

	type commentTally struct {
		PostID string
		Count  int
	}
	var tallies []commentTally
	if err := db.Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&tallies).Error; err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	commentCounts := make(map[string]int, len(tallies))
	for _, t := range tallies {
		commentCounts[t.PostID] = t.Count
	}

	myVotes := map[string]models.Vote{}
	if callerID != "" {
		var votes []models.Vote
		if err := db.Where("user_id = ? AND kategori_type = ? AND kategori_id IN ?", callerID, models.TargetPost, ids).
			Find(&votes).Error; err != nil {
			return nil, fmt.Errorf("load caller votes: %w", err)
		}
		for _, v := range votes {
			myVotes[v.TargetID] = v
		}
	}

	for _, p := range posts {
		p.CommentCount = commentCounts[p.ID]
		view := PostView{
			Post:        p,
			ContentHTML: utils.RenderMarkdown(p.Content),
			Counts:      counts[p.ID],
		}
		if v, ok := myVotes[p.ID]; ok {
			view.MyVote = &v
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *PostService) invalidatePopular() {
	if s.cache != nil {
		s.cache.Invalidate(popularCachePrefix)
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validation("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", validation("title must be at most %d characters", maxTitleLength)
	}
	return title, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
