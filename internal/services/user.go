package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"agora/internal/auth"
	"agora/internal/config"
	"agora/internal/models"

	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

const minPasswordLength = 8

// Session is what register and login hand back to the client.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type Karma struct {
	PostKarma    int64  `json:"post_karma"`
	CommentKarma int64  `json:"comment_karma"`
	Mode         string `json:"mode"`
}

type Profile struct {
	*models.User
	Karma Karma `json:"karma"`
}

type UserService struct {
	db        *gorm.DB
	codec     *auth.Codec
	karmaMode string
}

func NewUserService(db *gorm.DB, codec *auth.Codec, karmaMode string) *UserService {
	if karmaMode != config.KarmaModeVotes {
		karmaMode = config.KarmaModeCount
	}
	return &UserService{db: db, codec: codec, karmaMode: karmaMode}
}

func (s *UserService) Register(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, validation("username must be 3-32 letters, digits, dashes or underscores")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, validation("password must be at least %d characters", minPasswordLength)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
	}

	db := s.db.WithContext(ctx)
	var taken int64
	if err := db.Model(&models.User{}).
		Where("LOWER(username) = ? OR email = ?", strings.ToLower(username), email).
		Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if taken > 0 {
		return nil, conflict("username or email already registered")
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, storeError("user", err)
	}
	return s.session(&user)
}

// Login checks the password and issues a fresh token.
func (s *UserService) Login(ctx context.Context, username, password string) (*Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "username = ?", strings.TrimSpace(username)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, badCredentials()
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !auth.CheckPasswordHash(password, user.Password) {
		return nil, badCredentials()
	}
	return s.session(&user)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", id).Error; err != nil {
		return nil, storeError("user", err)
	}
	return &user, nil
}

func (s *UserService) Profile(ctx context.Context, id string) (*Profile, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	karma, err := s.karma(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Karma: karma}, nil
}

func (s *UserService) UpdateEmail(ctx context.Context, callerID, email string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if user.Email == email {
		return user, nil
	}

	db := s.db.WithContext(ctx)
	var taken int64
	if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, callerID).Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken > 0 {
		return nil, conflict("email already registered")
	}
	if err := db.Model(user).Update("email", email).Error; err != nil {
		return nil, storeError("user", err)
	}
	user.Email = email
	return user, nil
}

// Karma reports the user's post and comment karma. In count mode that is
// the number of posts and live comments they wrote; in votes mode it is the
// net score their posts and comments received.
func (s *UserService) Karma(ctx context.Context, id string) (Karma, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return Karma{}, err
	}
	return s.karma(s.db.WithContext(ctx), id)
}

func (s *UserService) karma(db *gorm.DB, id string) (Karma, error) {
	k := Karma{Mode: s.karmaMode}
	if s.karmaMode == config.KarmaModeVotes {
		var err error
		if k.PostKarma, err = receivedScore(db, "posts", models.TargetPost, id); err != nil {
			return Karma{}, err
		}
		if k.CommentKarma, err = receivedScore(db, "comments", models.TargetComment, id); err != nil {
			return Karma{}, err
		}
		return k, nil
	}

	if err := db.Model(&models.Post{}).Where("user_id = ?", id).Count(&k.PostKarma).Error; err != nil {
		return Karma{}, fmt.Errorf("count posts: %w", err)
	}
	if err := db.Model(&models.Comment{}).Where("user_id = ? AND deleted = ?", id, false).Count(&k.CommentKarma).Error; err != nil {
		return Karma{}, fmt.Errorf("count comments: %w", err)
	}
	return k, nil
}

// receivedScore sums upvotes minus downvotes over every item of one kind
// the user authored.
func receivedScore(db *gorm.DB, table string, targetType models.TargetType, userID string) (int64, error) {
	var score int64
	err := db.Table("votes").
		Select("COALESCE(SUM(CASE WHEN votes.vote_type THEN 1 ELSE -1 END), 0)").
		Joins(fmt.Sprintf("JOIN %s ON %s.id = votes.kategori_id", table, table)).
		Where(fmt.Sprintf("votes.kategori_type = ? AND votes.vote_type IS NOT NULL AND %s.user_id = ?", table), targetType, userID).
		Scan(&score).Error
	if err != nil {
		return 0, fmt.Errorf("sum %s votes: %w", table, err)
	}
	return score, nil
}

func (s *UserService) session(user *models.User) (*Session, error) {
	token, err := s.codec.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validation("email address is invalid")
	}
	return email, nil
}
