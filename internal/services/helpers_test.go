package services

import (
	"context"
	"errors"
	"testing"

	"agora/internal/db/dbtest"
	"agora/internal/models"
	"agora/internal/utils"

	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	cache *utils.Cache
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cache, err := utils.NewCache(100)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{db: dbtest.Open(t), cache: cache, ctx: context.Background()}
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", Password: "x"}
	if err := f.db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &u
}

func (f *fixture) admin(t *testing.T, username string) *models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", Password: "x", Role: models.RoleAdmin}
	if err := f.db.Create(&u).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return &u
}

func (f *fixture) post(t *testing.T, author *models.User, title string) *models.Post {
	t.Helper()
	p := models.Post{UserID: author.ID, Title: title, Content: "body of " + title}
	if err := f.db.Create(&p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return &p
}

func (f *fixture) comment(t *testing.T, author *models.User, post *models.Post, parentID *string, content string) *models.Comment {
	t.Helper()
	c := models.Comment{UserID: author.ID, PostID: post.ID, ParentCommentID: parentID, Content: content}
	if err := f.db.Create(&c).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return &c
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
