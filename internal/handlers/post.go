package handlers

import (
	"net/http"

	"agora/internal/middleware"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

type createPostRequest struct {
	Title       string  `json:"title" binding:"required"`
	Content     string  `json:"content"`
	Image       string  `json:"image"`
	SubredditID *string `json:"subreddit_id"`
}

type updatePostRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Image   *string `json:"image"`
}

func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if !bind(c, &req) {
		return
	}
	post, err := h.posts.Create(c.Request.Context(), middleware.CallerID(c), services.PostInput{
		Title:       req.Title,
		Content:     req.Content,
		Image:       req.Image,
		SubredditID: req.SubredditID,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// List serves /posts?sort=new|popular|hot&page=N.
func (h *PostHandler) List(c *gin.Context) {
	p := page(c)
	posts, err := h.posts.List(c.Request.Context(), c.DefaultQuery("sort", services.SortNew), p)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "page": p})
}

func (h *PostHandler) Search(c *gin.Context) {
	p := page(c)
	posts, err := h.posts.Search(c.Request.Context(), c.Query("q"), p)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "page": p, "query": c.Query("q")})
}

func (h *PostHandler) Show(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), middleware.CallerID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	var req updatePostRequest
	if !bind(c, &req) {
		return
	}
	post, err := h.posts.Update(c.Request.Context(), middleware.CallerID(c), c.Param("id"), services.PostUpdate{
		Title:   req.Title,
		Content: req.Content,
		Image:   req.Image,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), middleware.CallerID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
