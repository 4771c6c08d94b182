package handlers

import (
	"net/http"

	"agora/internal/middleware"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

type SubredditHandler struct {
	subreddits *services.SubredditService
	posts      *services.PostService
}

func NewSubredditHandler(subreddits *services.SubredditService, posts *services.PostService) *SubredditHandler {
	return &SubredditHandler{subreddits: subreddits, posts: posts}
}

type createSubredditRequest struct {
	Name        string `json:"name" binding:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateSubredditRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (h *SubredditHandler) Create(c *gin.Context) {
	var req createSubredditRequest
	if !bind(c, &req) {
		return
	}
	sub, err := h.subreddits.Create(c.Request.Context(), middleware.CallerID(c), services.SubredditInput{
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *SubredditHandler) List(c *gin.Context) {
	subs, err := h.subreddits.List(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subreddits": subs})
}

func (h *SubredditHandler) Show(c *gin.Context) {
	sub, err := h.subreddits.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *SubredditHandler) Update(c *gin.Context) {
	var req updateSubredditRequest
	if !bind(c, &req) {
		return
	}
	sub, err := h.subreddits.Update(c.Request.Context(), middleware.CallerID(c), c.Param("name"), services.SubredditUpdate{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *SubredditHandler) Join(c *gin.Context) {
	member, err := h.subreddits.Join(c.Request.Context(), middleware.CallerID(c), c.Param("name"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *SubredditHandler) Leave(c *gin.Context) {
	if err := h.subreddits.Leave(c.Request.Context(), middleware.CallerID(c), c.Param("name")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SubredditHandler) Members(c *gin.Context) {
	members, err := h.subreddits.Members(c.Request.Context(), c.Param("name"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *SubredditHandler) Posts(c *gin.Context) {
	p := page(c)
	posts, err := h.posts.ListBySubreddit(c.Request.Context(), c.Param("name"), p)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "page": p})
}
