package handlers

import (
	"net/http"

	"agora/internal/middleware"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type createCommentRequest struct {
	Content         string  `json:"content" binding:"required"`
	ParentCommentID *string `json:"parent_comment_id"`
}

type updateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// List returns the post's comments as nested threads.
func (h *CommentHandler) List(c *gin.Context) {
	tree, err := h.comments.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": tree})
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req createCommentRequest
	if !bind(c, &req) {
		return
	}
	comment, tree, err := h.comments.Create(c.Request.Context(), middleware.CallerID(c), c.Param("id"), req.Content, req.ParentCommentID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment, "comments": tree})
}

func (h *CommentHandler) Update(c *gin.Context) {
	var req updateCommentRequest
	if !bind(c, &req) {
		return
	}
	comment, err := h.comments.Update(c.Request.Context(), middleware.CallerID(c), c.Param("id"), req.Content)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// Delete soft-deletes: the comment stays in its thread as a tombstone.
func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.comments.Delete(c.Request.Context(), middleware.CallerID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
