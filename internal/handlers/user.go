package handlers

import (
	"net/http"

	"agora/internal/middleware"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Profile shows a user together with their karma.
func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.users.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) Karma(c *gin.Context) {
	karma, err := h.users.Karma(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, karma)
}

type updateMeRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req updateMeRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.users.UpdateEmail(c.Request.Context(), middleware.CallerID(c), req.Email)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
