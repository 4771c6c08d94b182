package handlers

import (
	"net/http"

	"agora/internal/middleware"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	callerID := middleware.CallerID(c)

	notifications, err := h.notifications.List(ctx, callerID)
	if err != nil {
		RespondError(c, err)
		return
	}
	unread, err := h.notifications.UnreadCount(ctx, callerID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "unread": unread})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), middleware.CallerID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	updated, err := h.notifications.MarkAllRead(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
