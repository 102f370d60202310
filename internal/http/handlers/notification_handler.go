package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideway/internal/http/middleware"
	"rideway/internal/kafka"
	"rideway/internal/modules/notification"
	"rideway/internal/types"
)

type NotificationHandler struct {
	notifications *notification.Service
}

func NewNotificationHandler(notifications *notification.Service) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// Send delivers an ad-hoc notification to one user. Admin only.
func (h *NotificationHandler) Send(c *gin.Context) {
	var req struct {
		UserID    string `json:"user_id"`
		Kind      string `json:"kind"`
		Title     string `json:"title"`
		Body      string `json:"body"`
		BookingID string `json:"booking_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.Title == "" {
		writeError(c, http.StatusBadRequest, "missing user_id or title")
		return
	}
	if req.Kind == "" {
		req.Kind = notification.KindSystem
	}
	if err := h.notifications.Deliver(c.Request.Context(), kafka.NotificationEvent{
		UserID:    req.UserID,
		Kind:      req.Kind,
		Title:     req.Title,
		Body:      req.Body,
		BookingID: req.BookingID,
	}); err != nil {
		writeNotificationError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"sent": true})
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	onlyUnread := c.Query("unread") == "true"
	out, err := h.notifications.List(c.Request.Context(), middleware.Caller(c), onlyUnread, limit, offset)
	if err != nil {
		writeNotificationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"notifications": out})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		writeNotificationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"unread": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), middleware.Caller(c), types.ID(c.Param("id"))); err != nil {
		writeNotificationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"read": true})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), middleware.Caller(c)); err != nil {
		writeNotificationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"read": true})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.notifications.Delete(c.Request.Context(), middleware.Caller(c), types.ID(c.Param("id"))); err != nil {
		writeNotificationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"deleted": true})
}
