package handler

import (
	"log/slog"
	"net/http"

	"hangout/internal/middleware"
	"hangout/internal/service"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	notifier *service.NotificationService
	log      *slog.Logger
}

func NewMeHandler(notifier *service.NotificationService, log *slog.Logger) *MeHandler {
	return &MeHandler{notifier: notifier, log: log}
}

// RegisterFCMToken saves the FCM token for push notifications.
func (h *MeHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	userID := middleware.GetUserID(c)
	if err := h.notifier.RegisterDevice(c.Request.Context(), userID, req.Token); err != nil {
		h.log.Error("Failed to save FCM token", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
