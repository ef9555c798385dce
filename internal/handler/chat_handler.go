package handler

import (
	"log/slog"
	"net/http"

	"hangout/internal/middleware"
	"hangout/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chat *service.ChatService
	log  *slog.Logger
}

func NewChatHandler(chat *service.ChatService, log *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, log: log}
}

// Threads lists the caller's chats, most recently active first.
func (h *ChatHandler) Threads(c *gin.Context) {
	userID := middleware.GetUserID(c)
	list, err := h.chat.ListThreads(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to list chat threads", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": list})
}
