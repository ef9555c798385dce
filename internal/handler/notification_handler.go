package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"hangout/internal/domain"
	"hangout/internal/middleware"
	"hangout/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	svc *service.NotificationService
	log *slog.Logger
}

func NewNotificationHandler(svc *service.NotificationService, log *slog.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: log}
}

func topicParam(c *gin.Context) (domain.Topic, bool) {
	raw := c.Query("topic")
	if raw == "" {
		return "", true
	}
	t, err := domain.ParseTopic(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return t, true
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return 0, false
	}
	return uint(id), true
}

func (h *NotificationHandler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, service.ErrNotificationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	h.log.Error("Notification request failed", "op", op, "user_id", middleware.GetUserID(c), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
}

// respond adds the caller's badge counts to body.
func (h *NotificationHandler) respond(c *gin.Context, op string, body gin.H) {
	counts, err := h.svc.Counts(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, op, err)
		return
	}
	body["unread_count"] = counts.UnreadCount
	body["unread_counts_by_topic"] = counts.UnreadCountsByTopic
	c.JSON(http.StatusOK, body)
}

func (h *NotificationHandler) List(c *gin.Context) {
	topic, ok := topicParam(c)
	if !ok {
		return
	}
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread_only", "false"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", c.DefaultQuery("limit", "0")))
	res, err := h.svc.List(c.Request.Context(), middleware.GetUserID(c), service.ListQuery{
		UnreadOnly: unreadOnly,
		Topic:      topic,
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *NotificationHandler) Summary(c *gin.Context) {
	res, err := h.svc.Summary(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, "summary", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	view, err := h.svc.MarkRead(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, "mark read", err)
		return
	}
	h.respond(c, "mark read", gin.H{"notification": view})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	topic, ok := topicParam(c)
	if !ok {
		return
	}
	n, err := h.svc.MarkAllRead(c.Request.Context(), middleware.GetUserID(c), topic)
	if err != nil {
		h.fail(c, "mark all read", err)
		return
	}
	h.respond(c, "mark all read", gin.H{"updated_count": n})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		h.fail(c, "delete", err)
		return
	}
	h.respond(c, "delete", gin.H{"notification_id": id})
}

func (h *NotificationHandler) Clear(c *gin.Context) {
	topic, ok := topicParam(c)
	if !ok {
		return
	}
	n, err := h.svc.Clear(c.Request.Context(), middleware.GetUserID(c), topic)
	if err != nil {
		h.fail(c, "clear", err)
		return
	}
	h.respond(c, "clear", gin.H{"cleared_count": n})
}
