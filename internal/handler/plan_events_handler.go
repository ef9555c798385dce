package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"hangout/internal/service"

	"github.com/gin-gonic/gin"
)

// PlanEventsHandler receives lifecycle events from the plan CRUD service.
type PlanEventsHandler struct {
	hooks *service.PlanHooks
	log   *slog.Logger
}

func NewPlanEventsHandler(hooks *service.PlanHooks, log *slog.Logger) *PlanEventsHandler {
	return &PlanEventsHandler{hooks: hooks, log: log}
}

func (h *PlanEventsHandler) Report(c *gin.Context) {
	var event service.PlanEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.hooks.Handle(c.Request.Context(), event)
	switch {
	case errors.Is(err, service.ErrUnknownPlanEvent), errors.Is(err, service.ErrMissingUser):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		h.log.Error("Failed to handle plan event", "event", event.Event, "plan_id", event.PlanID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event failed"})
	default:
		h.log.Info("Plan event handled", "event", event.Event, "plan_id", event.PlanID)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
