package service

import (
	"context"
	"fmt"
	"log/slog"

	"hangout/internal/domain"
	"hangout/internal/models"
	"hangout/internal/repository"

	"github.com/samber/lo"
)

// PlanHooks is what the plan CRUD code calls when a plan changes. It keeps chat
// membership in step with participation and fans out PLAN notifications.
type PlanHooks struct {
	plans    *repository.PlanRepository
	users    *repository.UserRepository
	chat     *ChatService
	notifier *NotificationService
	log      *slog.Logger
}

func NewPlanHooks(plans *repository.PlanRepository, users *repository.UserRepository, chat *ChatService, notifier *NotificationService, log *slog.Logger) *PlanHooks {
	return &PlanHooks{plans: plans, users: users, chat: chat, notifier: notifier, log: log}
}

// PlanEvent is a lifecycle change reported by the plan service.
type PlanEvent struct {
	Event   string `json:"event" binding:"required"`
	PlanID  uint   `json:"plan_id" binding:"required"`
	ActorID uint   `json:"actor_id"`
	UserID  uint   `json:"user_id"`
}

// Handle dispatches a reported event to the matching hook.
func (h *PlanHooks) Handle(ctx context.Context, e PlanEvent) error {
	switch e.Event {
	case domain.PlanEventCreated:
		return h.Created(ctx, e.PlanID)
	case domain.PlanEventJoined, domain.PlanEventLeft:
		if e.UserID == 0 {
			return fmt.Errorf("%w: %s", ErrMissingUser, e.Event)
		}
		if e.Event == domain.PlanEventJoined {
			return h.Joined(ctx, e.PlanID, e.UserID)
		}
		return h.Left(ctx, e.PlanID, e.UserID)
	case domain.PlanEventUpdated:
		return h.Updated(ctx, e.PlanID, e.ActorID)
	case domain.PlanEventDeleted:
		return h.Deleted(ctx, e.PlanID, e.ActorID)
	case domain.PlanEventCancelled:
		return h.Cancelled(ctx, e.PlanID, e.ActorID)
	case domain.PlanEventReminder:
		return h.Reminder(ctx, e.PlanID)
	}
	return fmt.Errorf("%w: %q", ErrUnknownPlanEvent, e.Event)
}

func (h *PlanHooks) load(ctx context.Context, planID uint) (*models.Plan, error) {
	return h.chat.loadPlan(ctx, planID)
}

func (h *PlanHooks) name(ctx context.Context, userID uint) string {
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return "Someone"
	}
	return u.Name()
}

func planParams(plan *models.Plan, t domain.NotificationType, recipient, actor uint, text string) NotifyParams {
	p := NotifyParams{
		RecipientID: recipient,
		Type:        t,
		PlanID:      lo.ToPtr(plan.ID),
		Message:     text,
		ActionURL:   fmt.Sprintf("/plans/%d", plan.ID),
		Metadata:    map[string]any{"plan_id": plan.ID, "plan_title": plan.Title},
	}
	if actor != 0 {
		p.ActorID = lo.ToPtr(actor)
	}
	return p
}

// Created pre-warms the plan's chat for its leader.
func (h *PlanHooks) Created(ctx context.Context, planID uint) error {
	plan, err := h.load(ctx, planID)
	if err != nil {
		return err
	}
	thread, err := h.chat.GetOrCreateThread(ctx, plan.ID, plan.LeaderID)
	if err != nil {
		return err
	}
	if err := h.chat.EnsureMember(ctx, thread.ID, plan.LeaderID); err != nil {
		return fmt.Errorf("add leader to chat: %w", err)
	}
	return h.notifier.Notify(ctx, planParams(plan, domain.NotificationPlanCreated, plan.LeaderID, plan.LeaderID,
		fmt.Sprintf("Your plan %q is live.", plan.Title)))
}

// Joined adds the joiner to the chat and tells both the joiner and the leader.
func (h *PlanHooks) Joined(ctx context.Context, planID, userID uint) error {
	plan, err := h.load(ctx, planID)
	if err != nil {
		return err
	}
	thread, err := h.chat.GetOrCreateThread(ctx, plan.ID, userID)
	if err != nil {
		return err
	}
	if err := h.chat.EnsureMember(ctx, thread.ID, userID); err != nil {
		return fmt.Errorf("add %d to chat: %w", userID, err)
	}
	params := []NotifyParams{
		planParams(plan, domain.NotificationPlanJoined, userID, userID, fmt.Sprintf("You joined %q.", plan.Title)),
	}
	if plan.LeaderID != userID {
		params = append(params, planParams(plan, domain.NotificationPlanJoined, plan.LeaderID, userID,
			fmt.Sprintf("%s joined %q.", h.name(ctx, userID), plan.Title)))
	}
	return h.notifier.Notify(ctx, params...)
}

// Left removes the leaver from the chat and tells the leaver and the leader.
func (h *PlanHooks) Left(ctx context.Context, planID, userID uint) error {
	plan, err := h.load(ctx, planID)
	if err != nil {
		return err
	}
	if err := h.chat.RemoveMember(ctx, plan.ID, userID); err != nil {
		return fmt.Errorf("remove %d from chat: %w", userID, err)
	}
	params := []NotifyParams{
		planParams(plan, domain.NotificationPlanLeft, userID, userID, fmt.Sprintf("You left %q.", plan.Title)),
	}
	if plan.LeaderID != userID {
		params = append(params, planParams(plan, domain.NotificationPlanLeft, plan.LeaderID, userID,
			fmt.Sprintf("%s left %q.", h.name(ctx, userID), plan.Title)))
	}
	return h.notifier.Notify(ctx, params...)
}

func (h *PlanHooks) Updated(ctx context.Context, planID, actorID uint) error {
	return h.broadcast(ctx, planID, actorID, domain.NotificationPlanUpdated, func(p *models.Plan) string {
		return fmt.Sprintf("%q was updated.", p.Title)
	})
}

func (h *PlanHooks) Deleted(ctx context.Context, planID, actorID uint) error {
	return h.broadcast(ctx, planID, actorID, domain.NotificationPlanDeleted, func(p *models.Plan) string {
		return fmt.Sprintf("%q was deleted.", p.Title)
	})
}

func (h *PlanHooks) Cancelled(ctx context.Context, planID, actorID uint) error {
	return h.broadcast(ctx, planID, actorID, domain.NotificationPlanCancelled, func(p *models.Plan) string {
		return fmt.Sprintf("%q was cancelled.", p.Title)
	})
}

func (h *PlanHooks) Reminder(ctx context.Context, planID uint) error {
	return h.broadcast(ctx, planID, 0, domain.NotificationPlanReminder, func(p *models.Plan) string {
		return fmt.Sprintf("%q is coming up soon.", p.Title)
	})
}

// broadcast notifies every participant and the leader except the actor.
func (h *PlanHooks) broadcast(ctx context.Context, planID, actorID uint, t domain.NotificationType, text func(*models.Plan) string) error {
	plan, err := h.load(ctx, planID)
	if err != nil {
		return err
	}
	audience, err := h.plans.AudienceIDs(ctx, plan, actorID)
	if err != nil {
		return fmt.Errorf("load audience of plan %d: %w", planID, err)
	}
	msg := text(plan)
	params := lo.Map(audience, func(id uint, _ int) NotifyParams {
		return planParams(plan, t, id, actorID, msg)
	})
	h.log.Debug("Plan event fan-out", "plan_id", planID, "type", t, "recipients", len(params))
	return h.notifier.Notify(ctx, params...)
}
