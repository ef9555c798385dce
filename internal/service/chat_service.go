package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"hangout/internal/auth"
	"hangout/internal/blocking"
	"hangout/internal/domain"
	"hangout/internal/models"
	"hangout/internal/repository"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	previewLimit = 140
	previewCut   = 137
)

// ChatService owns thread, message and read receipt rules. Every exported
// method runs its storage work inside the blocking pool.
type ChatService struct {
	chats    *repository.ChatRepository
	plans    *repository.PlanRepository
	notifier *NotificationService
	pool     *blocking.Pool
	loc      *time.Location
	log      *slog.Logger
}

func NewChatService(chats *repository.ChatRepository, plans *repository.PlanRepository, notifier *NotificationService, pool *blocking.Pool, loc *time.Location, log *slog.Logger) *ChatService {
	return &ChatService{chats: chats, plans: plans, notifier: notifier, pool: pool, loc: loc, log: log}
}

// Format renders t the way chat frames carry timestamps.
func (s *ChatService) Format(t time.Time) string {
	return t.In(s.loc).Format(TimestampLayout)
}

// VerifyAccess reports whether the user leads or joined the plan.
func (s *ChatService) VerifyAccess(ctx context.Context, planID, userID uint) (bool, error) {
	return blocking.Call(ctx, s.pool, func(ctx context.Context) (bool, error) {
		return s.plans.IsLeaderOrParticipant(ctx, planID, userID)
	})
}

// GetOrCreateThread returns the plan's thread, creating it on first use by userID.
func (s *ChatService) GetOrCreateThread(ctx context.Context, planID, userID uint) (*models.ChatThread, error) {
	return blocking.Call(ctx, s.pool, func(ctx context.Context) (*models.ChatThread, error) {
		plan, err := s.loadPlan(ctx, planID)
		if err != nil {
			return nil, err
		}
		thread, created, err := s.chats.GetOrCreateThread(ctx, plan)
		if err != nil {
			return nil, fmt.Errorf("get or create thread for plan %d: %w", planID, err)
		}
		if created {
			s.log.Info("Chat thread created", "plan_id", planID, "thread_id", thread.ID, "opened_by", userID)
		}
		return thread, nil
	})
}

func (s *ChatService) loadPlan(ctx context.Context, planID uint) (*models.Plan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load plan %d: %w", planID, err)
	}
	return plan, nil
}

func (s *ChatService) EnsureMember(ctx context.Context, threadID, userID uint) error {
	return s.pool.Do(ctx, func(ctx context.Context) error {
		return s.chats.EnsureMember(ctx, threadID, userID)
	})
}

// RemoveMember drops the user from the plan's chat; a plan without a chat is a no-op.
func (s *ChatService) RemoveMember(ctx context.Context, planID, userID uint) error {
	return s.pool.Do(ctx, func(ctx context.Context) error {
		thread, err := s.chats.GetThreadByPlanID(ctx, planID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return s.chats.RemoveMember(ctx, thread.ID, userID)
	})
}

// History returns the thread's messages oldest first.
func (s *ChatService) History(ctx context.Context, threadID uint) ([]MessageView, error) {
	return blocking.Call(ctx, s.pool, func(ctx context.Context) ([]MessageView, error) {
		msgs, reads, err := s.chats.History(ctx, threadID)
		if err != nil {
			return nil, fmt.Errorf("load history of thread %d: %w", threadID, err)
		}
		out := make([]MessageView, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, newMessageView(m, reads[m.ID], s.loc))
		}
		return out, nil
	})
}

// Append stores the message and notifies every other member, participant and
// the leader. Notification failures are logged and never undo the message.
func (s *ChatService) Append(ctx context.Context, thread *models.ChatThread, sender auth.Principal, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	return blocking.Call(ctx, s.pool, func(ctx context.Context) (*models.ChatMessage, error) {
		plan, recipients, err := s.recipients(ctx, thread, sender.UserID)
		if err != nil {
			s.log.Error("Failed to resolve chat recipients", "thread_id", thread.ID, "error", err)
		}
		msg := &models.ChatMessage{ThreadID: thread.ID, SenderID: sender.UserID, Body: body}
		var pending []*models.Notification
		err = s.chats.Transaction(ctx, func(tx *gorm.DB) error {
			if err := s.chats.WithTx(tx).CreateMessage(ctx, msg); err != nil {
				return err
			}
			if plan == nil {
				return nil
			}
			list := chatNotifications(plan, thread, sender, msg, recipients)
			if err := s.notifier.repo.WithTx(tx).CreateInSavepoint(ctx, list); err != nil {
				s.log.Error("Failed to create chat notifications", "thread_id", thread.ID, "message_id", msg.ID, "error", err)
				return nil
			}
			pending = list
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("save message: %w", err)
		}
		s.notifier.Deliver(ctx, pending)
		return msg, nil
	})
}

// recipients is every thread member, participant and the leader except the sender.
func (s *ChatService) recipients(ctx context.Context, thread *models.ChatThread, senderID uint) (*models.Plan, []uint, error) {
	plan, err := s.plans.GetByID(ctx, thread.PlanID)
	if err != nil {
		return nil, nil, fmt.Errorf("load plan %d: %w", thread.PlanID, err)
	}
	members, err := s.chats.MemberIDs(ctx, thread.ID)
	if err != nil {
		return nil, nil, err
	}
	audience, err := s.plans.AudienceIDs(ctx, plan)
	if err != nil {
		return nil, nil, err
	}
	return plan, lo.Without(lo.Uniq(append(members, audience...)), senderID), nil
}

func chatNotifications(plan *models.Plan, thread *models.ChatThread, sender auth.Principal, msg *models.ChatMessage, recipients []uint) []*models.Notification {
	name := lo.CoalesceOrEmpty(sender.DisplayName, sender.Username, "Someone")
	text := fmt.Sprintf("%s: %s", name, Preview(msg.Body))
	metadata := map[string]any{
		"thread_id":  thread.ID,
		"plan_id":    plan.ID,
		"plan_title": plan.Title,
		"sender_id":  sender.UserID,
		"message_id": msg.ID,
	}
	out := make([]*models.Notification, 0, len(recipients))
	for _, id := range recipients {
		out = append(out, NotifyParams{
			RecipientID: id,
			ActorID:     lo.ToPtr(sender.UserID),
			Type:        domain.NotificationNewMessage,
			PlanID:      lo.ToPtr(plan.ID),
			ThreadID:    lo.ToPtr(thread.ID),
			MessageID:   lo.ToPtr(msg.ID),
			Message:     text,
			ActionURL:   fmt.Sprintf("/messages?planId=%d", plan.ID),
			Metadata:    metadata,
		}.model())
	}
	return out
}

// Preview trims body and shortens it to fit a notification line.
func Preview(body string) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= previewLimit {
		return body
	}
	return strings.TrimRightFunc(string(runes[:previewCut]), unicode.IsSpace) + "..."
}

// Edit replaces the body of a message the user sent and returns its timestamp.
func (s *ChatService) Edit(ctx context.Context, threadID, messageID, userID uint, body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrEmptyMessage
	}
	return blocking.Call(ctx, s.pool, func(ctx context.Context) (string, error) {
		msg, err := s.ownedMessage(ctx, threadID, messageID, userID)
		if err != nil {
			return "", err
		}
		if err := s.chats.UpdateBody(ctx, msg, body); err != nil {
			return "", fmt.Errorf("edit message %d: %w", messageID, err)
		}
		return s.Format(msg.CreatedAt), nil
	})
}

// Delete hard deletes a message the user sent.
func (s *ChatService) Delete(ctx context.Context, threadID, messageID, userID uint) error {
	return s.pool.Do(ctx, func(ctx context.Context) error {
		if _, err := s.ownedMessage(ctx, threadID, messageID, userID); err != nil {
			return err
		}
		if err := s.chats.DeleteMessage(ctx, messageID); err != nil {
			return fmt.Errorf("delete message %d: %w", messageID, err)
		}
		return nil
	})
}

func (s *ChatService) ownedMessage(ctx context.Context, threadID, messageID, userID uint) (*models.ChatMessage, error) {
	msg, err := s.chats.GetMessage(ctx, threadID, messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, ErrNotSender
	}
	return msg, nil
}

// MarkRead records the user's receipts and returns the acknowledged ids with the
// user's receipts for them. Ids outside the thread are ignored.
func (s *ChatService) MarkRead(ctx context.Context, threadID, userID uint, messageIDs []uint) ([]uint, []ReadReceiptView, error) {
	type result struct {
		ids      []uint
		receipts []ReadReceiptView
	}
	res, err := blocking.Call(ctx, s.pool, func(ctx context.Context) (result, error) {
		ids, err := s.chats.MarkRead(ctx, threadID, userID, messageIDs)
		if err != nil || len(ids) == 0 {
			return result{}, err
		}
		reads, err := s.chats.ReadsBy(ctx, userID, ids)
		if err != nil {
			return result{}, err
		}
		receipts := lo.Map(reads, func(r models.ChatMessageRead, _ int) ReadReceiptView { return newReadReceiptView(r, s.loc) })
		return result{ids: ids, receipts: receipts}, nil
	})
	return res.ids, res.receipts, err
}

// ListThreads returns the chats the user is a member of.
func (s *ChatService) ListThreads(ctx context.Context, userID uint) ([]ThreadView, error) {
	return blocking.Call(ctx, s.pool, func(ctx context.Context) ([]ThreadView, error) {
		list, err := s.chats.ListThreadsForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		out := make([]ThreadView, 0, len(list))
		for _, t := range list {
			v := ThreadView{
				ThreadID:      t.Thread.ID,
				PlanID:        t.Thread.PlanID,
				PlanTitle:     t.Thread.Plan.Title,
				PlanEventTime: t.Thread.Plan.EventTime,
				IsOwner:       t.Thread.Plan.LeaderID == userID,
			}
			if m := t.LastMessage; m != nil {
				v.LastMessage = lo.ToPtr(m.Body)
				v.LastMessageTimestamp = lo.ToPtr(s.Format(m.CreatedAt))
				v.LastMessageSender = lo.ToPtr(m.Sender.Name())
			}
			out = append(out, v)
		}
		return out, nil
	})
}
