package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hangout/internal/domain"
	"hangout/internal/models"
	"hangout/internal/repository"
	"hangout/internal/ws"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
	pushTimeout     = 10 * time.Second
)

type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	layer    ws.Layer
	push     Pusher
	log      *slog.Logger
	now      func() time.Time
}

// NewNotificationService wires persistence and real-time delivery; push may be nil.
func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, layer ws.Layer, push Pusher, log *slog.Logger) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, layer: layer, push: push, log: log, now: time.Now}
}

// NotifyParams describes one notification for one recipient.
type NotifyParams struct {
	RecipientID uint
	ActorID     *uint
	Type        domain.NotificationType
	PlanID      *uint
	ThreadID    *uint
	MessageID   *uint
	Title       string
	Message     string
	ActionURL   string
	Metadata    map[string]any
}

func (p NotifyParams) model() *models.Notification {
	n := &models.Notification{
		UserID:        p.RecipientID,
		ActorID:       p.ActorID,
		Type:          p.Type,
		PlanID:        p.PlanID,
		ChatThreadID:  p.ThreadID,
		ChatMessageID: p.MessageID,
		Title:         p.Title,
		Message:       p.Message,
		Metadata:      p.Metadata,
	}
	if p.ActionURL != "" {
		n.ActionURL = lo.ToPtr(p.ActionURL)
	}
	return n
}

// Notify persists the notifications, then publishes each to its recipient's group.
func (s *NotificationService) Notify(ctx context.Context, params ...NotifyParams) error {
	list := lo.Map(params, func(p NotifyParams, _ int) *models.Notification { return p.model() })
	if err := s.repo.Create(ctx, list); err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	s.Deliver(ctx, list)
	return nil
}

// Deliver publishes already persisted notifications. Delivery is best effort:
// a recipient with no live connection still finds the row through the list API.
func (s *NotificationService) Deliver(ctx context.Context, list []*models.Notification) {
	if len(list) == 0 {
		return
	}
	ids := lo.Map(list, func(n *models.Notification, _ int) uint { return n.ID })
	loaded, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		s.log.Error("Failed to load notifications for delivery", "ids", ids, "error", err)
		return
	}
	for i := range loaded {
		n := &loaded[i]
		frame := map[string]any{"type": "notification", "notification": NewNotificationView(n)}
		if err := s.layer.Publish(ctx, domain.UserGroup(n.UserID), frame); err != nil {
			s.log.Warn("Failed to publish notification", "notification_id", n.ID, "user_id", n.UserID, "error", err)
		}
		s.sendPush(ctx, n)
	}
}

func (s *NotificationService) sendPush(ctx context.Context, n *models.Notification) {
	if s.push == nil {
		return
	}
	u, err := s.userRepo.GetByID(ctx, n.UserID)
	if err != nil || u.FCMToken == "" {
		return
	}
	data := map[string]any{"notification_id": n.ID}
	for k, v := range n.Metadata {
		data[k] = v
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		if err := s.push.SendToUser(ctx, u.FCMToken, string(n.Type), n.Title, n.Message, data); err != nil {
			s.log.Warn("Push notification failed", "notification_id", n.ID, "user_id", n.UserID, "error", err)
		}
	}()
}

type ListQuery struct {
	UnreadOnly bool
	Topic      domain.Topic
	Page       int
	PageSize   int
}

// Counts is the badge state returned alongside every notification response.
type Counts struct {
	UnreadCount         int64                  `json:"unread_count"`
	UnreadCountsByTopic map[domain.Topic]int64 `json:"unread_counts_by_topic"`
}

type ListResult struct {
	Count         int64              `json:"count"`
	Page          int                `json:"page"`
	PageSize      int                `json:"page_size"`
	HasNext       bool               `json:"has_next"`
	Notifications []NotificationView `json:"notifications"`
	Counts
}

type Summary struct {
	TotalCount         int64             `json:"total_count"`
	UnreadCount        int64             `json:"unread_count"`
	LatestNotification *NotificationView `json:"latest_notification"`
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	return page, min(size, MaxPageSize)
}

func (s *NotificationService) Counts(ctx context.Context, userID uint) (Counts, error) {
	byTopic, err := s.repo.UnreadCountsByTopic(ctx, userID)
	if err != nil {
		return Counts{}, err
	}
	var total int64
	for _, n := range byTopic {
		total += n
	}
	return Counts{UnreadCount: total, UnreadCountsByTopic: byTopic}, nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, q ListQuery) (*ListResult, error) {
	page, size := normalizePage(q.Page, q.PageSize)
	list, total, err := s.repo.List(ctx, userID, repository.NotificationFilter{UnreadOnly: q.UnreadOnly, Topic: q.Topic}, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	counts, err := s.Counts(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]NotificationView, 0, len(list))
	for i := range list {
		views = append(views, NewNotificationView(&list[i]))
	}
	return &ListResult{
		Count:         total,
		Page:          page,
		PageSize:      size,
		HasNext:       int64(page*size) < total,
		Notifications: views,
		Counts:        counts,
	}, nil
}

func (s *NotificationService) Summary(ctx context.Context, userID uint) (*Summary, error) {
	total, err := s.repo.Count(ctx, userID, repository.NotificationFilter{})
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.Count(ctx, userID, repository.NotificationFilter{UnreadOnly: true})
	if err != nil {
		return nil, err
	}
	out := &Summary{TotalCount: total, UnreadCount: unread}
	latest, err := s.repo.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		v := NewNotificationView(latest)
		out.LatestNotification = &v
	}
	return out, nil
}

func (s *NotificationService) get(ctx context.Context, userID, id uint) (*models.Notification, error) {
	n, err := s.repo.GetForUser(ctx, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	return n, err
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (*NotificationView, error) {
	n, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkRead(ctx, n, s.now()); err != nil {
		return nil, fmt.Errorf("mark notification %d read: %w", id, err)
	}
	v := NewNotificationView(n)
	return &v, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint, topic domain.Topic) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, topic, s.now())
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	n, err := s.get(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, n, s.now())
}

func (s *NotificationService) Clear(ctx context.Context, userID uint, topic domain.Topic) (int64, error) {
	return s.repo.Clear(ctx, userID, topic, s.now())
}

// RegisterDevice stores the FCM token pushes are sent to.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID uint, token string) error {
	return s.userRepo.UpdateFCMToken(ctx, userID, token)
}
