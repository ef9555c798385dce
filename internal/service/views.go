package service

import (
	"time"

	"hangout/internal/domain"
	"hangout/internal/models"
)

// TimestampLayout is how chat times are rendered on the wire.
const TimestampLayout = "2006-01-02 15:04:05"

type ReadReceiptView struct {
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	ProfilePicture string `json:"profile_picture"`
	ReadAt         string `json:"read_at"`
}

type MessageView struct {
	ID             uint              `json:"id"`
	User           string            `json:"user"`
	UserID         uint              `json:"user_id"`
	Username       string            `json:"username"`
	ProfilePicture string            `json:"profile_picture"`
	Message        string            `json:"message"`
	Timestamp      string            `json:"timestamp"`
	ReadReceipts   []ReadReceiptView `json:"read_receipts"`
}

type ThreadView struct {
	ThreadID             uint       `json:"thread_id"`
	PlanID               uint       `json:"plan_id"`
	PlanTitle            string     `json:"plan_title"`
	PlanEventTime        *time.Time `json:"plan_event_time"`
	IsOwner              bool       `json:"is_owner"`
	LastMessage          *string    `json:"last_message"`
	LastMessageTimestamp *string    `json:"last_message_timestamp"`
	LastMessageSender    *string    `json:"last_message_sender"`
}

type ActorView struct {
	ID             uint   `json:"id"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	ProfilePicture string `json:"profile_picture"`
}

type NotificationView struct {
	ID                      uint                    `json:"id"`
	Title                   string                  `json:"title"`
	Message                 string                  `json:"message"`
	NotificationType        domain.NotificationType `json:"notification_type"`
	NotificationTypeDisplay string                  `json:"notification_type_display"`
	Topic                   domain.Topic            `json:"topic"`
	TopicDisplay            string                  `json:"topic_display"`
	Plan                    *uint                   `json:"plan"`
	PlanID                  *uint                   `json:"plan_id"`
	PlanTitle               *string                 `json:"plan_title"`
	ChatThread              *uint                   `json:"chat_thread"`
	ChatThreadID            *uint                   `json:"chat_thread_id"`
	ChatMessage             *uint                   `json:"chat_message"`
	ChatMessageID           *uint                   `json:"chat_message_id"`
	Actor                   *ActorView              `json:"actor"`
	ActionURL               *string                 `json:"action_url"`
	Metadata                map[string]any          `json:"metadata"`
	IsRead                  bool                    `json:"is_read"`
	ReadAt                  *time.Time              `json:"read_at"`
	CreatedAt               time.Time               `json:"created_at"`
	UpdatedAt               time.Time               `json:"updated_at"`
	IsDeleted               bool                    `json:"is_deleted"`
}

func newReadReceiptView(r models.ChatMessageRead, loc *time.Location) ReadReceiptView {
	return ReadReceiptView{
		Username:       r.User.Username,
		DisplayName:    r.User.Name(),
		ProfilePicture: r.User.ProfilePicture,
		ReadAt:         r.ReadAt.In(loc).Format(TimestampLayout),
	}
}

func newMessageView(m models.ChatMessage, reads []models.ChatMessageRead, loc *time.Location) MessageView {
	v := MessageView{
		ID:             m.ID,
		User:           m.Sender.Name(),
		UserID:         m.SenderID,
		Username:       m.Sender.Username,
		ProfilePicture: m.Sender.ProfilePicture,
		Message:        m.Body,
		Timestamp:      m.CreatedAt.In(loc).Format(TimestampLayout),
		ReadReceipts:   make([]ReadReceiptView, 0, len(reads)),
	}
	for _, r := range reads {
		v.ReadReceipts = append(v.ReadReceipts, newReadReceiptView(r, loc))
	}
	return v
}

func NewNotificationView(n *models.Notification) NotificationView {
	v := NotificationView{
		ID:                      n.ID,
		Title:                   n.Title,
		Message:                 n.Message,
		NotificationType:        n.Type,
		NotificationTypeDisplay: n.Type.Display(),
		Topic:                   n.Topic,
		TopicDisplay:            n.Topic.Display(),
		Plan:                    n.PlanID,
		PlanID:                  n.PlanID,
		ChatThread:              n.ChatThreadID,
		ChatThreadID:            n.ChatThreadID,
		ChatMessage:             n.ChatMessageID,
		ChatMessageID:           n.ChatMessageID,
		ActionURL:               n.ActionURL,
		Metadata:                map[string]any(n.Metadata),
		IsRead:                  n.IsRead,
		ReadAt:                  n.ReadAt,
		CreatedAt:               n.CreatedAt,
		UpdatedAt:               n.UpdatedAt,
		IsDeleted:               n.IsDeleted,
	}
	if v.Metadata == nil {
		v.Metadata = map[string]any{}
	}
	if n.Plan != nil {
		title := n.Plan.Title
		v.PlanTitle = &title
	}
	if n.Actor != nil {
		v.Actor = &ActorView{
			ID:             n.Actor.ID,
			Username:       n.Actor.Username,
			DisplayName:    n.Actor.Name(),
			ProfilePicture: n.Actor.ProfilePicture,
		}
	}
	return v
}
