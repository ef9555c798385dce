package models

import (
	"errors"
	"fmt"
	"time"

	"hangout/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrTopicMismatch = errors.New("notification topic does not match its type")

// Notification content is immutable once created; only read and deleted state change.
type Notification struct {
	ID            uint                    `gorm:"primaryKey" json:"id"`
	UserID        uint                    `gorm:"not null;index:idx_notification_user_state" json:"user_id"`
	ActorID       *uint                   `gorm:"index" json:"actor_id"`
	Type          domain.NotificationType `gorm:"size:32;not null;index" json:"notification_type"`
	Topic         domain.Topic            `gorm:"size:16;not null;index" json:"topic"`
	PlanID        *uint                   `gorm:"index" json:"plan_id"`
	ChatThreadID  *uint                   `gorm:"index" json:"chat_thread_id"`
	ChatMessageID *uint                   `gorm:"index" json:"chat_message_id"`
	Title         string                  `gorm:"size:255" json:"title"`
	Message       string                  `gorm:"type:text" json:"message"`
	ActionURL     *string                 `gorm:"size:512" json:"action_url"`
	Metadata      datatypes.JSONMap       `json:"metadata"`
	IsRead        bool                    `gorm:"not null;default:false;index:idx_notification_user_state" json:"is_read"`
	ReadAt        *time.Time              `json:"read_at"`
	IsDeleted     bool                    `gorm:"not null;default:false;index:idx_notification_user_state" json:"is_deleted"`
	DeletedAt     *time.Time              `json:"deleted_at"`
	CreatedAt     time.Time               `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`

	User       User        `gorm:"foreignKey:UserID" json:"-"`
	Actor      *User       `gorm:"foreignKey:ActorID" json:"-"`
	Plan       *Plan       `gorm:"foreignKey:PlanID" json:"-"`
	ChatThread *ChatThread `gorm:"foreignKey:ChatThreadID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}

// BeforeSave derives the topic from the type and defaults the title.
// Status-only updates go through UpdateColumns and skip this hook.
func (n *Notification) BeforeSave(*gorm.DB) error {
	if !n.Type.Valid() {
		return fmt.Errorf("unknown notification type %q", n.Type)
	}
	want := n.Type.Topic()
	if n.Topic == "" {
		n.Topic = want
	} else if n.Topic != want {
		return fmt.Errorf("%w: %s is %s, not %s", ErrTopicMismatch, n.Type, want, n.Topic)
	}
	if n.Title == "" {
		n.Title = n.Type.DefaultTitle()
	}
	return nil
}

func (n *Notification) MarkAsRead(now time.Time) {
	if n.IsRead {
		return
	}
	n.IsRead = true
	n.ReadAt = &now
}

func (n *Notification) SoftDelete(now time.Time) {
	if n.IsDeleted {
		return
	}
	n.IsDeleted = true
	n.DeletedAt = &now
}
