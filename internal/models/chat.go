package models

import "time"

type ChatThread struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PlanID      uint      `gorm:"uniqueIndex;not null" json:"plan_id"`
	Title       string    `gorm:"size:255" json:"title"`
	CreatedByID uint      `gorm:"not null;index" json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`

	Plan      Plan `gorm:"foreignKey:PlanID" json:"-"`
	CreatedBy User `gorm:"foreignKey:CreatedByID" json:"-"`
}

func (ChatThread) TableName() string {
	return "chat_threads"
}

type ChatMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	ThreadID uint      `gorm:"not null;uniqueIndex:idx_chat_member_thread_user" json:"thread_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_chat_member_thread_user;index" json:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	Thread ChatThread `gorm:"foreignKey:ThreadID" json:"-"`
	User   User       `gorm:"foreignKey:UserID" json:"-"`
}

func (ChatMember) TableName() string {
	return "chat_members"
}

// ChatMessage rows are hard deleted by their sender.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ThreadID  uint      `gorm:"not null;index:idx_chat_message_thread_created" json:"thread_id"`
	SenderID  uint      `gorm:"not null;index" json:"sender_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"index:idx_chat_message_thread_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Thread ChatThread `gorm:"foreignKey:ThreadID" json:"-"`
	Sender User       `gorm:"foreignKey:SenderID" json:"-"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

type ChatMessageRead struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_chat_read_message_user" json:"message_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_chat_read_message_user" json:"user_id"`
	ReadAt    time.Time `gorm:"autoCreateTime" json:"read_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (ChatMessageRead) TableName() string {
	return "chat_message_reads"
}
