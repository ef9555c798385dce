package models

import (
	"time"

	"hangout/internal/domain"
)

// Plan is owned by the plan CRUD service; chat reads it for access checks and titles.
type Plan struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	LeaderID  uint       `gorm:"not null;index" json:"leader_id"`
	EventTime *time.Time `json:"event_time"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Leader User `gorm:"foreignKey:LeaderID" json:"-"`
}

func (Plan) TableName() string {
	return "plans"
}

type Participant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PlanID    uint      `gorm:"not null;uniqueIndex:idx_participant_plan_user" json:"plan_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_participant_plan_user;index" json:"user_id"`
	Role      string    `gorm:"size:20;not null;default:MEMBER" json:"role"` // LEADER, MEMBER
	CreatedAt time.Time `json:"created_at"`

	Plan Plan `gorm:"foreignKey:PlanID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Participant) TableName() string {
	return "participants"
}

func (p *Participant) IsLeader() bool { return p.Role == domain.ParticipantRoleLeader }
