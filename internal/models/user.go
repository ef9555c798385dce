package models

import (
	"strings"
	"time"
)

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email          string    `gorm:"size:255" json:"email"`
	PasswordHash   string    `gorm:"size:255" json:"-"`
	FirstName      string    `gorm:"size:100" json:"first_name"`
	LastName       string    `gorm:"size:100" json:"last_name"`
	DisplayName    string    `gorm:"size:100" json:"display_name"`
	ProfilePicture string    `gorm:"size:512" json:"profile_picture"`
	FCMToken       string    `gorm:"size:512" json:"-"` // For push notifications
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Name returns the display name, else the full name, else the username.
func (u *User) Name() string {
	if n := strings.TrimSpace(u.DisplayName); n != "" {
		return n
	}
	if n := strings.TrimSpace(u.FirstName + " " + u.LastName); n != "" {
		return n
	}
	return u.Username
}
