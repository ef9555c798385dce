package database

import (
	"fmt"
	"time"

	"hangout/internal/domain"
	"hangout/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Fixtures create the rows the plan CRUD service normally owns.
// They back cmd/seed and the storage tests.

func CreateUser(db *gorm.DB, username, password string) (*models.User, error) {
	u := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: username,
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}
	if err := db.Create(u).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}
	return u, nil
}

// CreatePlan creates a plan and registers its leader as the LEADER participant.
func CreatePlan(db *gorm.DB, title string, leaderID uint, eventTime *time.Time) (*models.Plan, error) {
	p := &models.Plan{Title: title, LeaderID: leaderID, EventTime: eventTime}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Create(&models.Participant{PlanID: p.ID, UserID: leaderID, Role: domain.ParticipantRoleLeader}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create plan %q: %w", title, err)
	}
	return p, nil
}

func AddParticipant(db *gorm.DB, planID, userID uint) error {
	p := &models.Participant{PlanID: planID, UserID: userID, Role: domain.ParticipantRoleMember}
	if err := db.Create(p).Error; err != nil {
		return fmt.Errorf("add participant %d to plan %d: %w", userID, planID, err)
	}
	return nil
}

func RemoveParticipant(db *gorm.DB, planID, userID uint) error {
	return db.Where("plan_id = ? AND user_id = ?", planID, userID).Delete(&models.Participant{}).Error
}
