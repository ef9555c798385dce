package database_test

import (
	"testing"

	"hangout/config"
	"hangout/internal/database"
	"hangout/internal/database/dbtest"
	"hangout/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewDB_UnknownDriver(t *testing.T) {
	_, err := database.NewDB(&config.DatabaseConfig{Driver: "oracle"})
	require.ErrorIs(t, err, config.ErrUnknownDriver)
}

func TestFixtures(t *testing.T) {
	req := require.New(t)
	db := dbtest.New(t)

	leader, err := database.CreateUser(db, "ann", "secret")
	req.NoError(err)
	req.NoError(bcrypt.CompareHashAndPassword([]byte(leader.PasswordHash), []byte("secret")))

	guest, err := database.CreateUser(db, "bob", "")
	req.NoError(err)

	plan, err := database.CreatePlan(db, "Sunday hike", leader.ID, nil)
	req.NoError(err)
	req.NoError(database.AddParticipant(db, plan.ID, guest.ID))
	req.Error(database.AddParticipant(db, plan.ID, guest.ID), "participant pair is unique")

	var participants []models.Participant
	req.NoError(db.Where("plan_id = ?", plan.ID).Order("id").Find(&participants).Error)
	req.Len(participants, 2)
	req.True(participants[0].IsLeader())
	req.False(participants[1].IsLeader())

	req.NoError(database.RemoveParticipant(db, plan.ID, guest.ID))
	var count int64
	req.NoError(db.Model(&models.Participant{}).Where("plan_id = ?", plan.ID).Count(&count).Error)
	req.Equal(int64(1), count)
}
