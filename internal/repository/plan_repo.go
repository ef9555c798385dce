package repository

import (
	"context"

	"hangout/internal/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// PlanRepository reads the plan tables owned by the plan CRUD service.
type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) GetByID(ctx context.Context, id uint) (*models.Plan, error) {
	var p models.Plan
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// IsLeaderOrParticipant reports whether the user leads the plan or joined it.
// A missing plan yields false.
func (r *PlanRepository) IsLeaderOrParticipant(ctx context.Context, planID, userID uint) (bool, error) {
	var leaders int64
	err := r.db.WithContext(ctx).Model(&models.Plan{}).
		Where("id = ? AND leader_id = ?", planID, userID).
		Count(&leaders).Error
	if err != nil {
		return false, err
	}
	if leaders > 0 {
		return true, nil
	}
	var participants int64
	err = r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("plan_id = ? AND user_id = ?", planID, userID).
		Count(&participants).Error
	return participants > 0, err
}

func (r *PlanRepository) ParticipantIDs(ctx context.Context, planID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("plan_id = ?", planID).
		Order("id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// AudienceIDs returns the participants and the leader, deduplicated, excluding the given users.
func (r *PlanRepository) AudienceIDs(ctx context.Context, plan *models.Plan, exclude ...uint) ([]uint, error) {
	ids, err := r.ParticipantIDs(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	ids = lo.Uniq(append(ids, plan.LeaderID))
	return lo.Without(ids, exclude...), nil
}
