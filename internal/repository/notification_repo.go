package repository

import (
	"context"
	"errors"
	"time"

	"hangout/internal/domain"
	"hangout/internal/models"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) WithTx(tx *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: tx}
}

func (r *NotificationRepository) Create(ctx context.Context, list []*models.Notification) error {
	if len(list) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(list).Error
}

// CreateInSavepoint inserts inside a savepoint of the bound transaction so a
// failure leaves the rest of the transaction intact.
func (r *NotificationRepository) CreateInSavepoint(ctx context.Context, list []*models.Notification) error {
	if len(list) == 0 {
		return nil
	}
	tx := r.db.WithContext(ctx)
	if err := tx.SavePoint("notify").Error; err != nil {
		return err
	}
	if err := tx.Create(list).Error; err != nil {
		if rbErr := tx.RollbackTo("notify").Error; rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return nil
}

func (r *NotificationRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Actor").Preload("Plan").Preload("ChatThread")
}

// GetByIDs loads notifications with their actor, plan and thread, in id order.
func (r *NotificationRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Notification, error) {
	var list []models.Notification
	if len(ids) == 0 {
		return list, nil
	}
	err := r.preloaded(ctx).Where("id IN ?", ids).Order("id").Find(&list).Error
	return list, err
}

// GetForUser returns a live notification owned by the user.
func (r *NotificationRepository) GetForUser(ctx context.Context, id, userID uint) (*models.Notification, error) {
	var n models.Notification
	err := r.preloaded(ctx).Where("id = ? AND user_id = ? AND is_deleted = ?", id, userID, false).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

type NotificationFilter struct {
	UnreadOnly bool
	Topic      domain.Topic
}

func (r *NotificationRepository) scope(ctx context.Context, userID uint, f NotificationFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ? AND is_deleted = ?", userID, false)
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if f.Topic != "" {
		q = q.Where("topic = ?", f.Topic)
	}
	return q
}

// List returns a page of the user's live notifications, newest first, and the filtered total.
func (r *NotificationRepository) List(ctx context.Context, userID uint, f NotificationFilter, limit, offset int) ([]models.Notification, int64, error) {
	var total int64
	if err := r.scope(ctx, userID, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Notification
	err := r.scope(ctx, userID, f).
		Preload("Actor").Preload("Plan").Preload("ChatThread").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, total, err
}

func (r *NotificationRepository) Count(ctx context.Context, userID uint, f NotificationFilter) (int64, error) {
	var n int64
	err := r.scope(ctx, userID, f).Count(&n).Error
	return n, err
}

// UnreadCountsByTopic always reports every topic, zero when empty.
func (r *NotificationRepository) UnreadCountsByTopic(ctx context.Context, userID uint) (map[domain.Topic]int64, error) {
	var rows []struct {
		Topic domain.Topic
		Count int64
	}
	err := r.scope(ctx, userID, NotificationFilter{UnreadOnly: true}).
		Select("topic, COUNT(*) AS count").
		Group("topic").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[domain.Topic]int64{domain.TopicPlan: 0, domain.TopicChat: 0}
	for _, row := range rows {
		out[row.Topic] = row.Count
	}
	return out, nil
}

func (r *NotificationRepository) Latest(ctx context.Context, userID uint) (*models.Notification, error) {
	var n models.Notification
	err := r.scope(ctx, userID, NotificationFilter{}).
		Preload("Actor").Preload("Plan").Preload("ChatThread").
		Order("created_at DESC").Order("id DESC").
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Status-only changes use UpdateColumns so the content hooks do not run.

func (r *NotificationRepository) MarkRead(ctx context.Context, n *models.Notification, now time.Time) error {
	if n.IsRead {
		return nil
	}
	n.MarkAsRead(now)
	n.UpdatedAt = now
	return r.db.WithContext(ctx).Model(n).UpdateColumns(map[string]any{
		"is_read":    true,
		"read_at":    now,
		"updated_at": now,
	}).Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint, topic domain.Topic, now time.Time) (int64, error) {
	res := r.scope(ctx, userID, NotificationFilter{UnreadOnly: true, Topic: topic}).UpdateColumns(map[string]any{
		"is_read":    true,
		"read_at":    now,
		"updated_at": now,
	})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) SoftDelete(ctx context.Context, n *models.Notification, now time.Time) error {
	n.SoftDelete(now)
	n.UpdatedAt = now
	return r.db.WithContext(ctx).Model(n).UpdateColumns(map[string]any{
		"is_deleted": true,
		"deleted_at": now,
		"updated_at": now,
	}).Error
}

// Clear soft-deletes every live notification of the user, optionally within a topic.
func (r *NotificationRepository) Clear(ctx context.Context, userID uint, topic domain.Topic, now time.Time) (int64, error) {
	res := r.scope(ctx, userID, NotificationFilter{Topic: topic}).UpdateColumns(map[string]any{
		"is_deleted": true,
		"deleted_at": now,
		"updated_at": now,
	})
	return res.RowsAffected, res.Error
}
