package repository

import (
	"context"
	"sort"
	"time"

	"hangout/internal/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *ChatRepository) WithTx(tx *gorm.DB) *ChatRepository {
	return &ChatRepository{db: tx}
}

func (r *ChatRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// GetOrCreateThread relies on the unique plan_id index, so concurrent callers
// converge on the same row. created is true only for the caller that inserted it.
// The thread always belongs to the plan leader, whoever opens it first.
func (r *ChatRepository) GetOrCreateThread(ctx context.Context, plan *models.Plan) (*models.ChatThread, bool, error) {
	db := r.db.WithContext(ctx)
	t := models.ChatThread{PlanID: plan.ID, Title: "Chat for " + plan.Title, CreatedByID: plan.LeaderID}
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "plan_id"}}, DoNothing: true}).Create(&t)
	if res.Error != nil {
		return nil, false, res.Error
	}
	var thread models.ChatThread
	if err := db.Where("plan_id = ?", plan.ID).First(&thread).Error; err != nil {
		return nil, false, err
	}
	return &thread, res.RowsAffected > 0, nil
}

func (r *ChatRepository) GetThreadByPlanID(ctx context.Context, planID uint) (*models.ChatThread, error) {
	var t models.ChatThread
	err := r.db.WithContext(ctx).Where("plan_id = ?", planID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ChatRepository) EnsureMember(ctx context.Context, threadID, userID uint) error {
	m := models.ChatMember{ThreadID: threadID, UserID: userID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "thread_id"}, {Name: "user_id"}}, DoNothing: true}).
		Create(&m).Error
}

func (r *ChatRepository) RemoveMember(ctx context.Context, threadID, userID uint) error {
	return r.db.WithContext(ctx).Where("thread_id = ? AND user_id = ?", threadID, userID).Delete(&models.ChatMember{}).Error
}

func (r *ChatRepository) MemberIDs(ctx context.Context, threadID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.ChatMember{}).Where("thread_id = ?", threadID).Order("id").Pluck("user_id", &ids).Error
	return ids, err
}

// History returns the thread's messages oldest first with their senders loaded,
// and the read receipts of those messages keyed by message id.
func (r *ChatRepository) History(ctx context.Context, threadID uint) ([]models.ChatMessage, map[uint][]models.ChatMessageRead, error) {
	var msgs []models.ChatMessage
	err := r.db.WithContext(ctx).Preload("Sender").
		Where("thread_id = ?", threadID).
		Order("created_at ASC").Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, nil, err
	}
	reads, err := r.readsFor(ctx, lo.Map(msgs, func(m models.ChatMessage, _ int) uint { return m.ID }), 0)
	if err != nil {
		return nil, nil, err
	}
	return msgs, reads, nil
}

// readsFor loads receipts for the messages, limited to one reader when userID is non-zero.
func (r *ChatRepository) readsFor(ctx context.Context, messageIDs []uint, userID uint) (map[uint][]models.ChatMessageRead, error) {
	out := make(map[uint][]models.ChatMessageRead)
	if len(messageIDs) == 0 {
		return out, nil
	}
	q := r.db.WithContext(ctx).Preload("User").Where("message_id IN ?", messageIDs)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var reads []models.ChatMessageRead
	if err := q.Order("read_at ASC").Order("id ASC").Find(&reads).Error; err != nil {
		return nil, err
	}
	for _, rd := range reads {
		out[rd.MessageID] = append(out[rd.MessageID], rd)
	}
	return out, nil
}

func (r *ChatRepository) CreateMessage(ctx context.Context, m *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// GetMessage finds a message within a thread.
func (r *ChatRepository) GetMessage(ctx context.Context, threadID, messageID uint) (*models.ChatMessage, error) {
	var m models.ChatMessage
	err := r.db.WithContext(ctx).Where("id = ? AND thread_id = ?", messageID, threadID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ChatRepository) UpdateBody(ctx context.Context, m *models.ChatMessage, body string) error {
	return r.db.WithContext(ctx).Model(m).Update("body", body).Error
}

// DeleteMessage removes the message and its read receipts. Notifications keep
// their rows and lose the message reference.
func (r *ChatRepository) DeleteMessage(ctx context.Context, messageID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", messageID).Delete(&models.ChatMessageRead{}).Error; err != nil {
			return err
		}
		err := tx.Model(&models.Notification{}).
			Where("chat_message_id = ?", messageID).
			UpdateColumn("chat_message_id", nil).Error
		if err != nil {
			return err
		}
		return tx.Delete(&models.ChatMessage{}, messageID).Error
	})
}

// MarkRead records receipts for the ids that belong to the thread and returns
// those ids. Existing receipts are kept as they are.
func (r *ChatRepository) MarkRead(ctx context.Context, threadID, userID uint, messageIDs []uint) ([]uint, error) {
	messageIDs = lo.Uniq(messageIDs)
	if len(messageIDs) == 0 {
		return nil, nil
	}
	db := r.db.WithContext(ctx)
	var valid []uint
	err := db.Model(&models.ChatMessage{}).
		Where("thread_id = ? AND id IN ?", threadID, messageIDs).
		Order("id").
		Pluck("id", &valid).Error
	if err != nil || len(valid) == 0 {
		return nil, err
	}
	rows := lo.Map(valid, func(id uint, _ int) models.ChatMessageRead {
		return models.ChatMessageRead{MessageID: id, UserID: userID}
	})
	err = db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}, {Name: "user_id"}}, DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return nil, err
	}
	return valid, nil
}

// ReadsBy returns one reader's receipts for the given messages.
func (r *ChatRepository) ReadsBy(ctx context.Context, userID uint, messageIDs []uint) ([]models.ChatMessageRead, error) {
	byMsg, err := r.readsFor(ctx, messageIDs, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ChatMessageRead, 0, len(byMsg))
	for _, id := range messageIDs {
		out = append(out, byMsg[id]...)
	}
	return out, nil
}

type ThreadSummary struct {
	Thread      models.ChatThread
	LastMessage *models.ChatMessage
}

// ListThreadsForUser returns the threads the user is a member of, most recent activity first.
func (r *ChatRepository) ListThreadsForUser(ctx context.Context, userID uint) ([]ThreadSummary, error) {
	db := r.db.WithContext(ctx)
	var threads []models.ChatThread
	err := db.Preload("Plan").
		Joins("JOIN chat_members ON chat_members.thread_id = chat_threads.id").
		Where("chat_members.user_id = ?", userID).
		Find(&threads).Error
	if err != nil || len(threads) == 0 {
		return nil, err
	}
	threadIDs := lo.Map(threads, func(t models.ChatThread, _ int) uint { return t.ID })
	var last []models.ChatMessage
	err = db.Preload("Sender").
		Where("id IN (?)", db.Model(&models.ChatMessage{}).Select("MAX(id)").Where("thread_id IN ?", threadIDs).Group("thread_id")).
		Find(&last).Error
	if err != nil {
		return nil, err
	}
	lastByThread := lo.KeyBy(last, func(m models.ChatMessage) uint { return m.ThreadID })

	out := make([]ThreadSummary, 0, len(threads))
	for _, t := range threads {
		s := ThreadSummary{Thread: t}
		if m, ok := lastByThread[t.ID]; ok {
			s.LastMessage = &m
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].activity().After(out[j].activity())
	})
	return out, nil
}

func (s ThreadSummary) activity() time.Time {
	switch {
	case s.LastMessage != nil:
		return s.LastMessage.CreatedAt
	case s.Thread.Plan.EventTime != nil:
		return *s.Thread.Plan.EventTime
	}
	return s.Thread.CreatedAt
}
