package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/boilagbe-backend/internal/model"
	"gorm.io/gorm"
)

// unreadClause selects messages not covered by a mark-read stamp. Equal stamps count as covered.
const unreadClause = "(last_read_at IS NULL OR last_read_at < sent_at)"

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id uint64) (*model.Message, error)
	ListConversation(ctx context.Context, uidA, uidB string) ([]model.Message, error)
	Latest(ctx context.Context, uidA, uidB string) (*model.Message, error)
	ListUnread(ctx context.Context, senderID, receiverID string) ([]model.Message, error)
	CountUnread(ctx context.Context, senderID, receiverID string) (int64, error)
	MarkRead(ctx context.Context, senderID, receiverID string, at time.Time) (int64, error)
	MarkMessageRead(ctx context.Context, id uint64, receiverID string, at time.Time) (int64, error)
	ListInvolving(ctx context.Context, uid string) ([]model.Message, error)
	Delete(ctx context.Context, id uint64) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = r.db.NowFunc()
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) FindByID(ctx context.Context, id uint64) (*model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msg model.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) conversation(ctx context.Context, uidA, uidB string) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", uidA, uidB, uidB, uidA)
}

func (r *messageRepository) ListConversation(ctx context.Context, uidA, uidB string) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.conversation(ctx, uidA, uidB).
		Order("sent_at ASC").
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) Latest(ctx context.Context, uidA, uidB string) (*model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msg model.Message
	if err := r.conversation(ctx, uidA, uidB).
		Order("sent_at DESC").
		Order("id DESC").
		First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) unread(ctx context.Context, senderID, receiverID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		Where(unreadClause)
}

func (r *messageRepository) ListUnread(ctx context.Context, senderID, receiverID string) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.unread(ctx, senderID, receiverID).
		Order("sent_at ASC").
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, senderID, receiverID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var cnt int64
	if err := r.unread(ctx, senderID, receiverID).Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

// MarkRead stamps every unread message from senderID to receiverID sent at or before at.
// It is a single UPDATE; messages inserted concurrently may or may not be included.
func (r *messageRepository) MarkRead(ctx context.Context, senderID, receiverID string, at time.Time) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.unread(ctx, senderID, receiverID).
		Where("sent_at <= ?", at).
		Update("last_read_at", at)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) MarkMessageRead(ctx context.Context, id uint64, receiverID string, at time.Time) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ? AND receiver_id = ?", id, receiverID).
		Where(unreadClause).
		Where("sent_at <= ?", at).
		Update("last_read_at", at)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) ListInvolving(ctx context.Context, uid string) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", uid, uid).
		Order("sent_at DESC").
		Order("id DESC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) Delete(ctx context.Context, id uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Delete(&model.Message{}, id)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
