package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace_chat_service/internal/chat/domain"
	errprocess "marketplace_chat_service/pkg/err"

	"gorm.io/gorm"
)

type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository create a MessageRepository on postgres
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

// AutoMigrateMessages create / update chat_messages
func AutoMigrateMessages(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Message{})
}

func (r *gormMessageRepository) Create(ctx context.Context, m *domain.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *gormMessageRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return toUTC(messages), err
}

func (r *gormMessageRepository) ListUnread(ctx context.Context, roomID, receiverID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND receiver_id = ? AND state < ?", roomID, receiverID, domain.StateSeen).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return toUTC(messages), err
}

func (r *gormMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var m domain.Message
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("message %s: %w", id, errprocess.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

// SetState single UPDATE ... WHERE state < ?, no read-modify-write
func (r *gormMessageRepository) SetState(ctx context.Context, id string, state domain.DeliveryState) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND state < ?", id, state).
		Update("state", state)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormMessageRepository) CountUnreadByRoom(ctx context.Context, receiverID string) ([]domain.RoomUnread, error) {
	results := []domain.RoomUnread{}
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Select("room_id, sender_id, COUNT(*) AS unread_count").
		Where("receiver_id = ? AND state < ?", receiverID, domain.StateSeen).
		Group("room_id, sender_id").
		Order("room_id, sender_id").
		Scan(&results).Error
	return results, err
}

func toUTC(messages []domain.Message) []domain.Message {
	if messages == nil {
		return []domain.Message{}
	}
	for i := range messages {
		messages[i].CreatedAt = messages[i].CreatedAt.UTC()
	}
	return messages
}
