package repository

import (
	"context"

	"inkd/internal/models"

	"gorm.io/gorm"
)

// MessageRepository stores conversational turns.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	// ListForParticipant returns every message id sent or received, oldest first.
	ListForParticipant(ctx context.Context, id string) ([]models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return mapError(err, "Message", msg.ID)
	}
	return nil
}

func (r *messageRepository) ListForParticipant(ctx context.Context, id string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", id, id).
		Order("timestamp ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, mapError(err, "Message", id)
	}
	return msgs, nil
}
