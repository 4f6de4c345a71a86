package chat

import (
	"context"
	"fmt"

	"todoshi/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	// ListBefore returns up to limit messages older than cursor, newest first.
	// A nil cursor starts from the latest message.
	ListBefore(ctx context.Context, projectID string, cursor *domain.Message, limit int) ([]domain.Message, error)
	Delete(ctx context.Context, id string) error
}

type MessageRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) MessageRepository {
	return &MessageRepositoryImpl{db: db}
}

func (r *MessageRepositoryImpl) Create(ctx context.Context, message *domain.Message) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error; err != nil {
		return fmt.Errorf("gorm: create message in %s: %w", message.ProjectID, err)
	}
	return nil
}

func (r *MessageRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var message domain.Message
	if err := r.db.WithContext(ctx).Preload("Sender").First(&message, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("gorm: find message %s: %w", id, err)
	}
	return &message, nil
}

func (r *MessageRepositoryImpl) ListBefore(ctx context.Context, projectID string, cursor *domain.Message, limit int) ([]domain.Message, error) {
	query := r.db.WithContext(ctx).
		Preload("Sender").
		Where("project_id = ?", projectID)
	if cursor != nil {
		// ids break ties between messages created in the same instant
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var messages []domain.Message
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list messages of %s: %w", projectID, err)
	}
	return messages, nil
}

func (r *MessageRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.Message{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete message %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("gorm: delete message %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}
