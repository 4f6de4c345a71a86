package todo

import (
	"context"
	"fmt"

	"todoshi/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	FindByID(ctx context.Context, id string) (*domain.Todo, error)
	UpdateStatus(ctx context.Context, id string, status bool) error
	Delete(ctx context.Context, id string) error
	ListByDate(ctx context.Context, projectID, date string) ([]domain.Todo, error)
}

type TodoRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) TodoRepository {
	return &TodoRepositoryImpl{db: db}
}

func (r *TodoRepositoryImpl) Create(ctx context.Context, todo *domain.Todo) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(todo).Error; err != nil {
		return fmt.Errorf("gorm: create todo: %w", err)
	}
	return nil
}

func (r *TodoRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.Todo, error) {
	var todo domain.Todo
	if err := r.db.WithContext(ctx).Preload("Creator").First(&todo, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("gorm: find todo %s: %w", id, err)
	}
	return &todo, nil
}

func (r *TodoRepositoryImpl) UpdateStatus(ctx context.Context, id string, status bool) error {
	result := r.db.WithContext(ctx).Model(&domain.Todo{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("gorm: update todo %s status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("gorm: update todo %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *TodoRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.Todo{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete todo %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("gorm: delete todo %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// ListByDate matches the stored date string exactly, there is no range logic
func (r *TodoRepositoryImpl) ListByDate(ctx context.Context, projectID, date string) ([]domain.Todo, error) {
	var todos []domain.Todo
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Where("project_id = ? AND date = ?", projectID, date).
		Order("created_at ASC").
		Find(&todos).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list todos of %s on %s: %w", projectID, date, err)
	}
	return todos, nil
}
