package projectlog

import (
	"context"
	"fmt"

	"todoshi/internal/domain"
	"todoshi/internal/utils"

	"gorm.io/gorm"
)

// LogRepository is append only
type LogRepository interface {
	Create(ctx context.Context, log *domain.Log) error
	ListByProject(ctx context.Context, projectID string, page, pageSize int) ([]domain.Log, utils.Meta, error)
}

type LogRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) LogRepository {
	return &LogRepositoryImpl{db: db}
}

func (r *LogRepositoryImpl) Create(ctx context.Context, log *domain.Log) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("gorm: create log for %s: %w", log.ProjectID, err)
	}
	return nil
}

func (r *LogRepositoryImpl) ListByProject(ctx context.Context, projectID string, page, pageSize int) ([]domain.Log, utils.Meta, error) {
	var total int64
	scope := r.db.WithContext(ctx).Model(&domain.Log{}).Where("project_id = ?", projectID)
	if err := scope.Count(&total).Error; err != nil {
		return nil, utils.Meta{}, fmt.Errorf("gorm: count logs of %s: %w", projectID, err)
	}

	logs := []domain.Log{}
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Offset(utils.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&logs).Error
	if err != nil {
		return nil, utils.Meta{}, fmt.Errorf("gorm: list logs of %s: %w", projectID, err)
	}
	return logs, utils.NewMeta(total, page, pageSize), nil
}
