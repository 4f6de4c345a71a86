package project

import (
	"context"
	"fmt"

	"todoshi/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	FindByID(ctx context.Context, id string) (*domain.Project, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Project, error)
	Update(ctx context.Context, project *domain.Project) error
	UpdateColumn(ctx context.Context, id, column string, value any) error
	Delete(ctx context.Context, id string) error
	AttachmentIDs(ctx context.Context, projectID string) ([]string, error)
	RemoveCollaborator(ctx context.Context, projectID, userID string) error
}

type ProjectRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ProjectRepository {
	return &ProjectRepositoryImpl{db: db}
}

func (r *ProjectRepositoryImpl) Create(ctx context.Context, project *domain.Project) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error; err != nil {
		return fmt.Errorf("gorm: create project: %w", err)
	}
	return nil
}

func (r *ProjectRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Collaborators").
		First(&project, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find project %s: %w", id, err)
	}
	return &project, nil
}

// ListForUser returns projects the user created or collaborates on, newest first
func (r *ProjectRepositoryImpl) ListForUser(ctx context.Context, userID string) ([]domain.Project, error) {
	collaborating := r.db.Model(&domain.ProjectCollaborator{}).
		Select("project_id").
		Where("user_id = ?", userID)

	var projects []domain.Project
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Collaborators").
		Where("created_by = ?", userID).
		Or("id IN (?)", collaborating).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list projects for %s: %w", userID, err)
	}
	return projects, nil
}

func (r *ProjectRepositoryImpl) Update(ctx context.Context, project *domain.Project) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error; err != nil {
		return fmt.Errorf("gorm: save project %s: %w", project.ID, err)
	}
	return nil
}

func (r *ProjectRepositoryImpl) UpdateColumn(ctx context.Context, id, column string, value any) error {
	result := r.db.WithContext(ctx).Model(&domain.Project{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("gorm: update project %s %s: %w", id, column, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("gorm: update project %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete removes the project and everything scoped to it in one transaction
func (r *ProjectRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped := []any{
			&domain.ProjectCollaborator{},
			&domain.Todo{},
			&domain.Log{},
			&domain.Message{},
			&domain.Request{},
		}
		for _, model := range scoped {
			if err := tx.Where("project_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("gorm: delete %T of project %s: %w", model, id, err)
			}
		}
		if err := tx.Delete(&domain.Project{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("gorm: delete project %s: %w", id, err)
		}
		return nil
	})
}

// AttachmentIDs lists object keys of every chat attachment in the project
func (r *ProjectRepositoryImpl) AttachmentIDs(ctx context.Context, projectID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("project_id = ? AND attachment->>'public_id' IS NOT NULL", projectID).
		Pluck("attachment->>'public_id'", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: attachment ids of project %s: %w", projectID, err)
	}
	return ids, nil
}

func (r *ProjectRepositoryImpl) RemoveCollaborator(ctx context.Context, projectID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&domain.ProjectCollaborator{})
	if result.Error != nil {
		return fmt.Errorf("gorm: remove collaborator %s from %s: %w", userID, projectID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("gorm: collaborator %s of %s: %w", userID, projectID, gorm.ErrRecordNotFound)
	}
	return nil
}

// InsertCollaborator adds userID to the collaborator set. Re-adding an
// existing collaborator is a no-op. tx may be a transaction.
func InsertCollaborator(tx *gorm.DB, projectID, userID string) error {
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.ProjectCollaborator{ProjectID: projectID, UserID: userID}).Error
	if err != nil {
		return fmt.Errorf("gorm: add collaborator %s to %s: %w", userID, projectID, err)
	}
	return nil
}
