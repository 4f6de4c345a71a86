package request

import (
	"context"
	defError "errors"
	"fmt"

	"todoshi/internal/domain"
	"todoshi/internal/project"

	"gorm.io/gorm"
)

// ErrNotPending is returned when a transition targets a request that already
// left the pending state
var ErrNotPending = defError.New("request is not pending")

type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request) error
	FindByID(ctx context.Context, id string) (*domain.Request, error)
	ExistsPending(ctx context.Context, projectID, senderID, receiverID string) (bool, error)
	// Accept marks the request accepted and adds the receiver to the project in
	// one transaction
	Accept(ctx context.Context, request *domain.Request) error
	Reject(ctx context.Context, id string) error
	ListReceived(ctx context.Context, receiverID string) ([]domain.Request, error)
	ListForProject(ctx context.Context, projectID string) ([]domain.Request, error)
}

type RequestRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) RequestRepository {
	return &RequestRepositoryImpl{db: db}
}

func (r *RequestRepositoryImpl) Create(ctx context.Context, request *domain.Request) error {
	if err := r.db.WithContext(ctx).Omit("Project", "Sender").Create(request).Error; err != nil {
		return fmt.Errorf("gorm: create request for %s: %w", request.ProjectID, err)
	}
	return nil
}

func (r *RequestRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.Request, error) {
	var request domain.Request
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Sender").
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find request %s: %w", id, err)
	}
	return &request, nil
}

func (r *RequestRepositoryImpl) ExistsPending(ctx context.Context, projectID, senderID, receiverID string) (bool, error) {
	var exists bool
	err := r.db.WithContext(ctx).Model(&domain.Request{}).
		Select("count(1) > 0").
		Where("project_id = ? AND sender_id = ? AND receiver_id = ? AND status = ?",
			projectID, senderID, receiverID, domain.RequestPending).
		Find(&exists).Error
	if err != nil {
		return false, fmt.Errorf("gorm: pending request lookup: %w", err)
	}
	return exists, nil
}

// transition moves a pending request to status, zero rows means it was not pending
func transition(tx *gorm.DB, id, status string) error {
	result := tx.Model(&domain.Request{}).
		Where("id = ? AND status = ?", id, domain.RequestPending).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("gorm: set request %s %s: %w", id, status, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *RequestRepositoryImpl) Accept(ctx context.Context, request *domain.Request) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transition(tx, request.ID, domain.RequestAccepted); err != nil {
			return err
		}
		return project.InsertCollaborator(tx, request.ProjectID, request.ReceiverID)
	})
}

func (r *RequestRepositoryImpl) Reject(ctx context.Context, id string) error {
	return transition(r.db.WithContext(ctx), id, domain.RequestRejected)
}

func (r *RequestRepositoryImpl) ListReceived(ctx context.Context, receiverID string) ([]domain.Request, error) {
	requests := []domain.Request{}
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Sender").
		Where("receiver_id = ? AND status = ?", receiverID, domain.RequestPending).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list requests received by %s: %w", receiverID, err)
	}
	return requests, nil
}

func (r *RequestRepositoryImpl) ListForProject(ctx context.Context, projectID string) ([]domain.Request, error) {
	requests := []domain.Request{}
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list requests of %s: %w", projectID, err)
	}
	return requests, nil
}
