package projectlog

import (
	"context"
	"strings"

	"todoshi/internal/domain"
	"todoshi/internal/errors"
	"todoshi/internal/utils"
)

type ProjectAuthorizer interface {
	Authorize(ctx context.Context, projectID, userID string) (*domain.Project, error)
	AuthorizeRoom(ctx context.Context, roomID, projectID, userID string) (*domain.Project, error)
}

type Service interface {
	Append(ctx context.Context, roomID, projectID, userID, description string) (*domain.Log, error)
	List(ctx context.Context, projectID, userID string, page, pageSize int) (*PaginatedLogs, error)
}

type PaginatedLogs struct {
	Data []domain.Log `json:"data"`
	Meta utils.Meta   `json:"meta"`
}

type DefaultService struct {
	repository LogRepository
	projects   ProjectAuthorizer
}

func NewService(repository LogRepository, projects ProjectAuthorizer) Service {
	return &DefaultService{repository: repository, projects: projects}
}

func (s *DefaultService) Append(ctx context.Context, roomID, projectID, userID, description string) (*domain.Log, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, errors.BadRequest("Description cannot be empty", nil)
	}
	if _, err := s.projects.AuthorizeRoom(ctx, roomID, projectID, userID); err != nil {
		return nil, err
	}

	log := &domain.Log{Description: description, ProjectID: projectID}
	if err := s.repository.Create(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

func (s *DefaultService) List(ctx context.Context, projectID, userID string, page, pageSize int) (*PaginatedLogs, error) {
	if _, err := s.projects.Authorize(ctx, projectID, userID); err != nil {
		return nil, err
	}

	logs, meta, err := s.repository.ListByProject(ctx, projectID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &PaginatedLogs{Data: logs, Meta: meta}, nil
}
