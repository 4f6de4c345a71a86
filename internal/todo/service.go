package todo

import (
	"context"
	defError "errors"
	"strings"
	"time"

	"todoshi/internal/domain"
	"todoshi/internal/errors"

	"gorm.io/gorm"
)

// ProjectAuthorizer checks project membership, implemented by project.Service
type ProjectAuthorizer interface {
	Authorize(ctx context.Context, projectID, userID string) (*domain.Project, error)
	AuthorizeRoom(ctx context.Context, roomID, projectID, userID string) (*domain.Project, error)
}

// ProfileResolver expands a user id, implemented by user.Service
type ProfileResolver interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
}

type Service interface {
	Create(ctx context.Context, roomID, userID string, input CreateInput) (*domain.TodoView, error)
	SetStatus(ctx context.Context, roomID, todoID, userID string, done bool) (*domain.TodoView, error)
	Delete(ctx context.Context, roomID, todoID, userID string) (*domain.TodoView, error)
	ListByDate(ctx context.Context, projectID, userID, date string) ([]domain.TodoView, error)
}

type CreateInput struct {
	Title       string
	Description string
	Status      bool
	Priority    string
	ProjectID   string
	Date        string
}

type DefaultService struct {
	repository TodoRepository
	projects   ProjectAuthorizer
	profiles   ProfileResolver
}

func NewService(repository TodoRepository, projects ProjectAuthorizer, profiles ProfileResolver) Service {
	return &DefaultService{repository: repository, projects: projects, profiles: profiles}
}

func notFound(err error) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Todo not found", err)
	}
	return err
}

// ValidDate reports whether date is a calendar day formatted YYYY-MM-DD
func ValidDate(date string) bool {
	_, err := time.Parse(domain.TodoDateLayout, date)
	return err == nil
}

func validPriority(p string) bool {
	switch p {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
		return true
	}
	return false
}

func (s *DefaultService) Create(ctx context.Context, roomID, userID string, input CreateInput) (*domain.TodoView, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, errors.BadRequest("Title and description are required", nil)
	}
	if !validPriority(input.Priority) {
		return nil, errors.BadRequest("Priority must be low, medium or high", nil)
	}
	if !ValidDate(input.Date) {
		return nil, errors.BadRequest("Date must be formatted as YYYY-MM-DD", nil)
	}

	if _, err := s.projects.AuthorizeRoom(ctx, roomID, input.ProjectID, userID); err != nil {
		return nil, err
	}

	todo := &domain.Todo{
		Title:       title,
		Description: description,
		Status:      input.Status,
		Priority:    input.Priority,
		CreatedBy:   userID,
		ProjectID:   input.ProjectID,
		Date:        input.Date,
	}
	if err := s.repository.Create(ctx, todo); err != nil {
		return nil, err
	}

	view := todo.View()
	if profile, err := s.profiles.GetProfile(ctx, userID); err == nil {
		view.CreatedBy = *profile
	}
	return &view, nil
}

func (s *DefaultService) load(ctx context.Context, roomID, todoID, userID string) (*domain.Todo, error) {
	todo, err := s.repository.FindByID(ctx, todoID)
	if err != nil {
		return nil, notFound(err)
	}
	if _, err := s.projects.AuthorizeRoom(ctx, roomID, todo.ProjectID, userID); err != nil {
		return nil, err
	}
	return todo, nil
}

func (s *DefaultService) SetStatus(ctx context.Context, roomID, todoID, userID string, done bool) (*domain.TodoView, error) {
	todo, err := s.load(ctx, roomID, todoID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repository.UpdateStatus(ctx, todoID, done); err != nil {
		return nil, notFound(err)
	}
	todo.Status = done
	view := todo.View()
	return &view, nil
}

func (s *DefaultService) Delete(ctx context.Context, roomID, todoID, userID string) (*domain.TodoView, error) {
	todo, err := s.load(ctx, roomID, todoID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repository.Delete(ctx, todoID); err != nil {
		return nil, notFound(err)
	}
	view := todo.View()
	return &view, nil
}

func (s *DefaultService) ListByDate(ctx context.Context, projectID, userID, date string) ([]domain.TodoView, error) {
	if !ValidDate(date) {
		return nil, errors.BadRequest("Date must be formatted as YYYY-MM-DD", nil)
	}
	if _, err := s.projects.Authorize(ctx, projectID, userID); err != nil {
		return nil, err
	}

	todos, err := s.repository.ListByDate(ctx, projectID, date)
	if err != nil {
		return nil, err
	}
	views := make([]domain.TodoView, 0, len(todos))
	for i := range todos {
		views = append(views, todos[i].View())
	}
	return views, nil
}
