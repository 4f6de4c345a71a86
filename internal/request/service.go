package request

import (
	"context"
	defError "errors"

	"todoshi/internal/domain"
	"todoshi/internal/errors"
	"todoshi/internal/project"
	"todoshi/internal/room"
	"todoshi/redis"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ProjectAuthorizer interface {
	Authorize(ctx context.Context, projectID, userID string) (*domain.Project, error)
}

type UserFinder interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

type Service interface {
	Send(ctx context.Context, projectID, senderID, receiverID string) (*domain.Request, error)
	Accept(ctx context.Context, requestID, actorID string) (*domain.Request, error)
	Reject(ctx context.Context, requestID, actorID string) (*domain.Request, error)
	ListReceived(ctx context.Context, userID string) ([]domain.Request, error)
	ListForProject(ctx context.Context, projectID, userID string) ([]domain.Request, error)
}

// CollaboratorJoined is broadcast to the project's room after an accept
type CollaboratorJoined struct {
	ProjectID string         `json:"projectId"`
	User      domain.Profile `json:"user"`
}

type DefaultService struct {
	repository RequestRepository
	projects   ProjectAuthorizer
	users      UserFinder
	cache      *redis.Cache
	rooms      room.Broadcaster
}

func NewService(
	repository RequestRepository,
	projects ProjectAuthorizer,
	users UserFinder,
	cache *redis.Cache,
	rooms room.Broadcaster,
) Service {
	return &DefaultService{
		repository: repository,
		projects:   projects,
		users:      users,
		cache:      cache,
		rooms:      rooms,
	}
}

func notFound(err error) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Request not found", err)
	}
	return err
}

func (s *DefaultService) Send(ctx context.Context, projectID, senderID, receiverID string) (*domain.Request, error) {
	p, err := s.projects.Authorize(ctx, projectID, senderID)
	if err != nil {
		return nil, err
	}
	if p.CreatedBy != senderID {
		return nil, errors.Forbidden("Only the project creator can invite collaborators", nil)
	}
	if receiverID == p.CreatedBy {
		return nil, errors.UnprocessableEntity("Can't invite yourself", nil)
	}
	if p.IsCollaborator(receiverID) {
		return nil, errors.Conflict("User is already a collaborator", nil)
	}
	if _, err := s.users.GetUserByID(ctx, receiverID); err != nil {
		return nil, err
	}

	exists, err := s.repository.ExistsPending(ctx, projectID, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Conflict("Request already sent", nil)
	}

	request := &domain.Request{
		ProjectID:  projectID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     domain.RequestPending,
	}
	if err := s.repository.Create(ctx, request); err != nil {
		// a concurrent Send for the same triple won the unique index
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("Request already sent", err)
		}
		return nil, err
	}
	return request, nil
}

// loadPending fetches a request the actor may answer
func (s *DefaultService) loadPending(ctx context.Context, requestID, actorID string) (*domain.Request, error) {
	request, err := s.repository.FindByID(ctx, requestID)
	if err != nil {
		return nil, notFound(err)
	}
	if request.ReceiverID != actorID {
		return nil, errors.Forbidden("Only the receiver can answer this request", nil)
	}
	if request.IsTerminal() {
		return nil, errors.Conflict("Request already "+request.Status, nil)
	}
	return request, nil
}

func (s *DefaultService) Accept(ctx context.Context, requestID, actorID string) (*domain.Request, error) {
	request, err := s.loadPending(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	if err := s.repository.Accept(ctx, request); err != nil {
		if defError.Is(err, ErrNotPending) {
			return nil, errors.Conflict("Request already answered", err)
		}
		return nil, err
	}
	request.Status = domain.RequestAccepted
	s.cache.IncrementVersion(ctx, project.ListVersionKey(actorID))
	s.cache.IncrementVersion(ctx, project.ListVersionKey(request.SenderID))

	logrus.WithFields(logrus.Fields{
		"component":  "request",
		"request_id": requestID,
		"project_id": request.ProjectID,
	}).Info("collaboration request accepted")

	if request.Project != nil {
		joined := CollaboratorJoined{ProjectID: request.ProjectID, User: domain.Profile{ID: actorID}}
		if user, err := s.users.GetUserByID(ctx, actorID); err == nil {
			joined.User = user.ToProfile()
		}
		s.rooms.Broadcast(room.Key(request.Project.Title, request.ProjectID), room.EventCollaboratorJoined, joined)
	}
	return request, nil
}

func (s *DefaultService) Reject(ctx context.Context, requestID, actorID string) (*domain.Request, error) {
	request, err := s.loadPending(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	if err := s.repository.Reject(ctx, requestID); err != nil {
		if defError.Is(err, ErrNotPending) {
			return nil, errors.Conflict("Request already answered", err)
		}
		return nil, err
	}
	request.Status = domain.RequestRejected
	return request, nil
}

func (s *DefaultService) ListReceived(ctx context.Context, userID string) ([]domain.Request, error) {
	return s.repository.ListReceived(ctx, userID)
}

func (s *DefaultService) ListForProject(ctx context.Context, projectID, userID string) ([]domain.Request, error) {
	p, err := s.projects.Authorize(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if p.CreatedBy != userID {
		return nil, errors.Forbidden("Only the project creator can see its requests", nil)
	}
	return s.repository.ListForProject(ctx, projectID)
}
