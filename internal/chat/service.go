package chat

import (
	"context"
	defError "errors"
	"mime/multipart"
	"strings"
	"time"

	"todoshi/internal/domain"
	"todoshi/internal/errors"
	"todoshi/internal/room"
	"todoshi/internal/storage"
	"todoshi/internal/worker"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// HistoryLimit caps one page of chat history
	HistoryLimit = 50
	// DeleteWindow is how long a sender may delete their message
	DeleteWindow = 24 * time.Hour

	attachmentFolder = "chat"
)

type ProjectAuthorizer interface {
	Authorize(ctx context.Context, projectID, userID string) (*domain.Project, error)
	AuthorizeRoom(ctx context.Context, roomID, projectID, userID string) (*domain.Project, error)
}

type ProfileResolver interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
}

type Service interface {
	Send(ctx context.Context, roomID, userID string, input SendInput) (*domain.MessageView, error)
	History(ctx context.Context, projectID, userID, lastMessageID string) ([]domain.MessageView, error)
	Delete(ctx context.Context, roomID, messageID, userID string) error
}

type SendInput struct {
	ProjectID  string
	Content    string
	Attachment *multipart.FileHeader
}

// Deleted is broadcast once a message is gone
type Deleted struct {
	MessageID string `json:"messageId"`
	ProjectID string `json:"projectId"`
}

type DefaultService struct {
	repository MessageRepository
	projects   ProjectAuthorizer
	profiles   ProfileResolver
	objects    storage.ObjectStore
	jobs       worker.Submitter
	rooms      room.Broadcaster
	now        func() time.Time
}

func NewService(
	repository MessageRepository,
	projects ProjectAuthorizer,
	profiles ProfileResolver,
	objects storage.ObjectStore,
	jobs worker.Submitter,
	rooms room.Broadcaster,
) Service {
	return &DefaultService{
		repository: repository,
		projects:   projects,
		profiles:   profiles,
		objects:    objects,
		jobs:       jobs,
		rooms:      rooms,
		now:        time.Now,
	}
}

func notFound(err error) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Message not found", err)
	}
	return err
}

func (s *DefaultService) Send(ctx context.Context, roomID, userID string, input SendInput) (*domain.MessageView, error) {
	content := strings.TrimSpace(input.Content)
	if strings.TrimSpace(roomID) == "" || content == "" {
		return nil, errors.BadRequest("Room and content are required", nil)
	}
	if _, err := s.projects.AuthorizeRoom(ctx, roomID, input.ProjectID, userID); err != nil {
		return nil, err
	}

	message := &domain.Message{
		ProjectID: input.ProjectID,
		SenderID:  userID,
		Content:   content,
	}
	if input.Attachment != nil {
		ref, err := s.objects.Upload(ctx, attachmentFolder, input.Attachment)
		if err != nil {
			return nil, errors.ServiceUnavailable("Attachment upload failed", err)
		}
		message.Attachment = datatypes.NewJSONType(&ref)
	}

	if err := s.repository.Create(ctx, message); err != nil {
		if ref := message.Attachment.Data(); ref != nil {
			s.jobs.Submit("delete-orphan-attachment", func(ctx context.Context) error {
				return s.objects.Delete(ctx, ref.PublicID)
			})
		}
		return nil, err
	}

	view := message.View()
	if profile, err := s.profiles.GetProfile(ctx, userID); err == nil {
		view.Sender = *profile
	}

	s.rooms.Broadcast(roomID, room.EventNewMessage, view)
	return &view, nil
}

// History pages backwards: it fetches newest first and returns the page in
// chronological order.
func (s *DefaultService) History(ctx context.Context, projectID, userID, lastMessageID string) ([]domain.MessageView, error) {
	if _, err := s.projects.Authorize(ctx, projectID, userID); err != nil {
		return nil, err
	}

	var cursor *domain.Message
	if lastMessageID != "" {
		c, err := s.repository.FindByID(ctx, lastMessageID)
		if err != nil {
			return nil, notFound(err)
		}
		if c.ProjectID != projectID {
			return nil, errors.BadRequest("Cursor belongs to another project", nil)
		}
		cursor = c
	}

	messages, err := s.repository.ListBefore(ctx, projectID, cursor, HistoryLimit)
	if err != nil {
		return nil, err
	}

	views := make([]domain.MessageView, len(messages))
	for i := range messages {
		views[len(messages)-1-i] = messages[i].View()
	}
	return views, nil
}

func (s *DefaultService) Delete(ctx context.Context, roomID, messageID, userID string) error {
	if strings.TrimSpace(messageID) == "" {
		return errors.BadRequest("Message id is required", nil)
	}

	message, err := s.repository.FindByID(ctx, messageID)
	if err != nil {
		return notFound(err)
	}
	if message.SenderID != userID {
		return errors.Forbidden("Only the sender can delete this message", nil)
	}
	if s.now().Sub(message.CreatedAt) > DeleteWindow {
		return errors.Forbidden("Messages older than a day can't be deleted", nil)
	}
	if _, err := s.projects.AuthorizeRoom(ctx, roomID, message.ProjectID, userID); err != nil {
		return err
	}

	if ref := message.Attachment.Data(); ref != nil && ref.PublicID != "" {
		if err := s.objects.Delete(ctx, ref.PublicID); err != nil {
			return errors.ServiceUnavailable("Attachment removal failed", err)
		}
	}
	if err := s.repository.Delete(ctx, messageID); err != nil {
		return notFound(err)
	}

	logrus.WithFields(logrus.Fields{
		"component":  "chat",
		"message_id": messageID,
		"room":       roomID,
	}).Debug("message deleted")

	s.rooms.Broadcast(roomID, room.EventMessageDeleted, Deleted{MessageID: messageID, ProjectID: message.ProjectID})
	return nil
}
