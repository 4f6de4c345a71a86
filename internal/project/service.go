package project

import (
	"context"
	defError "errors"
	"fmt"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"todoshi/internal/domain"
	"todoshi/internal/errors"
	"todoshi/internal/room"
	"todoshi/internal/storage"
	"todoshi/internal/worker"
	"todoshi/redis"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	imageFolder = "projects/images"
	srsFolder   = "projects/srs"

	listCacheTTL = 24 * time.Hour
)

var (
	imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true}
	srsExtensions   = map[string]bool{".pdf": true, ".doc": true, ".docx": true}
)

type Service interface {
	Create(ctx context.Context, userID string, input CreateInput) (*domain.Project, error)
	Get(ctx context.Context, projectID, userID string) (*domain.Project, error)
	ListMine(ctx context.Context, userID string) ([]domain.Project, error)
	UpdateDetails(ctx context.Context, projectID, userID string, input DetailsInput) (*domain.Project, error)
	UploadSRS(ctx context.Context, projectID, userID string, file *multipart.FileHeader) (*domain.Project, error)
	Delete(ctx context.Context, projectID, userID string) error
	RemoveCollaborator(ctx context.Context, projectID, userID, collaboratorID string) error
	Leave(ctx context.Context, projectID, userID string) error

	UpdateDescription(ctx context.Context, roomID, projectID, userID, description string) (*domain.Project, error)
	UpdateLinks(ctx context.Context, roomID, projectID, userID string, links []string) (*domain.Project, error)
	SetActiveStatus(ctx context.Context, roomID, projectID, userID string, active bool) (*domain.Project, error)

	// Authorize loads the project and checks userID is its creator or a collaborator
	Authorize(ctx context.Context, projectID, userID string) (*domain.Project, error)
	// AuthorizeRoom is Authorize plus a check that roomID is the project's room
	AuthorizeRoom(ctx context.Context, roomID, projectID, userID string) (*domain.Project, error)
}

type CreateInput struct {
	Title       string
	Description string
	Deadline    *time.Time
}

// DetailsInput carries optional changes; nil fields are untouched
type DetailsInput struct {
	Title       *string
	Description *string
	Deadline    *time.Time
	Image       *multipart.FileHeader
}

// DetailsUpdate is broadcast to the project's room. RoomID is the key the
// room is known by after the change, it differs when the title prefix changed.
type DetailsUpdate struct {
	RoomID  string          `json:"roomID"`
	Project *domain.Project `json:"project"`
}

// CollaboratorChange is broadcast when membership changes
type CollaboratorChange struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
}

type DefaultService struct {
	repository ProjectRepository
	cache      *redis.Cache
	objects    storage.ObjectStore
	jobs       worker.Submitter
	rooms      room.Broadcaster
}

func NewService(
	repository ProjectRepository,
	cache *redis.Cache,
	objects storage.ObjectStore,
	jobs worker.Submitter,
	rooms room.Broadcaster,
) Service {
	return &DefaultService{
		repository: repository,
		cache:      cache,
		objects:    objects,
		jobs:       jobs,
		rooms:      rooms,
	}
}

// ListVersionKey is bumped whenever a project the user can see changes
func ListVersionKey(userID string) string {
	return fmt.Sprintf("user:%s:projects:version", userID)
}

func notFound(err error) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Project not found", err)
	}
	return err
}

func (s *DefaultService) invalidate(ctx context.Context, project *domain.Project) {
	s.cache.IncrementVersion(ctx, ListVersionKey(project.CreatedBy))
	for _, c := range project.Collaborators {
		s.cache.IncrementVersion(ctx, ListVersionKey(c.ID))
	}
}

func (s *DefaultService) deleteObjects(name string, ids ...string) {
	var keys []string
	for _, id := range ids {
		if id != "" {
			keys = append(keys, id)
		}
	}
	if len(keys) == 0 {
		return
	}
	s.jobs.Submit(name, func(ctx context.Context) error {
		var errs []error
		for _, key := range keys {
			if err := s.objects.Delete(ctx, key); err != nil {
				errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
			}
		}
		return defError.Join(errs...)
	})
}

func (s *DefaultService) Create(ctx context.Context, userID string, input CreateInput) (*domain.Project, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.BadRequest("Title cannot be empty", nil)
	}

	project := &domain.Project{
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		CreatedBy:    userID,
		Deadline:     input.Deadline,
		ActiveStatus: true,
		Links:        pq.StringArray{},
	}
	if err := s.repository.Create(ctx, project); err != nil {
		return nil, err
	}

	s.cache.IncrementVersion(ctx, ListVersionKey(userID))
	return project, nil
}

func (s *DefaultService) Authorize(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	project, err := s.repository.FindByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err)
	}
	if !project.HasMember(userID) {
		return nil, errors.Forbidden("You are not a member of this project", nil)
	}
	return project, nil
}

func (s *DefaultService) AuthorizeRoom(ctx context.Context, roomID, projectID, userID string) (*domain.Project, error) {
	project, err := s.Authorize(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if room.Key(project.Title, project.ID) != roomID {
		return nil, errors.BadRequest("Room does not match project", nil)
	}
	return project, nil
}

func (s *DefaultService) authorizeCreator(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	project, err := s.repository.FindByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err)
	}
	if project.CreatedBy != userID {
		return nil, errors.Forbidden("Only the project creator can do this", nil)
	}
	return project, nil
}

func (s *DefaultService) Get(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	return s.Authorize(ctx, projectID, userID)
}

func (s *DefaultService) ListMine(ctx context.Context, userID string) ([]domain.Project, error) {
	v := s.cache.GetVersion(ctx, ListVersionKey(userID))
	cacheKey := fmt.Sprintf("projects:u:%s:v:%d", userID, v)

	var projects []domain.Project
	if found, _ := s.cache.Get(ctx, cacheKey, &projects); found {
		return projects, nil
	}

	projects, err := s.repository.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.jobs.Submit("cache-projects", func(ctx context.Context) error {
		return s.cache.Set(ctx, cacheKey, projects, listCacheTTL)
	})
	return projects, nil
}

func (s *DefaultService) UpdateDetails(ctx context.Context, projectID, userID string, input DetailsInput) (*domain.Project, error) {
	project, err := s.authorizeCreator(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	oldRoom := room.Key(project.Title, project.ID)

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errors.BadRequest("Title cannot be empty", nil)
		}
		project.Title = title
	}
	if input.Description != nil {
		project.Description = strings.TrimSpace(*input.Description)
	}
	if input.Deadline != nil {
		project.Deadline = input.Deadline
	}

	oldImage := ""
	if input.Image != nil {
		if !imageExtensions[strings.ToLower(path.Ext(input.Image.Filename))] {
			return nil, errors.BadRequest("Image must be png, jpg, webp or gif", nil)
		}
		ref, err := s.objects.Upload(ctx, imageFolder, input.Image)
		if err != nil {
			return nil, errors.ServiceUnavailable("Image upload failed", err)
		}
		oldImage = project.Image.Data().PublicID
		project.Image = datatypes.NewJSONType(ref)
	}

	if err := s.repository.Update(ctx, project); err != nil {
		return nil, err
	}
	s.deleteObjects("delete-project-image", oldImage)
	s.invalidate(ctx, project)

	s.rooms.Broadcast(oldRoom, room.EventProjectDetailsUpdate, DetailsUpdate{
		RoomID:  room.Key(project.Title, project.ID),
		Project: project,
	})
	return project, nil
}

func (s *DefaultService) UploadSRS(ctx context.Context, projectID, userID string, file *multipart.FileHeader) (*domain.Project, error) {
	if file == nil {
		return nil, errors.BadRequest("SRS document is required", nil)
	}
	if !srsExtensions[strings.ToLower(path.Ext(file.Filename))] {
		return nil, errors.BadRequest("SRS document must be pdf, doc or docx", nil)
	}

	project, err := s.authorizeCreator(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	ref, err := s.objects.Upload(ctx, srsFolder, file)
	if err != nil {
		return nil, errors.ServiceUnavailable("SRS upload failed", err)
	}
	oldSRS := project.SrsDocFile.Data().PublicID
	project.SrsDocFile = datatypes.NewJSONType(ref)

	if err := s.repository.Update(ctx, project); err != nil {
		return nil, err
	}
	s.deleteObjects("delete-project-srs", oldSRS)
	s.invalidate(ctx, project)

	s.rooms.Broadcast(room.Key(project.Title, project.ID), room.EventProjectSRSUpdate, map[string]any{
		"srsDocFile": ref,
	})
	return project, nil
}

func (s *DefaultService) Delete(ctx context.Context, projectID, userID string) error {
	project, err := s.authorizeCreator(ctx, projectID, userID)
	if err != nil {
		return err
	}

	attachments, err := s.repository.AttachmentIDs(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.repository.Delete(ctx, projectID); err != nil {
		return err
	}

	keys := append(attachments, project.Image.Data().PublicID, project.SrsDocFile.Data().PublicID)
	s.deleteObjects("delete-project-objects", keys...)
	s.invalidate(ctx, project)

	logrus.WithFields(logrus.Fields{
		"component":  "project",
		"project_id": projectID,
		"objects":    len(keys),
	}).Info("project deleted")
	return nil
}

func (s *DefaultService) RemoveCollaborator(ctx context.Context, projectID, userID, collaboratorID string) error {
	project, err := s.authorizeCreator(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if collaboratorID == userID {
		return errors.UnprocessableEntity("Can't remove yourself", nil)
	}
	if !project.IsCollaborator(collaboratorID) {
		return errors.NotFound("Collaborator not found", nil)
	}
	return s.dropCollaborator(ctx, project, collaboratorID)
}

func (s *DefaultService) Leave(ctx context.Context, projectID, userID string) error {
	project, err := s.repository.FindByID(ctx, projectID)
	if err != nil {
		return notFound(err)
	}
	if project.CreatedBy == userID {
		return errors.UnprocessableEntity("The creator can't leave the project", nil)
	}
	if !project.IsCollaborator(userID) {
		return errors.Forbidden("You are not a member of this project", nil)
	}
	return s.dropCollaborator(ctx, project, userID)
}

func (s *DefaultService) dropCollaborator(ctx context.Context, project *domain.Project, userID string) error {
	if err := s.repository.RemoveCollaborator(ctx, project.ID, userID); err != nil {
		return notFound(err)
	}
	// the leaving user still has the project cached
	s.invalidate(ctx, project)

	s.rooms.Broadcast(room.Key(project.Title, project.ID), room.EventCollaboratorLeft, CollaboratorChange{
		ProjectID: project.ID,
		UserID:    userID,
	})
	return nil
}

func (s *DefaultService) UpdateDescription(ctx context.Context, roomID, projectID, userID, description string) (*domain.Project, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, errors.BadRequest("Description cannot be empty", nil)
	}
	project, err := s.AuthorizeRoom(ctx, roomID, projectID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repository.UpdateColumn(ctx, projectID, "description", description); err != nil {
		return nil, notFound(err)
	}
	project.Description = description
	s.invalidate(ctx, project)
	return project, nil
}

func (s *DefaultService) UpdateLinks(ctx context.Context, roomID, projectID, userID string, links []string) (*domain.Project, error) {
	project, err := s.AuthorizeRoom(ctx, roomID, projectID, userID)
	if err != nil {
		return nil, err
	}
	cleaned := pq.StringArray{}
	for _, link := range links {
		if link = strings.TrimSpace(link); link != "" {
			cleaned = append(cleaned, link)
		}
	}
	if err := s.repository.UpdateColumn(ctx, projectID, "links", cleaned); err != nil {
		return nil, notFound(err)
	}
	project.Links = cleaned
	s.invalidate(ctx, project)
	return project, nil
}

func (s *DefaultService) SetActiveStatus(ctx context.Context, roomID, projectID, userID string, active bool) (*domain.Project, error) {
	project, err := s.AuthorizeRoom(ctx, roomID, projectID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repository.UpdateColumn(ctx, projectID, "active_status", active); err != nil {
		return nil, notFound(err)
	}
	project.ActiveStatus = active
	s.invalidate(ctx, project)
	return project, nil
}
