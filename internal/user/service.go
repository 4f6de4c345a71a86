package user

import (
	"context"
	defError "errors"
	"mime/multipart"
	"strings"

	"todoshi/internal/domain"
	"todoshi/internal/errors"
	"todoshi/internal/storage"
	"todoshi/internal/worker"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const searchLimit = 20

const avatarFolder = "avatars"

// Service defines the interface for user business logic
type Service interface {
	Register(ctx context.Context, user *domain.User) error
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Logout(ctx context.Context, id string) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*domain.User, error)
	SearchUsers(ctx context.Context, query string) ([]domain.SafeUser, error)
}

// UpdateProfileInput carries optional profile changes; nil fields are untouched
type UpdateProfileInput struct {
	Username *string
	FullName *string
	Avatar   *multipart.FileHeader
}

// DefaultService implements Service
type DefaultService struct {
	repository UserRepository
	objects    storage.ObjectStore
	jobs       worker.Submitter
}

// NewService creates a new user service
func NewService(repository UserRepository, objects storage.ObjectStore, jobs worker.Submitter) Service {
	return &DefaultService{repository: repository, objects: objects, jobs: jobs}
}

func notFound(err error) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("User not found", err)
	}
	return err
}

// Register registers a new user
func (s *DefaultService) Register(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Username = strings.TrimSpace(user.Username)

	_, err := s.repository.FindByEmail(ctx, user.Email)
	if err != nil && !defError.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err == nil {
		return errors.Conflict("User already registered", nil)
	}

	_, err = s.repository.FindByUsername(ctx, user.Username)
	if err != nil && !defError.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err == nil {
		return errors.Conflict("Username already taken", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.UnprocessableEntity("Can't hash password", err)
	}
	user.PasswordHash = string(hashedPassword)
	user.Password = ""

	if err := s.repository.Create(ctx, user); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Conflict("User already registered", err)
		}
		return err
	}
	return nil
}

// Login authenticates a user
func (s *DefaultService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repository.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, errors.Unauthorized("Invalid email or password", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.Unauthorized("Invalid email or password", err)
	}

	return user, nil
}

// Logout invalidates every token issued so far
func (s *DefaultService) Logout(ctx context.Context, id string) error {
	return s.repository.IncrementTokenVersion(ctx, id)
}

func (s *DefaultService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// GetProfile resolves the public profile used in presence and expansions
func (s *DefaultService) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := user.ToProfile()
	return &profile, nil
}

func (s *DefaultService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, errors.BadRequest("Username cannot be empty", nil)
		}
		if username != user.Username {
			if _, err := s.repository.FindByUsername(ctx, username); err == nil {
				return nil, errors.Conflict("Username already taken", nil)
			}
			user.Username = username
		}
	}
	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}

	oldAvatarID := ""
	if input.Avatar != nil {
		ref, err := s.objects.Upload(ctx, avatarFolder, input.Avatar)
		if err != nil {
			return nil, errors.ServiceUnavailable("Avatar upload failed", err)
		}
		oldAvatarID = user.AvatarID
		user.Avatar = ref.URL
		user.AvatarID = ref.PublicID
	}

	if err := s.repository.Update(ctx, user); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("Username already taken", err)
		}
		return nil, err
	}

	if oldAvatarID != "" {
		s.jobs.Submit("delete-avatar", func(ctx context.Context) error {
			return s.objects.Delete(ctx, oldAvatarID)
		})
	}

	logrus.WithFields(logrus.Fields{"component": "user", "user_id": id}).Info("profile updated")
	return user, nil
}

func (s *DefaultService) SearchUsers(ctx context.Context, query string) ([]domain.SafeUser, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SafeUser{}, nil
	}

	users, err := s.repository.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, err
	}

	result := make([]domain.SafeUser, 0, len(users))
	for i := range users {
		result = append(result, users[i].ToSafeUser())
	}
	return result, nil
}
