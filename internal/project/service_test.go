package project

import (
	"context"
	"mime/multipart"
	"net/http"
	"testing"

	"todoshi/internal/domain"
	"todoshi/internal/errors"
	"todoshi/internal/room"
	"todoshi/internal/testutil"
	"todoshi/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, project *domain.Project) error {
	return m.Called(ctx, project).Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockRepository) ListForUser(ctx context.Context, userID string) ([]domain.Project, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, project *domain.Project) error {
	return m.Called(ctx, project).Error(0)
}

func (m *MockRepository) UpdateColumn(ctx context.Context, id, column string, value any) error {
	return m.Called(ctx, id, column, value).Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) AttachmentIDs(ctx context.Context, projectID string) ([]string, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) RemoveCollaborator(ctx context.Context, projectID, userID string) error {
	return m.Called(ctx, projectID, userID).Error(0)
}

type fixture struct {
	repo    *MockRepository
	rooms   *testutil.Recorder
	objects *testutil.ObjectStore
	cache   *redis.Cache
	service Service
}

func newFixture(t *testing.T) *fixture {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &fixture{
		repo:    new(MockRepository),
		rooms:   &testutil.Recorder{},
		objects: &testutil.ObjectStore{},
		cache:   redis.NewCache(client),
	}
	f.service = NewService(f.repo, f.cache, f.objects, testutil.InlineJobs{}, f.rooms)
	return f
}

func sampleProject() *domain.Project {
	return &domain.Project{
		Model:         domain.Model{ID: "p1"},
		Title:         "Project X",
		CreatedBy:     "owner",
		Collaborators: []domain.User{{Model: domain.Model{ID: "collab"}}},
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	apiErr, ok := errors.As(err)
	require.True(t, ok, "expected *APIError, got %v", err)
	return apiErr.Status
}

func TestCreate_SetsCreatorAndBumpsListVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Project")).Return(nil)

	project, err := f.service.Create(ctx, "owner", CreateInput{Title: "  Project X ", Description: "desc"})

	require.NoError(t, err)
	assert.Equal(t, "owner", project.CreatedBy)
	assert.Equal(t, "Project X", project.Title)
	assert.True(t, project.ActiveStatus)
	assert.Equal(t, int64(1), f.cache.GetVersion(ctx, ListVersionKey("owner")))
}

func TestCreate_BlankTitle(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), "owner", CreateInput{Title: "   "})

	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGet_MembershipRequired(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		status int
	}{
		{"creator", "owner", 0},
		{"collaborator", "collab", 0},
		{"stranger", "stranger", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.On("FindByID", mock.Anything, "p1").Return(sampleProject(), nil)

			project, err := f.service.Get(context.Background(), "p1", tt.userID)
			if tt.status != 0 {
				assert.Equal(t, tt.status, statusOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "p1", project.ID)
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)
	f.repo.On("FindByID", mock.Anything, "nope").Return(nil, gorm.ErrRecordNotFound)

	_, err := f.service.Get(context.Background(), "nope", "owner")

	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestListMine_ServedFromCacheUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.On("ListForUser", mock.Anything, "owner").Return([]domain.Project{*sampleProject()}, nil)

	first, err := f.service.ListMine(ctx, "owner")
	require.NoError(t, err)
	second, err := f.service.ListMine(ctx, "owner")
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	f.repo.AssertNumberOfCalls(t, "ListForUser", 1)

	f.cache.IncrementVersion(ctx, ListVersionKey("owner"))
	_, err = f.service.ListMine(ctx, "owner")
	require.NoError(t, err)
	f.repo.AssertNumberOfCalls(t, "ListForUser", 2)
}

func TestUpdateDetails_BroadcastsToPreviousRoom(t *testing.T) {
	f := newFixture(t)
	project := sampleProject()
	project.Image = datatypes.NewJSONType(domain.FileRef{PublicID: "projects/images/old.png"})
	f.repo.On("FindByID", mock.Anything, "p1").Return(project, nil)
	f.repo.On("Update", mock.Anything, project).Return(nil)

	title := "Renamed"
	updated, err := f.service.UpdateDetails(context.Background(), "p1", "owner", DetailsInput{
		Title: &title,
		Image: &multipart.FileHeader{Filename: "banner.png"},
	})

	require.NoError(t, err)
	assert.Equal(t, "projects/images/banner.png", updated.Image.Data().PublicID)
	assert.Equal(t, []string{"projects/images/old.png"}, f.objects.Deleted)

	events := f.rooms.Named(room.EventProjectDetailsUpdate)
	require.Len(t, events, 1)
	assert.Equal(t, "Prp1", events[0].Room)
	assert.Equal(t, "Rep1", events[0].Payload.(DetailsUpdate).RoomID)
}

func TestUpdateDetails_CreatorOnly(t *testing.T) {
	f := newFixture(t)
	f.repo.On("FindByID", mock.Anything, "p1").Return(sampleProject(), nil)

	_, err := f.service.UpdateDetails(context.Background(), "p1", "collab", DetailsInput{})

	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	assert.Empty(t, f.rooms.Events())
}

func TestUploadSRS(t *testing.T) {
	f := newFixture(t)
	f.repo.On("FindByID", mock.Anything, "p1").Return(sampleProject(), nil)
	f.repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Project")).Return(nil)

	project, err := f.service.UploadSRS(context.Background(), "p1", "owner", &multipart.FileHeader{Filename: "srs.PDF"})

	require.NoError(t, err)
	assert.Equal(t, "projects/srs/srs.PDF", project.SrsDocFile.Data().PublicID)
	require.Len(t, f.rooms.Named(room.EventProjectSRSUpdate), 1)
}

func TestUploadSRS_RejectsUnknownType(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.UploadSRS(context.Background(), "p1", "owner", &multipart.FileHeader{Filename: "srs.exe"})

	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Empty(t, f.objects.Uploaded)
}

func TestDelete_RemovesObjects(t *testing.T) {
	f := newFixture(t)
	project := sampleProject()
	project.SrsDocFile = datatypes.NewJSONType(domain.FileRef{PublicID: "projects/srs/a.pdf"})
	f.repo.On("FindByID", mock.Anything, "p1").Return(project, nil)
	f.repo.On("AttachmentIDs", mock.Anything, "p1").Return([]string{"chat/a.png"}, nil)
	f.repo.On("Delete", mock.Anything, "p1").Return(nil)

	require.NoError(t, f.service.Delete(context.Background(), "p1", "owner"))

	assert.ElementsMatch(t, []string{"chat/a.png", "projects/srs/a.pdf"}, f.objects.Deleted)
}

func TestRemoveCollaborator(t *testing.T) {
	f := newFixture(t)
	f.repo.On("FindByID", mock.Anything, "p1").Return(sampleProject(), nil)
	f.repo.On("RemoveCollaborator", mock.Anything, "p1", "collab").Return(nil)

	require.NoError(t, f.service.RemoveCollaborator(context.Background(), "p1", "owner", "collab"))

	events := f.rooms.Named(room.EventCollaboratorLeft)
	require.Len(t, events, 1)
	assert.Equal(t, CollaboratorChange{ProjectID: "p1", UserID: "collab"}, events[0].Payload)
}

func TestLeave(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		status int
	}{
		{"collaborator leaves", "collab", 0},
		{"creator cannot leave", "owner", http.StatusUnprocessableEntity},
		{"stranger", "stranger", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.On("FindByID", mock.Anything, "p1").Return(sampleProject(), nil)
			f.repo.On("RemoveCollaborator", mock.Anything, "p1", tt.userID).Return(nil)

			err := f.service.Leave(context.Background(), "p1", tt.userID)
			if tt.status != 0 {
				assert.Equal(t, tt.status, statusOf(t, err))
				assert.Empty(t, f.rooms.Events())
				return
			}
			require.NoError(t, err)
			assert.Len(t, f.rooms.Named(room.EventCollaboratorLeft), 1)
		})
	}
}

func TestSocketUpdates(t *testing.T) {
	t.Run("description must not be blank", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.UpdateDescription(context.Background(), "Prp1", "p1", "owner", "  ")
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})

	t.Run("description", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "p1").Return(sampleProject(), nil)
		f.repo.On("UpdateColumn", mock.Anything, "p1", "description", "new text").Return(nil)

		project, err := f.service.UpdateDescription(context.Background(), "Prp1", "p1", "collab", " new text ")
		require.NoError(t, err)
		assert.Equal(t, "new text", project.Description)
	})

	t.Run("links drop blanks", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "p1").Return(sampleProject(), nil)
		f.repo.On("UpdateColumn", mock.Anything, "p1", "links", mock.Anything).Return(nil)

		project, err := f.service.UpdateLinks(context.Background(), "Prp1", "p1", "owner", []string{"https://a", " ", "https://b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"https://a", "https://b"}, []string(project.Links))
	})

	t.Run("status by stranger", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "p1").Return(sampleProject(), nil)

		_, err := f.service.SetActiveStatus(context.Background(), "Prp1", "p1", "stranger", false)
		assert.Equal(t, http.StatusForbidden, statusOf(t, err))
		f.repo.AssertNotCalled(t, "UpdateColumn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("room must match project", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "p1").Return(sampleProject(), nil)

		_, err := f.service.SetActiveStatus(context.Background(), "Xxp1", "p1", "owner", false)
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
		f.repo.AssertNotCalled(t, "UpdateColumn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
