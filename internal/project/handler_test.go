package project

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"todoshi/internal/domain"
	"todoshi/internal/errors"
	"todoshi/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) project(args mock.Arguments) (*domain.Project, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockService) Create(ctx context.Context, userID string, input CreateInput) (*domain.Project, error) {
	return m.project(m.Called(ctx, userID, input))
}

func (m *MockService) Get(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	return m.project(m.Called(ctx, projectID, userID))
}

func (m *MockService) ListMine(ctx context.Context, userID string) ([]domain.Project, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *MockService) UpdateDetails(ctx context.Context, projectID, userID string, input DetailsInput) (*domain.Project, error) {
	return m.project(m.Called(ctx, projectID, userID, input))
}

func (m *MockService) UploadSRS(ctx context.Context, projectID, userID string, file *multipart.FileHeader) (*domain.Project, error) {
	return m.project(m.Called(ctx, projectID, userID, file))
}

func (m *MockService) Delete(ctx context.Context, projectID, userID string) error {
	return m.Called(ctx, projectID, userID).Error(0)
}

func (m *MockService) RemoveCollaborator(ctx context.Context, projectID, userID, collaboratorID string) error {
	return m.Called(ctx, projectID, userID, collaboratorID).Error(0)
}

func (m *MockService) Leave(ctx context.Context, projectID, userID string) error {
	return m.Called(ctx, projectID, userID).Error(0)
}

func (m *MockService) UpdateDescription(ctx context.Context, roomID, projectID, userID, description string) (*domain.Project, error) {
	return m.project(m.Called(ctx, roomID, projectID, userID, description))
}

func (m *MockService) UpdateLinks(ctx context.Context, roomID, projectID, userID string, links []string) (*domain.Project, error) {
	return m.project(m.Called(ctx, roomID, projectID, userID, links))
}

func (m *MockService) SetActiveStatus(ctx context.Context, roomID, projectID, userID string, active bool) (*domain.Project, error) {
	return m.project(m.Called(ctx, roomID, projectID, userID, active))
}

func (m *MockService) AuthorizeRoom(ctx context.Context, roomID, projectID, userID string) (*domain.Project, error) {
	return m.project(m.Called(ctx, roomID, projectID, userID))
}

func (m *MockService) Authorize(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	return m.project(m.Called(ctx, projectID, userID))
}

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "owner")
		c.Next()
	})

	router.POST("/projects", handler.Create)
	router.GET("/projects", handler.List)
	router.GET("/projects/:projectId", handler.Show)
	router.DELETE("/projects/:projectId", handler.Delete)
	router.DELETE("/projects/:projectId/collaborators/:userId", handler.RemoveCollaborator)
	return router
}

func TestHandlerCreate(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("Create", mock.Anything, "owner", mock.MatchedBy(func(in CreateInput) bool {
		return in.Title == "Project X" && in.Deadline != nil && in.Deadline.Day() == 6
	})).Return(&domain.Project{Model: domain.Model{ID: "p1"}, Title: "Project X"}, nil)

	body, _ := json.Marshal(map[string]string{"title": "Project X", "deadline": "2025-10-06"})
	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var env struct {
		StatusCode int            `json:"statusCode"`
		Success    bool           `json:"success"`
		Data       domain.Project `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.True(t, env.Success)
	assert.Equal(t, "p1", env.Data.ID)
}

func TestHandlerCreate_BadDeadline(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	body, _ := json.Marshal(map[string]string{"title": "Project X", "deadline": "06/10/2025"})
	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, false, env["success"])
	assert.Contains(t, env["errors"], "Deadline")
	mockService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerShow_Forbidden(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))
	mockService.On("Get", mock.Anything, "p1", "owner").Return(nil, errors.Forbidden("You are not a member of this project", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/p1", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "You are not a member of this project", env["message"])
	assert.Nil(t, env["data"])
}

func TestHandlerList(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))
	mockService.On("ListMine", mock.Anything, "owner").Return([]domain.Project{{Title: "A"}, {Title: "B"}}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data []domain.Project `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Len(t, env.Data, 2)
}

func TestHandlerRemoveCollaborator(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))
	mockService.On("RemoveCollaborator", mock.Anything, "p1", "owner", "u2").Return(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/projects/p1/collaborators/u2", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}
