package todo

import (
	"context"
	"encoding/json"
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

func (m *MockService) Create(ctx context.Context, roomID, userID string, input CreateInput) (*domain.TodoView, error) {
	args := m.Called(ctx, roomID, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TodoView), args.Error(1)
}

func (m *MockService) SetStatus(ctx context.Context, roomID, todoID, userID string, done bool) (*domain.TodoView, error) {
	args := m.Called(ctx, roomID, todoID, userID, done)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TodoView), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, roomID, todoID, userID string) (*domain.TodoView, error) {
	args := m.Called(ctx, roomID, todoID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TodoView), args.Error(1)
}

func (m *MockService) ListByDate(ctx context.Context, projectID, userID, date string) ([]domain.TodoView, error) {
	args := m.Called(ctx, projectID, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TodoView), args.Error(1)
}

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.GET("/todos/:projectId", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "u1")
		handler.ListByDate(c)
	})
	return router
}

func TestHandlerListByDate(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))
	mockService.On("ListByDate", mock.Anything, "p1", "u1", "2025-10-06").Return([]domain.TodoView{
		{ID: "t1", Title: "a", Date: "2025-10-06", CreatedBy: domain.Profile{ID: "u1", Username: "john"}},
	}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/todos/p1?date=2025-10-06", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data []domain.TodoView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "john", env.Data[0].CreatedBy.Username)
}

func TestHandlerListByDate_BadDate(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))
	mockService.On("ListByDate", mock.Anything, "p1", "u1", "").
		Return(nil, errors.BadRequest("Date must be formatted as YYYY-MM-DD", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/todos/p1", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
